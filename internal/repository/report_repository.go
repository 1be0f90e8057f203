package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/locvowork/excelstream/pkg/rowsource"
)

// ErrUnknownReport is returned for report names missing from the catalog.
var ErrUnknownReport = errors.New("unknown report")

// Report is a named SQL query exported as one sheet.
type Report struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	Query string `yaml:"query"`
	// Params lists the request parameters bound to $1, $2 ... in order.
	Params []string `yaml:"params"`
}

type ReportRepository interface {
	Reports() []Report
	Report(name string) (Report, error)
	Stream(ctx context.Context, name string, args ...interface{}) (*rowsource.SQLProvider, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type reportRepository struct {
	db      queryer
	reports map[string]Report
}

func NewReportRepository(db *sql.DB, reports []Report) ReportRepository {
	return newReportRepository(db, reports)
}

func newReportRepository(db queryer, reports []Report) *reportRepository {
	r := &reportRepository{db: db, reports: make(map[string]Report, len(reports))}
	for _, rep := range reports {
		r.reports[rep.Name] = rep
	}
	return r
}

// LoadReports reads a catalog file:
//
//	reports:
//	  - name: payroll
//	    title: Payroll
//	    query: SELECT name, salary FROM employees WHERE department = $1
//	    params: [department]
func LoadReports(path string) ([]Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report catalog: %w", err)
	}
	defer f.Close()

	var catalog struct {
		Reports []Report `yaml:"reports"`
	}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode report catalog: %w", err)
	}
	for i, rep := range catalog.Reports {
		if rep.Name == "" || rep.Query == "" {
			return nil, fmt.Errorf("report %d: name and query are required", i)
		}
	}
	return catalog.Reports, nil
}

func (r *reportRepository) Reports() []Report {
	out := make([]Report, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *reportRepository) Report(name string) (Report, error) {
	rep, ok := r.reports[name]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	return rep, nil
}

// Stream runs the report query. The returned provider owns the rows.
func (r *reportRepository) Stream(ctx context.Context, name string, args ...interface{}) (*rowsource.SQLProvider, error) {
	rep, err := r.Report(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(rep.Params) {
		return nil, fmt.Errorf("report %s takes %d parameters, got %d", name, len(rep.Params), len(args))
	}
	rows, err := r.db.QueryContext(ctx, rep.Query, args...)
	if err != nil {
		return nil, fmt.Errorf("query report %s: %w", name, err)
	}
	return rowsource.NewSQLProvider(rows)
}
