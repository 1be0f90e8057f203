package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/datastore"
	"github.com/olivere/elastic/v7"

	"github.com/locvowork/excelstream/internal/logger"
	"github.com/locvowork/excelstream/internal/repository"
	"github.com/locvowork/excelstream/pkg/googlecloud"
	"github.com/locvowork/excelstream/pkg/rowsource"
	"github.com/locvowork/excelstream/pkg/simpleexcel"
)

// ErrSourceUnavailable is returned when the backend of an export is not configured.
var ErrSourceUnavailable = errors.New("data source not configured")

// ErrInvalidRequest wraps request errors the caller can fix.
var ErrInvalidRequest = errors.New("invalid request")

// MaxDemoRows bounds the generated demo workbook.
const MaxDemoRows = 1_000_000

type ExportService interface {
	ExportDemo(ctx context.Context, w io.Writer, rows int) error
	ExportTemplate(ctx context.Context, w io.Writer, req TemplateRequest) error
	ExportQuery(ctx context.Context, w io.Writer, report string, params map[string]string) error
	ExportSearch(ctx context.Context, w io.Writer, index, query string) error
	ExportDatastore(ctx context.Context, w io.Writer, kind string, limit int) error
	Import(ctx context.Context, r io.Reader, req ImportRequest) (*ImportResult, error)
	Reports() []repository.Report
}

// EntityStore is the Datastore access used by exports and imports.
type EntityStore interface {
	QueryProvider(ctx context.Context, q *datastore.Query) *googlecloud.EntityProvider
	SaveRows(ctx context.Context, kind, keyField string, rows []map[string]string) (int, error)
}

// TemplateRequest renders either an inline YAML template or a named one from
// the template directory, with rows bound per sheet id.
type TemplateRequest struct {
	Name     string                              `json:"name"`
	Template string                              `json:"template"`
	Data     map[string][]map[string]interface{} `json:"data"`
}

type ImportRequest struct {
	Sheet     string
	HeaderRow int
	// Kind stores the rows in Datastore when set.
	Kind     string
	KeyField string
}

type ImportResult struct {
	Sheet string              `json:"sheet"`
	Count int                 `json:"count"`
	Saved int                 `json:"saved"`
	Rows  []map[string]string `json:"rows,omitempty"`
}

type Deps struct {
	Reports     repository.ReportRepository
	Search      *elastic.Client
	Entities    EntityStore
	TemplateDir string
	Options     []simpleexcel.Option
}

type exportService struct {
	reports     repository.ReportRepository
	search      *elastic.Client
	entities    EntityStore
	templateDir string
	opts        []simpleexcel.Option
}

func NewExportService(deps Deps) ExportService {
	return &exportService{
		reports:     deps.Reports,
		search:      deps.Search,
		entities:    deps.Entities,
		templateDir: deps.TemplateDir,
		opts:        deps.Options,
	}
}

func (s *exportService) render(ctx context.Context, doc *simpleexcel.Document, w io.Writer) error {
	doc.WithContext(ctx)
	opts := append(append([]simpleexcel.Option{}, s.opts...), simpleexcel.WithLogger(logger.FromContext(ctx)))
	start := time.Now()
	if err := simpleexcel.Render(doc, w, opts...); err != nil {
		return err
	}
	logger.InfoLog(ctx, "rendered %d sheet(s) in %v", len(doc.Sheets), time.Since(start))
	return nil
}

type demoEmployee struct {
	ID         int        `excel:"header:ID;width:8"`
	Name       string     `excel:"header:Name;group:Employee"`
	Department string     `excel:"header:Department;group:Employee"`
	Joined     civil.Date `excel:"header:Joined;width:12;group:Employee"`
	Salary     float64    `excel:"header:Salary;format:#,##0.00;group:Pay"`
	Bonus      float64    `excel:"header:Bonus;format:#,##0.00;group:Pay"`
	Active     bool       `excel:"header:Active"`
}

var demoDepartments = []string{"Engineering", "Sales", "Finance", "Support", "Operations"}

// ExportDemo streams a generated payroll workbook of rows employees.
func (s *exportService) ExportDemo(ctx context.Context, w io.Writer, rows int) error {
	if rows <= 0 || rows > MaxDemoRows {
		return fmt.Errorf("%w: rows must be between 1 and %d", ErrInvalidRequest, MaxDemoRows)
	}
	rng := rand.New(rand.NewSource(1))
	base := civil.Date{Year: 2015, Month: time.January, Day: 1}
	gen := func(i int) interface{} {
		return demoEmployee{
			ID:         i + 1,
			Name:       fmt.Sprintf("Employee %d", i+1),
			Department: demoDepartments[i%len(demoDepartments)],
			Joined:     base.AddDays(rng.Intn(3650)),
			Salary:     1000 + float64(rng.Intn(900000))/100,
			Bonus:      float64(rng.Intn(200000)-20000) / 100,
			Active:     i%7 != 0,
		}
	}

	doc, err := simpleexcel.NewDocumentBuilder().
		Theme("blue").
		AddSheet("Payroll").
		Columns(demoEmployee{}).
		Freeze(2, 1).
		AutoFilter().
		Data(simpleexcel.NewFuncDataProvider(rows, gen)).
		Done().
		Build()
	if err != nil {
		return err
	}
	for i := range doc.Sheets[0].Columns {
		if doc.Sheets[0].Columns[i].Header == "Bonus" {
			doc.Sheets[0].Columns[i].Conditional = negativeRed
		}
	}
	return s.render(ctx, doc, w)
}

func negativeRed(raw interface{}) *simpleexcel.Style {
	if v := simpleexcel.ValueOf(raw); v.Kind == simpleexcel.KindNumber && v.Number < 0 {
		return &simpleexcel.Style{FontColor: "C00000"}
	}
	return nil
}

// ExportTemplate renders a YAML report template with the request rows.
func (s *exportService) ExportTemplate(ctx context.Context, w io.Writer, req TemplateRequest) error {
	src := req.Template
	if src == "" {
		if req.Name == "" {
			return fmt.Errorf("%w: template or name is required", ErrInvalidRequest)
		}
		b, err := s.readTemplate(req.Name)
		if err != nil {
			return err
		}
		src = string(b)
	}

	e, err := simpleexcel.NewTemplateExporter(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for id, rows := range req.Data {
		e.BindSheetData(id, rows)
	}
	doc, err := e.Document()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.render(ctx, doc, w)
}

func (s *exportService) readTemplate(name string) ([]byte, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: bad template name %q", ErrInvalidRequest, name)
	}
	b, err := os.ReadFile(filepath.Join(s.templateDir, name+".yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: template %q not found", ErrInvalidRequest, name)
	}
	return b, err
}

func (s *exportService) Reports() []repository.Report {
	if s.reports == nil {
		return nil
	}
	return s.reports.Reports()
}

// ExportQuery streams a catalog report, binding params by the report's
// parameter names.
func (s *exportService) ExportQuery(ctx context.Context, w io.Writer, report string, params map[string]string) error {
	if s.reports == nil {
		return ErrSourceUnavailable
	}
	rep, err := s.reports.Report(report)
	if err != nil {
		return err
	}
	args := make([]interface{}, len(rep.Params))
	for i, name := range rep.Params {
		v, ok := params[name]
		if !ok {
			return fmt.Errorf("%w: missing parameter %q", ErrInvalidRequest, name)
		}
		args[i] = v
	}

	p, err := s.reports.Stream(ctx, report, args...)
	if err != nil {
		return err
	}
	title := rep.Title
	if title == "" {
		title = rep.Name
	}
	doc := &simpleexcel.Document{Sheets: []simpleexcel.Sheet{{
		Name:       title,
		Columns:    rowsource.SQLColumns(p),
		Data:       p,
		Freeze:     simpleexcel.FreezePane{Rows: 1},
		AutoFilter: true,
	}}}
	return s.render(ctx, doc, w)
}

// ExportSearch streams the documents of index matching a query string query,
// all documents when query is empty.
func (s *exportService) ExportSearch(ctx context.Context, w io.Writer, index, query string) error {
	if s.search == nil {
		return ErrSourceUnavailable
	}
	var q elastic.Query = elastic.NewMatchAllQuery()
	if query != "" {
		q = elastic.NewQueryStringQuery(query)
	}
	p := rowsource.NewElasticProvider(ctx, s.search, index, q,
		rowsource.WithRetry(3, rowsource.ExponentialBackoff(200*time.Millisecond)))
	peek, first := simpleexcel.Peek(p)
	if err := p.Err(); err != nil {
		_ = p.Close()
		return err
	}
	sample, _ := first.(map[string]interface{})
	doc := &simpleexcel.Document{Sheets: []simpleexcel.Sheet{{
		Name:    index,
		Columns: rowsource.FieldColumns(sample),
		Data:    peek,
		Freeze:  simpleexcel.FreezePane{Rows: 1},
	}}}
	if err := s.render(ctx, doc, w); err != nil {
		return err
	}
	logger.DebugLog(ctx, "exported %d hits from %s", p.Fetched(), index)
	return nil
}

// ExportDatastore streams up to limit entities of kind, all when limit is 0.
func (s *exportService) ExportDatastore(ctx context.Context, w io.Writer, kind string, limit int) error {
	if s.entities == nil {
		return ErrSourceUnavailable
	}
	q, err := googlecloud.KindQuery{Kind: kind, Limit: limit}.Query()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	p := s.entities.QueryProvider(ctx, q)
	peek, first := simpleexcel.Peek(p)
	if err := p.Err(); err != nil {
		_ = p.Close()
		return err
	}
	sample, _ := first.(map[string]interface{})
	doc := &simpleexcel.Document{Sheets: []simpleexcel.Sheet{{
		Name:    kind,
		Columns: googlecloud.EntityColumns(sample),
		Data:    peek,
	}}}
	return s.render(ctx, doc, w)
}

// Import reads a sheet as rows of text keyed by header. Cells that fail to
// parse do not exist for map rows, so the only errors are structural.
func (s *exportService) Import(ctx context.Context, r io.Reader, req ImportRequest) (*ImportResult, error) {
	var opts []simpleexcel.ReadOption
	if req.HeaderRow > 0 {
		opts = append(opts, simpleexcel.WithHeaderRow(req.HeaderRow))
	}
	rows, err := simpleexcel.ReadMaps(r, req.Sheet, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	res := &ImportResult{Sheet: req.Sheet, Count: len(rows)}
	if req.Kind == "" {
		res.Rows = rows
		return res, nil
	}
	if s.entities == nil {
		return nil, ErrSourceUnavailable
	}
	res.Saved, err = s.entities.SaveRows(ctx, req.Kind, req.KeyField, rows)
	if err != nil {
		return res, err
	}
	logger.InfoLog(ctx, "imported %d rows into %s", res.Saved, req.Kind)
	return res, nil
}
