// Package rowsource adapts database cursors into simpleexcel data providers.
// Rows are produced as map[string]interface{} keyed by column or field name,
// so they can be rendered with simpleexcel.MapColumns.
package rowsource

import (
	"fmt"

	"github.com/locvowork/excelstream/pkg/simpleexcel"
)

// Rows is the part of *sql.Rows read by SQLProvider.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// SQLProvider streams a query result one row at a time.
type SQLProvider struct {
	rows    Rows
	cols    []string
	values  []interface{}
	ptrs    []interface{}
	current map[string]interface{}
	err     error
	closed  bool
}

var _ simpleexcel.DataProvider = (*SQLProvider)(nil)

// NewSQLProvider wraps rows. The provider owns rows and closes them.
func NewSQLProvider(rows Rows) (*SQLProvider, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	p := &SQLProvider{
		rows:   rows,
		cols:   cols,
		values: make([]interface{}, len(cols)),
		ptrs:   make([]interface{}, len(cols)),
	}
	for i := range p.values {
		p.ptrs[i] = &p.values[i]
	}
	return p, nil
}

// Columns returns the result column names in select order.
func (p *SQLProvider) Columns() []string { return p.cols }

func (p *SQLProvider) Next() bool {
	if p.closed {
		p.err = simpleexcel.ErrConsumed
		return false
	}
	if p.err != nil || !p.rows.Next() {
		p.current = nil
		return false
	}
	if err := p.rows.Scan(p.ptrs...); err != nil {
		p.err = fmt.Errorf("scan row: %w", err)
		p.current = nil
		return false
	}

	row := make(map[string]interface{}, len(p.cols))
	for i, name := range p.cols {
		v := p.values[i]
		// Drivers reuse byte buffers between rows, and text columns arrive as bytes.
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[name] = v
		p.values[i] = nil
	}
	p.current = row
	return true
}

func (p *SQLProvider) Row() interface{} {
	if p.current == nil {
		return nil
	}
	return p.current
}

func (p *SQLProvider) Err() error {
	if p.err != nil {
		return p.err
	}
	return p.rows.Err()
}

func (p *SQLProvider) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.current = nil
	return p.rows.Close()
}

// SQLColumns builds one auto width column per result column.
func SQLColumns(p *SQLProvider) []simpleexcel.Column {
	return simpleexcel.MapColumns(p.Columns()...)
}

// SQLSheet builds a sheet over a query result.
func SQLSheet(name string, rows Rows) (simpleexcel.Sheet, error) {
	p, err := NewSQLProvider(rows)
	if err != nil {
		return simpleexcel.Sheet{}, err
	}
	return simpleexcel.Sheet{Name: name, Columns: SQLColumns(p), Data: p}, nil
}
