package simpleexcel

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
)

// DocumentBuilder assembles a Document fluently.
//
//	doc, err := simpleexcel.NewDocumentBuilder().
//		HeaderStyle(&simpleexcel.Style{Bold: simpleexcel.On}).
//		AddSheet("Employees").
//		FieldColumn("Name", "Name").
//		FieldColumn("Salary", "Salary").
//		Slice(employees).
//		Done().
//		Build()
type DocumentBuilder struct {
	doc   Document
	theme *Theme
	errs  error
}

// NewDocumentBuilder creates an empty builder.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{}
}

func (b *DocumentBuilder) HeaderStyle(s *Style) *DocumentBuilder {
	b.doc.HeaderStyle = s
	return b
}

func (b *DocumentBuilder) BodyStyle(s *Style) *DocumentBuilder {
	b.doc.BodyStyle = s
	return b
}

// ColumnStyle registers header and body overrides for every column titled header.
func (b *DocumentBuilder) ColumnStyle(header string, cs ColumnStyle) *DocumentBuilder {
	if b.doc.ColumnStyles == nil {
		b.doc.ColumnStyles = make(map[string]ColumnStyle)
	}
	b.doc.ColumnStyles[header] = cs
	return b
}

// Theme applies a built-in theme at Build time, filling unset layers only.
func (b *DocumentBuilder) Theme(name string) *DocumentBuilder {
	t, err := ThemeByName(name)
	if err != nil {
		b.errs = multierr.Append(b.errs, err)
		return b
	}
	b.theme = &t
	return b
}

// AddSheet starts a new sheet.
func (b *DocumentBuilder) AddSheet(name string) *SheetBuilder {
	b.doc.Sheets = append(b.doc.Sheets, Sheet{Name: name})
	return &SheetBuilder{parent: b, index: len(b.doc.Sheets) - 1}
}

// Build validates and returns the document.
func (b *DocumentBuilder) Build() (*Document, error) {
	if b.errs != nil {
		return nil, b.errs
	}
	doc := b.doc
	if b.theme != nil {
		doc.ApplyTheme(*b.theme)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ToWriter builds the document and renders it to w.
func (b *DocumentBuilder) ToWriter(w io.Writer, opts ...Option) error {
	doc, err := b.Build()
	if err != nil {
		return err
	}
	return Render(doc, w, opts...)
}

// SheetBuilder configures one sheet of a DocumentBuilder.
type SheetBuilder struct {
	parent *DocumentBuilder
	index  int
}

func (sb *SheetBuilder) sheet() *Sheet { return &sb.parent.doc.Sheets[sb.index] }

// Column appends a fully specified column.
func (sb *SheetBuilder) Column(c Column) *SheetBuilder {
	s := sb.sheet()
	s.Columns = append(s.Columns, c)
	return sb
}

// ValueColumn appends an auto width column computed by fn.
func (sb *SheetBuilder) ValueColumn(header string, fn Extractor) *SheetBuilder {
	return sb.Column(Column{Header: header, Value: fn})
}

// FieldColumn appends an auto width column reading a struct field or map key.
func (sb *SheetBuilder) FieldColumn(header, field string) *SheetBuilder {
	return sb.Column(Column{Header: header, Value: FieldExtractor(field)})
}

// Columns appends columns derived from the struct tags of sample.
func (sb *SheetBuilder) Columns(sample interface{}) *SheetBuilder {
	cols, groups, err := ColumnsOf(sample)
	if err != nil {
		sb.parent.errs = multierr.Append(sb.parent.errs, fmt.Errorf("sheet %q: %w", sb.sheet().Name, err))
		return sb
	}
	s := sb.sheet()
	offset := len(s.Columns)
	for _, g := range groups {
		s.Groups = append(s.Groups, HeaderGroup{Title: g.Title, From: g.From + offset, To: g.To + offset})
	}
	s.Columns = append(s.Columns, cols...)
	return sb
}

// Group adds a merged header over columns from..to inclusive.
func (sb *SheetBuilder) Group(title string, from, to int) *SheetBuilder {
	s := sb.sheet()
	s.Groups = append(s.Groups, HeaderGroup{Title: title, From: from, To: to})
	return sb
}

func (sb *SheetBuilder) Freeze(rows, cols int) *SheetBuilder {
	sb.sheet().Freeze = FreezePane{Rows: rows, Cols: cols}
	return sb
}

func (sb *SheetBuilder) AutoFilter() *SheetBuilder {
	sb.sheet().AutoFilter = true
	return sb
}

// AlternateRows styles every even data row.
func (sb *SheetBuilder) AlternateRows(s *Style) *SheetBuilder {
	sb.sheet().AlternateRow = s
	return sb
}

// Data sets the row source.
func (sb *SheetBuilder) Data(p DataProvider) *SheetBuilder {
	sb.sheet().Data = p
	return sb
}

// Slice sets an in-memory slice as the row source.
func (sb *SheetBuilder) Slice(data interface{}) *SheetBuilder {
	p, err := NewSliceDataProvider(data)
	if err != nil {
		sb.parent.errs = multierr.Append(sb.parent.errs, fmt.Errorf("sheet %q: %w", sb.sheet().Name, err))
		return sb
	}
	return sb.Data(p)
}

// Done returns to the document builder.
func (sb *SheetBuilder) Done() *DocumentBuilder {
	return sb.parent
}
