package simpleexcel

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type employee struct {
	Name   string
	Salary float64
	Joined civil.Date
}

func employeeColumns() []Column {
	return []Column{
		{Header: "Name", Value: FieldExtractor("Name")},
		{Header: "Salary", Format: "#,##0.00", Value: FieldExtractor("Salary")},
		{Header: "Joined", Width: 12, Value: FieldExtractor("Joined")},
	}
}

func employees() []employee {
	return []employee{
		{"Alice", 1200.5, civil.Date{Year: 2020, Month: 1, Day: 15}},
		{"Bob", -30, civil.Date{Year: 2021, Month: 6, Day: 1}},
		{"Charlotte Longname", 99, civil.Date{Year: 2022, Month: 12, Day: 31}},
	}
}

func renderFake(t *testing.T, doc *Document, opts ...Option) (*fakeEngine, error) {
	t.Helper()
	engine := newFakeEngine()
	var buf bytes.Buffer
	err := Render(doc, &buf, append([]Option{WithEngine(engine.factory())}, opts...)...)
	return engine, err
}

func TestRenderBasicSheet(t *testing.T) {
	doc := &Document{
		HeaderStyle: &Style{Bold: On},
		Sheets: []Sheet{{
			Name:    "Staff",
			Columns: employeeColumns(),
			Data:    track(employees()),
		}},
	}

	engine, err := renderFake(t, doc)
	require.NoError(t, err)
	require.Len(t, engine.sheets, 1)
	s := engine.sheets[0]

	assert.True(t, s.closed)
	assert.True(t, engine.written)
	assert.True(t, engine.closed)
	assert.Equal(t, []int{0, 1, 2, 3}, s.order)

	header := s.rows[0]
	require.Len(t, header, 3)
	assert.Equal(t, "Name", header[0].Value.Text)
	assert.Equal(t, Style{Bold: On}, engine.style(header[0].Style))

	first := s.rows[1]
	assert.Equal(t, Text("Alice"), first[0].Value)
	assert.Equal(t, Number(1200.5), first[1].Value)
	assert.Equal(t, "#,##0.00", engine.style(first[1].Style).NumFormat)
	assert.Equal(t, KindDate, first[2].Value.Kind)
	assert.Equal(t, DefaultDateFormat, engine.style(first[2].Style).NumFormat)

	assert.Equal(t, float64(len("Charlotte Longname")+2), s.widths[0])
	assert.Equal(t, 8.0, s.widths[1], "short columns are raised to the minimum")
	assert.Equal(t, 12.0, s.widths[2], "fixed widths are kept")
}

func TestRenderGroupedHeaders(t *testing.T) {
	cols := []Column{
		{Header: "A", Value: FieldExtractor("A")},
		{Header: "B", Value: FieldExtractor("B")},
		{Header: "C", Value: FieldExtractor("C")},
		{Header: "D", Value: FieldExtractor("D")},
		{Header: "E", Value: FieldExtractor("E")},
	}
	doc := &Document{Sheets: []Sheet{{
		Name:       "Grouped",
		Columns:    cols,
		Groups:     []HeaderGroup{{Title: "First", From: 0, To: 1}, {Title: "Second", From: 2, To: 4}},
		AutoFilter: true,
		Freeze:     FreezePane{Rows: 2},
		Data:       track([]map[string]interface{}{{"A": 1, "E": "x"}}),
	}}}

	engine, err := renderFake(t, doc)
	require.NoError(t, err)
	s := engine.sheets[0]

	assert.Equal(t, []CellRange{
		{FirstRow: 0, LastRow: 0, FirstCol: 0, LastCol: 1},
		{FirstRow: 0, LastRow: 0, FirstCol: 2, LastCol: 4},
	}, s.merges)
	assert.Equal(t, "First", s.rows[0][0].Value.Text)
	assert.Equal(t, KindBlank, s.rows[0][1].Value.Kind)
	assert.Equal(t, "Second", s.rows[0][2].Value.Text)
	assert.Equal(t, "A", s.rows[1][0].Value.Text)
	assert.Equal(t, Number(1), s.rows[2][0].Value)
	assert.Equal(t, KindBlank, s.rows[2][1].Value.Kind)

	assert.Equal(t, 2, s.layout.FreezeRows)
	require.NotNil(t, s.layout.Filter)
	assert.Equal(t, CellRange{FirstRow: 1, LastRow: 1, FirstCol: 0, LastCol: 4}, *s.layout.Filter)
}

func TestRenderSingleColumnGroupIsNotMerged(t *testing.T) {
	doc := &Document{Sheets: []Sheet{{
		Name:    "G",
		Columns: []Column{{Header: "A", Value: FieldExtractor("A")}, {Header: "B", Value: FieldExtractor("B")}},
		Groups:  []HeaderGroup{{Title: "Only", From: 1, To: 1}},
	}}}
	engine, err := renderFake(t, doc)
	require.NoError(t, err)
	assert.Empty(t, engine.sheets[0].merges)
	assert.Equal(t, "Only", engine.sheets[0].rows[0][1].Value.Text)
}

func TestRenderEmptyDataUsesDefaultWidth(t *testing.T) {
	doc := &Document{Sheets: []Sheet{{
		Name:    "Empty",
		Columns: []Column{{Header: "Id", Value: FieldExtractor("Id")}, {Header: "Fixed", Width: 22, Value: FieldExtractor("x")}},
		Data:    track([]employee{}),
	}}}

	engine, err := renderFake(t, doc)
	require.NoError(t, err)
	s := engine.sheets[0]
	assert.Equal(t, []int{0}, s.order)
	assert.Equal(t, DefaultColumnWidth, s.widths[0])
	assert.Equal(t, 22.0, s.widths[1])
}

func TestRenderNoColumnsDrainsData(t *testing.T) {
	p := track(employees())
	doc := &Document{Sheets: []Sheet{{Name: "Blank", Data: p}}}

	engine, err := renderFake(t, doc)
	require.NoError(t, err)
	assert.Empty(t, engine.sheets[0].order)
	assert.False(t, p.Next(), "rows are consumed")
	assert.Equal(t, 1, p.closes)
}

func TestRenderAlternateAndConditional(t *testing.T) {
	cols := employeeColumns()
	cols[1].Conditional = func(raw interface{}) *Style {
		if raw.(float64) < 0 {
			return &Style{FontColor: "FF0000"}
		}
		return nil
	}
	doc := &Document{Sheets: []Sheet{{
		Name:         "Alt",
		Columns:      cols,
		AlternateRow: &Style{Background: "EEEEEE"},
		Data:         track(employees()),
	}}}

	engine, err := renderFake(t, doc)
	require.NoError(t, err)
	s := engine.sheets[0]

	assert.Equal(t, "EEEEEE", engine.style(s.rows[1][0].Style).Background)
	assert.Equal(t, "", engine.style(s.rows[2][0].Style).Background)
	assert.Equal(t, "EEEEEE", engine.style(s.rows[3][0].Style).Background)

	bob := engine.style(s.rows[2][1].Style)
	assert.Equal(t, "FF0000", bob.FontColor)
	assert.Equal(t, "#,##0.00", bob.NumFormat)

	// Alternate date cells keep the date format.
	assert.Equal(t, Style{Background: "EEEEEE", NumFormat: DefaultDateFormat}, engine.style(s.rows[1][2].Style))
}

func TestRenderColumnFormatAppliesToDates(t *testing.T) {
	cols := []Column{{Header: "When", Format: "dd.mm.yyyy", Value: FieldExtractor("Joined")}}
	doc := &Document{Sheets: []Sheet{{Name: "D", Columns: cols, Data: track(employees())}}}

	engine, err := renderFake(t, doc)
	require.NoError(t, err)
	assert.Equal(t, "dd.mm.yyyy", engine.style(engine.sheets[0].rows[1][0].Style).NumFormat)
}

func TestRenderDateTimeUsesDateTimeFormat(t *testing.T) {
	cols := []Column{{Header: "At", Value: func(interface{}) interface{} {
		return civil.DateTime{Date: civil.Date{Year: 2024, Month: 3, Day: 1}, Time: civil.Time{Hour: 12}}
	}}}
	doc := &Document{Sheets: []Sheet{{Name: "T", Columns: cols, Data: track([]int{1})}}}

	engine, err := renderFake(t, doc, WithDateFormats("", "hh:mm dd/mm"))
	require.NoError(t, err)
	c := engine.sheets[0].rows[1][0]
	assert.Equal(t, KindDateTime, c.Value.Kind)
	assert.Equal(t, "hh:mm dd/mm", engine.style(c.Style).NumFormat)
}

func TestRenderWrapsRowErrors(t *testing.T) {
	engine := newFakeEngine()
	engine.failRowAt = 3
	first, second := track(employees()), track(employees())
	doc := &Document{Sheets: []Sheet{
		{Name: "One", Columns: employeeColumns(), Data: first},
		{Name: "Two", Columns: employeeColumns(), Data: second},
	}}

	err := Render(doc, &bytes.Buffer{}, WithEngine(engine.factory()))

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "One", we.Sheet)
	assert.Equal(t, 2, we.Row)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, engine.written)
	assert.True(t, engine.closed)
	assert.True(t, engine.sheets[0].closed)
	assert.Equal(t, 1, first.closes)
	assert.Equal(t, 1, second.closes)
}

func TestRenderWrapsDataErrors(t *testing.T) {
	p := track(employees())
	p.err = errors.New("connection reset")
	doc := &Document{Sheets: []Sheet{{Name: "S", Columns: employeeColumns(), Data: p}}}

	_, err := renderFake(t, doc)

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "S", we.Sheet)
	assert.Equal(t, 4, we.Row)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRenderValidationErrors(t *testing.T) {
	cases := map[string]struct {
		sheet Sheet
		want  error
	}{
		"duplicate header": {
			Sheet{Name: "S", Columns: []Column{{Header: "A", Value: FieldExtractor("A")}, {Header: "A", Value: FieldExtractor("A")}}},
			ErrDuplicateHeader,
		},
		"group out of bounds": {
			Sheet{Name: "S", Columns: []Column{{Header: "A", Value: FieldExtractor("A")}}, Groups: []HeaderGroup{{Title: "G", From: 0, To: 3}}},
			ErrInvalidGroup,
		},
		"overlapping groups": {
			Sheet{Name: "S", Columns: employeeColumns(), Groups: []HeaderGroup{{From: 0, To: 1}, {From: 1, To: 2}}},
			ErrInvalidGroup,
		},
		"missing extractor": {
			Sheet{Name: "S", Columns: []Column{{Header: "A"}}},
			ErrNoExtractor,
		},
		"empty name": {
			Sheet{Columns: employeeColumns()},
			ErrInvalidSheet,
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			p := track(employees())
			c.sheet.Data = p
			engine, err := renderFake(t, &Document{Sheets: []Sheet{c.sheet}})

			var we *WriteError
			require.True(t, errors.As(err, &we))
			assert.True(t, errors.Is(err, c.want), err.Error())
			assert.Equal(t, -1, we.Row)
			assert.Empty(t, engine.sheets)
			assert.Equal(t, 1, p.closes)
		})
	}
}

func TestRenderDuplicateSheetNames(t *testing.T) {
	doc := &Document{Sheets: []Sheet{{Name: "X"}, {Name: "X"}}}
	_, err := renderFake(t, doc)
	assert.True(t, errors.Is(err, ErrDuplicateSheet))
}

func TestRenderStyleLimit(t *testing.T) {
	cols := []Column{{
		Header:      "N",
		Value:       func(row interface{}) interface{} { return row },
		Conditional: func(raw interface{}) *Style { return &Style{Background: fmt.Sprintf("%06X", raw.(int))} },
	}}
	doc := &Document{Sheets: []Sheet{{Name: "Many", Columns: cols, Data: NewFuncDataProvider(10, func(i int) interface{} { return i })}}}

	_, err := renderFake(t, doc, WithMaxStyles(5))

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.True(t, errors.Is(err, ErrStyleLimit))
	assert.Equal(t, "Many", we.Sheet)
	assert.Equal(t, 6, we.Row)
}

func TestRenderLogsSheetEvents(t *testing.T) {
	var logs bytes.Buffer
	doc := &Document{Sheets: []Sheet{{Name: "Logged", Columns: employeeColumns(), Data: track(employees())}}}

	_, err := renderFake(t, doc, WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"sheet":"Logged"`)
	assert.Contains(t, logs.String(), `"rows":3`)
	assert.Contains(t, logs.String(), "document rendered")
}

func TestRenderLargeDataSetKeepsStylesBounded(t *testing.T) {
	if testing.Short() {
		t.Skip("large data set")
	}
	const rows = 200000
	cols := []Column{
		{Header: "ID", Value: func(row interface{}) interface{} { return row }},
		{Header: "Label", Value: func(row interface{}) interface{} { return fmt.Sprintf("row-%d", row) }},
		{Header: "Odd", Value: func(row interface{}) interface{} { return row.(int)%2 == 1 },
			Conditional: func(raw interface{}) *Style {
				if raw.(bool) {
					return &Style{Bold: On}
				}
				return nil
			}},
	}
	engine := newFakeEngine()
	engine.discard = true
	doc := &Document{
		BodyStyle: &Style{Border: BorderThin},
		Sheets: []Sheet{{
			Name:         "Big",
			Columns:      cols,
			AlternateRow: &Style{Background: "F2F2F2"},
			Data:         NewFuncDataProvider(rows, func(i int) interface{} { return i }),
		}},
	}

	err := Render(doc, &bytes.Buffer{}, WithEngine(engine.factory()))
	require.NoError(t, err)
	assert.Equal(t, rows+1, engine.rowCalls)
	assert.LessOrEqual(t, len(engine.styles), 4)
	assert.Equal(t, float64(len("row-199999")+2), engine.sheets[0].widths[1])
}

func TestRenderNilDocument(t *testing.T) {
	err := Render(nil, &bytes.Buffer{})
	var we *WriteError
	assert.True(t, errors.As(err, &we))
}
