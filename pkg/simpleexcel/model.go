package simpleexcel

import "fmt"

// Document is the input of Render. It is treated as read-only.
type Document struct {
	Sheets []Sheet

	// HeaderStyle and BodyStyle apply to every sheet.
	HeaderStyle *Style
	BodyStyle   *Style
	// ColumnStyles holds per column overrides keyed by header text.
	ColumnStyles map[string]ColumnStyle
}

// ColumnStyle overrides the header and body style of every column sharing a
// header text.
type ColumnStyle struct {
	Header *Style
	Body   *Style
}

// Sheet is a named table.
type Sheet struct {
	Name    string
	Columns []Column
	Groups  []HeaderGroup
	// Data is consumed once, forward only.
	Data         DataProvider
	Freeze       FreezePane
	AutoFilter   bool
	AlternateRow *Style
}

// FreezePane locks the top Rows rows and the left Cols columns.
type FreezePane struct {
	Rows int
	Cols int
}

// HeaderGroup is a merged super-header over the columns From..To inclusive.
type HeaderGroup struct {
	Title string
	From  int
	To    int
}

// Span returns the number of columns covered.
func (g HeaderGroup) Span() int { return g.To - g.From + 1 }

// Conditional computes a style override from a cell's raw value. It returns
// nil when no override applies.
type Conditional func(raw interface{}) *Style

// Extractor returns the raw value of a column for one row.
type Extractor func(row interface{}) interface{}

// Column describes one column of a sheet.
type Column struct {
	// Header is shown in the header row and is the lookup key of
	// Document.ColumnStyles. It must be unique within a sheet.
	Header string
	// Width is the fixed width in characters, 0 means auto width.
	Width float64
	// Format is the number or date format of the values, independent of styles.
	Format      string
	HeaderStyle *Style
	BodyStyle   *Style
	Conditional Conditional
	Value       Extractor
}

// AutoWidth reports whether the column width is computed from its content.
func (c *Column) AutoWidth() bool { return c.Width == 0 }

// Validate checks the structural invariants the renderer relies on.
func (d *Document) Validate() error {
	names := make(map[string]bool, len(d.Sheets))
	for i := range d.Sheets {
		s := &d.Sheets[i]
		if s.Name == "" {
			return fmt.Errorf("%w: sheet %d has no name", ErrInvalidSheet, i)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateSheet, s.Name)
		}
		names[s.Name] = true
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	return nil
}

// Validate checks column and header group invariants of one sheet.
func (s *Sheet) Validate() error {
	headers := make(map[string]int, len(s.Columns))
	for i := range s.Columns {
		c := &s.Columns[i]
		if j, ok := headers[c.Header]; ok {
			return fmt.Errorf("%w: %q at columns %d and %d", ErrDuplicateHeader, c.Header, j, i)
		}
		headers[c.Header] = i
		if c.Value == nil {
			return fmt.Errorf("%w: %q", ErrNoExtractor, c.Header)
		}
		if c.Width < 0 {
			return fmt.Errorf("%w: column %q has negative width", ErrInvalidSheet, c.Header)
		}
	}
	if s.Freeze.Rows < 0 || s.Freeze.Cols < 0 {
		return fmt.Errorf("%w: negative freeze pane", ErrInvalidSheet)
	}

	next := 0
	for i, g := range s.Groups {
		switch {
		case g.From < next:
			return fmt.Errorf("%w: group %d %q overlaps or is out of order", ErrInvalidGroup, i, g.Title)
		case g.To < g.From:
			return fmt.Errorf("%w: group %d %q ends before it starts", ErrInvalidGroup, i, g.Title)
		case g.To >= len(s.Columns):
			return fmt.Errorf("%w: group %d %q exceeds %d columns", ErrInvalidGroup, i, g.Title, len(s.Columns))
		}
		next = g.To + 1
	}
	return nil
}

// headerRows returns how many rows the header phase emits.
func (s *Sheet) headerRows() int {
	switch {
	case len(s.Columns) == 0:
		return 0
	case len(s.Groups) > 0:
		return 2
	}
	return 1
}

// layout derives the freeze pane and filter settings of the sheet.
func (s *Sheet) layout() SheetLayout {
	var l SheetLayout
	if s.Freeze.Rows > 0 || s.Freeze.Cols > 0 {
		l.FreezeRows, l.FreezeCols = s.Freeze.Rows, s.Freeze.Cols
	}
	if s.AutoFilter && len(s.Columns) > 0 {
		row := 0
		if len(s.Groups) > 0 {
			row = 1
		}
		l.Filter = &CellRange{FirstRow: row, LastRow: row, FirstCol: 0, LastCol: len(s.Columns) - 1}
	}
	return l
}
