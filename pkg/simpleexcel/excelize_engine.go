package simpleexcel

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// ExcelizeEngine renders through excelize stream writers.
type ExcelizeEngine struct {
	file   *excelize.File
	cfg    *Config
	fonts  []*excelize.Font
	sheets int
	// widths holds column widths per sheet, injected when the package is written.
	widths map[string]map[int]float64
}

// NewExcelizeEngine is the default EngineFactory.
func NewExcelizeEngine(cfg *Config) (Engine, error) {
	if cfg == nil {
		def := DefaultConfig()
		cfg = &def
	}
	return &ExcelizeEngine{
		file:   excelize.NewFile(),
		cfg:    cfg,
		widths: make(map[string]map[int]float64),
	}, nil
}

func (e *ExcelizeEngine) NewSheet(name string, layout SheetLayout) (SheetWriter, error) {
	if e.sheets == 0 {
		if err := e.file.SetSheetName(defaultSheet, name); err != nil {
			return nil, fmt.Errorf("invalid sheet name %q: %w", name, err)
		}
	} else if _, err := e.file.NewSheet(name); err != nil {
		return nil, err
	}
	e.sheets++

	// Sheet views and filters must exist before the stream writer takes over.
	if err := applyLayout(e.file, name, layout); err != nil {
		return nil, err
	}
	sw, err := e.file.NewStreamWriter(name)
	if err != nil {
		return nil, err
	}

	window := e.cfg.RowWindow
	if window <= 0 {
		window = DefaultRowWindow
	}
	return &excelizeSheet{
		engine:  e,
		name:    name,
		sw:      sw,
		window:  window,
		pending: make([]pendingRow, 0, window+1),
	}, nil
}

func applyLayout(f *excelize.File, sheet string, l SheetLayout) error {
	if l.FreezeRows > 0 || l.FreezeCols > 0 {
		topLeft, err := excelize.CoordinatesToCellName(l.FreezeCols+1, l.FreezeRows+1)
		if err != nil {
			return err
		}
		pane := "bottomRight"
		switch {
		case l.FreezeCols == 0:
			pane = "bottomLeft"
		case l.FreezeRows == 0:
			pane = "topRight"
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			XSplit:      l.FreezeCols,
			YSplit:      l.FreezeRows,
			TopLeftCell: topLeft,
			ActivePane:  pane,
			Selection: []excelize.Selection{
				{SQRef: topLeft, ActiveCell: topLeft, Pane: pane},
			},
		}); err != nil {
			return fmt.Errorf("freeze panes: %w", err)
		}
	}

	if l.Filter != nil {
		ref, err := rangeRef(*l.Filter)
		if err != nil {
			return err
		}
		if err := f.AutoFilter(sheet, ref, nil); err != nil {
			return fmt.Errorf("auto filter %s: %w", ref, err)
		}
	}
	return nil
}

func (e *ExcelizeEngine) NewFont(f Font) (FontHandle, error) {
	e.fonts = append(e.fonts, &excelize.Font{
		Bold:   f.Bold,
		Italic: f.Italic,
		Color:  normalizeColor(f.Color),
	})
	return FontHandle(len(e.fonts)), nil
}

func (e *ExcelizeEngine) NewStyle(s Style, font FontHandle) (StyleHandle, error) {
	style := &excelize.Style{}
	if font > 0 {
		if int(font) > len(e.fonts) {
			return 0, fmt.Errorf("unknown font handle %d", font)
		}
		style.Font = e.fonts[font-1]
	}
	if s.Background != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{normalizeColor(s.Background)},
			Pattern: 1,
		}
	}
	if s.Align != AlignUnset {
		style.Alignment = &excelize.Alignment{Horizontal: s.Align.String()}
	}
	if b := borderIndex(s.Border); b > 0 {
		for _, side := range []string{"left", "top", "right", "bottom"} {
			style.Border = append(style.Border, excelize.Border{Type: side, Color: "000000", Style: b})
		}
	}
	if s.NumFormat != "" {
		format := s.NumFormat
		style.CustomNumFmt = &format
	}

	id, err := e.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	return StyleHandle(id), nil
}

// borderIndex maps a weight to the excelize border style index.
func borderIndex(b BorderWeight) int {
	switch b {
	case BorderThin:
		return 1
	case BorderMedium:
		return 2
	case BorderThick:
		return 5
	}
	return 0
}

func (e *ExcelizeEngine) WriteTo(w io.Writer) error {
	if len(e.widths) == 0 {
		return e.file.Write(w)
	}

	tmp, err := os.CreateTemp(e.cfg.TempDir, "excelstream-*.xlsx")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := e.file.Write(tmp); err != nil {
		return err
	}
	info, err := tmp.Stat()
	if err != nil {
		return err
	}
	return injectColumnWidths(w, tmp, info.Size(), e.widths)
}

func (e *ExcelizeEngine) Close() error {
	return e.file.Close()
}

type pendingRow struct {
	row    int
	values []interface{}
}

// excelizeSheet buffers a window of rows in front of the stream writer.
type excelizeSheet struct {
	engine  *ExcelizeEngine
	name    string
	sw      *excelize.StreamWriter
	window  int
	pending []pendingRow
	free    [][]interface{}
	closed  bool
}

func (s *excelizeSheet) WriteRow(row int, cells []Cell) error {
	if s.closed {
		return fmt.Errorf("sheet %q is closed", s.name)
	}
	values := s.take(len(cells))
	for i, c := range cells {
		values[i] = toExcelize(c)
	}
	s.pending = append(s.pending, pendingRow{row: row, values: values})
	if len(s.pending) > s.window {
		return s.flushOldest()
	}
	return nil
}

func (s *excelizeSheet) take(n int) []interface{} {
	if k := len(s.free); k > 0 {
		v := s.free[k-1]
		s.free = s.free[:k-1]
		if cap(v) >= n {
			return v[:n]
		}
	}
	return make([]interface{}, n)
}

func (s *excelizeSheet) flushOldest() error {
	p := s.pending[0]
	copy(s.pending, s.pending[1:])
	s.pending = s.pending[:len(s.pending)-1]

	cell, err := excelize.CoordinatesToCellName(1, p.row+1)
	if err != nil {
		return err
	}
	if err := s.sw.SetRow(cell, p.values); err != nil {
		return err
	}
	for i := range p.values {
		p.values[i] = nil
	}
	s.free = append(s.free, p.values)
	return nil
}

func toExcelize(c Cell) interface{} {
	v := c.Value
	switch v.Kind {
	case KindBlank:
		if c.Style == 0 {
			return nil
		}
		return excelize.Cell{StyleID: int(c.Style)}
	case KindFormula:
		return excelize.Cell{StyleID: int(c.Style), Formula: v.Text}
	case KindText:
		return excelize.Cell{StyleID: int(c.Style), Value: v.Text}
	case KindNumber:
		return excelize.Cell{StyleID: int(c.Style), Value: v.Number}
	case KindBool:
		return excelize.Cell{StyleID: int(c.Style), Value: v.Bool}
	}
	return excelize.Cell{StyleID: int(c.Style), Value: v.Serial()}
}

func (s *excelizeSheet) MergeCells(r CellRange) error {
	ref, err := rangeRef(r)
	if err != nil {
		return err
	}
	from, to, _ := strings.Cut(ref, ":")
	return s.sw.MergeCell(from, to)
}

func (s *excelizeSheet) SetColumnWidth(col int, width float64) error {
	if col < 0 {
		return fmt.Errorf("invalid column %d", col)
	}
	m := s.engine.widths[s.name]
	if m == nil {
		m = make(map[int]float64)
		s.engine.widths[s.name] = m
	}
	m[col] = width
	return nil
}

func (s *excelizeSheet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	for len(s.pending) > 0 {
		if err := s.flushOldest(); err != nil {
			return err
		}
	}
	s.free = nil
	return s.sw.Flush()
}

// rangeRef formats r as "A1:C3".
func rangeRef(r CellRange) (string, error) {
	from, err := excelize.CoordinatesToCellName(r.FirstCol+1, r.FirstRow+1)
	if err != nil {
		return "", err
	}
	to, err := excelize.CoordinatesToCellName(r.LastCol+1, r.LastRow+1)
	if err != nil {
		return "", err
	}
	return from + ":" + to, nil
}
