package simpleexcel

import (
	"errors"
	"io"
)

// fakeEngine records everything the renderer asks of an engine.
type fakeEngine struct {
	fonts  []Font
	styles []Style
	// styleFonts[i] is the font handle passed with styles[i].
	styleFonts []FontHandle
	sheets     []*fakeSheet
	closed     bool
	written    bool

	failStyleAt int // 1-based NewStyle call that fails, 0 never
	failRowAt   int // 1-based WriteRow call that fails, 0 never
	discard     bool
	rowCalls    int
}

type fakeSheet struct {
	engine *fakeEngine
	name   string
	layout SheetLayout
	rows   map[int][]Cell
	order  []int
	merges []CellRange
	widths map[int]float64
	closed bool
}

func newFakeEngine() *fakeEngine { return &fakeEngine{} }

func (e *fakeEngine) factory() EngineFactory {
	return func(*Config) (Engine, error) { return e, nil }
}

func (e *fakeEngine) NewSheet(name string, layout SheetLayout) (SheetWriter, error) {
	s := &fakeSheet{
		engine: e,
		name:   name,
		layout: layout,
		rows:   make(map[int][]Cell),
		widths: make(map[int]float64),
	}
	e.sheets = append(e.sheets, s)
	return s, nil
}

func (e *fakeEngine) NewFont(f Font) (FontHandle, error) {
	e.fonts = append(e.fonts, f)
	return FontHandle(len(e.fonts)), nil
}

func (e *fakeEngine) NewStyle(s Style, font FontHandle) (StyleHandle, error) {
	if e.failStyleAt > 0 && len(e.styles)+1 == e.failStyleAt {
		return 0, errors.New("style table full")
	}
	e.styles = append(e.styles, s)
	e.styleFonts = append(e.styleFonts, font)
	return StyleHandle(len(e.styles)), nil
}

func (e *fakeEngine) WriteTo(w io.Writer) error {
	e.written = true
	_, err := io.WriteString(w, "fake")
	return err
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

// style returns the style registered under h, the zero style for 0.
func (e *fakeEngine) style(h StyleHandle) Style {
	if h == 0 {
		return Style{}
	}
	return e.styles[h-1]
}

func (e *fakeEngine) sheet(name string) *fakeSheet {
	for _, s := range e.sheets {
		if s.name == name {
			return s
		}
	}
	return nil
}

func (s *fakeSheet) WriteRow(row int, cells []Cell) error {
	s.engine.rowCalls++
	if s.engine.failRowAt > 0 && s.engine.rowCalls == s.engine.failRowAt {
		return errors.New("disk full")
	}
	if s.engine.discard {
		return nil
	}
	s.rows[row] = append([]Cell(nil), cells...)
	s.order = append(s.order, row)
	return nil
}

func (s *fakeSheet) MergeCells(r CellRange) error {
	s.merges = append(s.merges, r)
	return nil
}

func (s *fakeSheet) SetColumnWidth(col int, width float64) error {
	s.widths[col] = width
	return nil
}

func (s *fakeSheet) Close() error {
	s.closed = true
	return nil
}

// trackingProvider counts Close calls on top of a slice provider.
type trackingProvider struct {
	DataProvider
	closes int
	err    error
}

func (p *trackingProvider) Close() error {
	p.closes++
	return p.DataProvider.Close()
}

func (p *trackingProvider) Err() error {
	if p.err != nil {
		return p.err
	}
	return p.DataProvider.Err()
}

func track(data interface{}) *trackingProvider {
	p, err := NewSliceDataProvider(data)
	if err != nil {
		panic(err)
	}
	return &trackingProvider{DataProvider: p}
}
