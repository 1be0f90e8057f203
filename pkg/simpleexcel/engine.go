package simpleexcel

import "io"

// StyleHandle references a style registered with an Engine. Zero means the
// engine default style.
type StyleHandle int

// FontHandle references a font registered with an Engine. Zero means no font.
type FontHandle int

// Font holds the attributes fonts are deduplicated on.
type Font struct {
	Bold   bool
	Italic bool
	Color  string
}

func fontOf(s Style) Font {
	return Font{Bold: s.Bold.Bool(), Italic: s.Italic.Bool(), Color: s.FontColor}
}

// Cell is one value written by a SheetWriter.
type Cell struct {
	Value CellValue
	Style StyleHandle
}

// CellRange is an inclusive, 0-based rectangle of cells.
type CellRange struct {
	FirstRow, LastRow int
	FirstCol, LastCol int
}

// SheetLayout holds the sheet level settings that are fixed before any row is
// written.
type SheetLayout struct {
	// FreezeRows and FreezeCols lock the top rows and left columns.
	FreezeRows, FreezeCols int
	// Filter is the auto-filter range, nil for none.
	Filter *CellRange
}

// Engine is the spreadsheet backend a document is rendered through.
type Engine interface {
	// NewSheet appends a sheet. Sheets are written one at a time and in order.
	NewSheet(name string, layout SheetLayout) (SheetWriter, error)
	NewFont(f Font) (FontHandle, error)
	NewStyle(s Style, font FontHandle) (StyleHandle, error)
	// WriteTo writes the complete package once all sheets are closed.
	WriteTo(w io.Writer) error
	// Close releases temporary resources. Safe to call after WriteTo.
	Close() error
}

// SheetWriter receives the rows of one sheet in ascending order.
type SheetWriter interface {
	// WriteRow writes the cells of a 0-based row. The engine must not keep a
	// reference to cells after returning.
	WriteRow(row int, cells []Cell) error
	MergeCells(r CellRange) error
	SetColumnWidth(col int, width float64) error
	Close() error
}

// EngineFactory creates the engine used for one render call.
type EngineFactory func(cfg *Config) (Engine, error)
