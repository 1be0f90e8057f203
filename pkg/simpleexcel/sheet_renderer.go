package simpleexcel

import "fmt"

// sheetRenderer writes one sheet in a single forward pass: headers, data,
// then column widths.
type sheetRenderer struct {
	sheet    *Sheet
	out      SheetWriter
	cache    *StyleCache
	resolver *Resolver
	widths   *WidthTracker
	cfg      *Config

	row      int // next output row
	dataRows int
}

func newSheetRenderer(sheet *Sheet, out SheetWriter, cache *StyleCache, resolver *Resolver, cfg *Config) *sheetRenderer {
	return &sheetRenderer{
		sheet:    sheet,
		out:      out,
		cache:    cache,
		resolver: resolver,
		widths:   NewWidthTracker(sheet.Columns, cfg.Width),
		cfg:      cfg,
	}
}

func (r *sheetRenderer) render() error {
	if err := r.writeHeaders(); err != nil {
		return writeError(r.sheet.Name, r.row, err)
	}
	if err := r.writeData(); err != nil {
		return writeError(r.sheet.Name, r.row, err)
	}
	if err := r.finalize(); err != nil {
		return writeError(r.sheet.Name, -1, err)
	}

	r.cfg.Logger.Debug().
		Str("sheet", r.sheet.Name).
		Int("rows", r.dataRows).
		Int("styles", r.cache.Len()).
		Int("fonts", r.cache.FontCount()).
		Msg("sheet rendered")
	return nil
}

func (r *sheetRenderer) writeHeaders() error {
	cols := r.sheet.Columns
	if len(cols) == 0 {
		return nil
	}

	if len(r.sheet.Groups) > 0 {
		h, err := r.handle(r.resolver.GroupHeaderStyle())
		if err != nil {
			return err
		}
		cells := make([]Cell, len(cols))
		for _, g := range r.sheet.Groups {
			cells[g.From] = Cell{Value: Text(g.Title), Style: h}
		}
		if err := r.out.WriteRow(r.row, cells); err != nil {
			return fmt.Errorf("write group header: %w", err)
		}
		for _, g := range r.sheet.Groups {
			if g.Span() <= 1 {
				continue
			}
			rng := CellRange{FirstRow: r.row, LastRow: r.row, FirstCol: g.From, LastCol: g.To}
			if err := r.out.MergeCells(rng); err != nil {
				return fmt.Errorf("merge group %q: %w", g.Title, err)
			}
		}
		r.row++
	}

	cells := make([]Cell, len(cols))
	for i := range cols {
		h, err := r.handle(r.resolver.HeaderStyle(&cols[i]))
		if err != nil {
			return err
		}
		cells[i] = Cell{Value: Text(cols[i].Header), Style: h}
	}
	if err := r.out.WriteRow(r.row, cells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	r.row++
	return nil
}

func (r *sheetRenderer) writeData() error {
	data := r.sheet.Data
	if data == nil {
		return nil
	}

	cols := r.sheet.Columns
	cells := make([]Cell, len(cols))
	alternating := r.sheet.AlternateRow != nil

	for i := 0; data.Next(); i++ {
		item := data.Row()
		alt := alternating && i%2 == 0

		for j := range cols {
			col := &cols[j]
			raw := col.Value(item)
			v := ValueOf(raw)

			style := r.resolver.FinalCellStyle(col, r.sheet, alt, r.dateFormat(col, v), raw)
			if v.Kind == KindNumber && col.Format != "" && (style == nil || style.NumFormat == "") {
				style = Merge(style, &Style{NumFormat: col.Format})
			}
			h, err := r.handle(style)
			if err != nil {
				return err
			}
			cells[j] = Cell{Value: v, Style: h}
			r.widths.Track(j, v.String())
		}

		r.dataRows++
		if len(cols) == 0 {
			continue
		}
		if err := r.out.WriteRow(r.row, cells); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		r.row++
	}
	if err := data.Err(); err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	return nil
}

func (r *sheetRenderer) finalize() error {
	for j := range r.sheet.Columns {
		col := &r.sheet.Columns[j]
		w := col.Width
		if col.AutoWidth() {
			var tracked bool
			if w, tracked = r.widths.FinalWidth(j); !tracked {
				w = r.cfg.DefaultWidth
			}
		}
		if err := r.out.SetColumnWidth(j, w); err != nil {
			return fmt.Errorf("set width of %q: %w", col.Header, err)
		}
	}
	return nil
}

// dateFormat returns the structural number format of date values, "" for
// anything else.
func (r *sheetRenderer) dateFormat(col *Column, v CellValue) string {
	switch {
	case !v.IsDate():
		return ""
	case col.Format != "":
		return col.Format
	case v.Kind == KindDate:
		return r.cfg.DateFormat
	}
	return r.cfg.DateTimeFormat
}

func (r *sheetRenderer) handle(s *Style) (StyleHandle, error) {
	switch {
	case s == nil:
		return 0, nil
	case *s == Style{NumFormat: r.cfg.DateFormat}:
		return r.cache.DateStyle()
	case *s == Style{NumFormat: r.cfg.DateTimeFormat}:
		return r.cache.DateTimeStyle()
	}
	return r.cache.GetOrCreate(*s)
}
