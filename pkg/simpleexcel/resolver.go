package simpleexcel

// Resolver computes the effective style of header and body cells. It holds
// no mutable state and is built once per document.
type Resolver struct {
	header  *Style
	body    *Style
	columns map[string]ColumnStyle
}

// NewResolver captures the document wide style layers.
func NewResolver(doc *Document) *Resolver {
	return &Resolver{
		header:  doc.HeaderStyle,
		body:    doc.BodyStyle,
		columns: doc.ColumnStyles,
	}
}

// HeaderStyle merges global, column specific and inline header styles, the
// latter winning field by field.
func (r *Resolver) HeaderStyle(col *Column) *Style {
	var specific *Style
	if cs, ok := r.columns[col.Header]; ok {
		specific = cs.Header
	}
	return MergeAll(r.header, specific, col.HeaderStyle)
}

// GroupHeaderStyle returns the global header style. Group headers span
// several columns so column level overrides do not apply.
func (r *Resolver) GroupHeaderStyle() *Style {
	return r.header.clone()
}

// BodyStyle merges global, column specific and inline body styles.
func (r *Resolver) BodyStyle(col *Column) *Style {
	var specific *Style
	if cs, ok := r.columns[col.Header]; ok {
		specific = cs.Body
	}
	return MergeAll(r.body, specific, col.BodyStyle)
}

// FinalCellStyle resolves the style of one body cell. From lowest to highest
// priority: alternate row, body chain, conditional. A non empty dateFormat
// always replaces the number format so date values never show as serials.
func (r *Resolver) FinalCellStyle(col *Column, sheet *Sheet, alternate bool, dateFormat string, raw interface{}) *Style {
	var base *Style
	if alternate {
		base = sheet.AlternateRow
	}
	out := Merge(base, r.BodyStyle(col))

	if col.Conditional != nil {
		if cond := col.Conditional(raw); cond != nil {
			out = Merge(out, cond)
		}
	}

	if dateFormat != "" {
		if out == nil {
			out = &Style{}
		}
		out.NumFormat = dateFormat
	}
	return out
}
