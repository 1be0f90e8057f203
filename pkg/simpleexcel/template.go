package simpleexcel

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// ReportTemplate represents the YAML structure.
//
//	theme: blue
//	header_style: {bold: true}
//	sheets:
//	  - id: employees
//	    name: Employees
//	    freeze: {rows: 2}
//	    auto_filter: true
//	    groups:
//	      - {title: Pay, from: 1, to: 2}
//	    columns:
//	      - {field_name: Name, header: Name}
//	      - {field_name: Salary, header: Salary, format: "#,##0.00", conditional: negative_red}
//	      - {field_name: Bonus, header: Bonus, width: 12}
type ReportTemplate struct {
	Theme        string                         `yaml:"theme"`
	HeaderStyle  *StyleTemplate                 `yaml:"header_style"`
	BodyStyle    *StyleTemplate                 `yaml:"body_style"`
	ColumnStyles map[string]ColumnStyleTemplate `yaml:"column_styles"`
	Sheets       []SheetTemplate                `yaml:"sheets"`
}

// SheetTemplate represents a sheet in the YAML.
type SheetTemplate struct {
	// ID is the data binding key, defaulting to Name.
	ID                string           `yaml:"id"`
	Name              string           `yaml:"name"`
	Freeze            *FreezeTemplate  `yaml:"freeze"`
	AutoFilter        bool             `yaml:"auto_filter"`
	AlternateRowStyle *StyleTemplate   `yaml:"alternate_row_style"`
	Groups            []GroupTemplate  `yaml:"groups"`
	Columns           []ColumnTemplate `yaml:"columns"`
}

type FreezeTemplate struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

type GroupTemplate struct {
	Title string `yaml:"title"`
	From  int    `yaml:"from"`
	To    int    `yaml:"to"`
}

// ColumnTemplate defines a column. FieldName is a struct field name or map key.
type ColumnTemplate struct {
	FieldName   string         `yaml:"field_name"`
	Header      string         `yaml:"header"`
	Width       float64        `yaml:"width"`
	Format      string         `yaml:"format"`
	HeaderStyle *StyleTemplate `yaml:"header_style"`
	BodyStyle   *StyleTemplate `yaml:"body_style"`
	// Conditional and Formatter name registered functions.
	Conditional string         `yaml:"conditional"`
	Formatter   string         `yaml:"formatter"`
	Highlight   []RuleTemplate `yaml:"highlight"`
}

type ColumnStyleTemplate struct {
	Header *StyleTemplate `yaml:"header"`
	Body   *StyleTemplate `yaml:"body"`
}

// StyleTemplate is the YAML form of Style.
type StyleTemplate struct {
	Background string `yaml:"background"`
	FontColor  string `yaml:"font_color"`
	Bold       *bool  `yaml:"bold"`
	Italic     *bool  `yaml:"italic"`
	Align      string `yaml:"align"`
	Border     string `yaml:"border"`
	NumFormat  string `yaml:"num_format"`
}

// Style converts the template, failing on unknown alignments or borders.
func (t *StyleTemplate) Style() (*Style, error) {
	if t == nil {
		return nil, nil
	}
	s := &Style{
		Background: t.Background,
		FontColor:  t.FontColor,
		NumFormat:  t.NumFormat,
	}
	if t.Bold != nil {
		s.Bold = ToggleOf(*t.Bold)
	}
	if t.Italic != nil {
		s.Italic = ToggleOf(*t.Italic)
	}
	if t.Align != "" {
		if s.Align = ParseHAlign(t.Align); s.Align == AlignUnset {
			return nil, fmt.Errorf("unknown align %q", t.Align)
		}
	}
	if t.Border != "" {
		if s.Border = ParseBorderWeight(t.Border); s.Border == BorderUnset {
			return nil, fmt.Errorf("unknown border %q", t.Border)
		}
	}
	return s.clone(), nil
}

// TemplateExporter renders documents described by a ReportTemplate with data
// bound at runtime.
type TemplateExporter struct {
	template     *ReportTemplate
	data         map[string]interface{}
	formatters   map[string]func(interface{}) interface{}
	conditionals map[string]Conditional
}

// NewTemplateExporter parses a YAML template. Unknown keys are rejected.
func NewTemplateExporter(yamlConfig string) (*TemplateExporter, error) {
	if yamlConfig == "" {
		return nil, fmt.Errorf("yaml config is empty")
	}
	var tmpl ReportTemplate
	if err := yaml.UnmarshalStrict([]byte(yamlConfig), &tmpl); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return NewTemplateExporterFrom(&tmpl), nil
}

// NewTemplateExporterFrom wraps an already decoded template.
func NewTemplateExporterFrom(tmpl *ReportTemplate) *TemplateExporter {
	e := &TemplateExporter{
		template:     tmpl,
		data:         make(map[string]interface{}),
		formatters:   make(map[string]func(interface{}) interface{}),
		conditionals: make(map[string]Conditional),
	}
	for name, fn := range builtinConditionals {
		e.conditionals[name] = fn
	}
	return e
}

// LoadTemplateFile reads a YAML template from disk.
func LoadTemplateFile(path string) (*TemplateExporter, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return NewTemplateExporter(string(b))
}

// Template returns the decoded template.
func (e *TemplateExporter) Template() *ReportTemplate { return e.template }

// BindSheetData binds the rows of the sheet with the given id. data is a
// slice, a channel or a DataProvider.
func (e *TemplateExporter) BindSheetData(id string, data interface{}) *TemplateExporter {
	e.data[id] = data
	return e
}

// RegisterFormatter registers a value formatter by name.
// This allows referencing formatters by name in YAML configurations.
func (e *TemplateExporter) RegisterFormatter(name string, f func(interface{}) interface{}) *TemplateExporter {
	e.formatters[name] = f
	return e
}

// RegisterConditional registers a conditional style by name.
func (e *TemplateExporter) RegisterConditional(name string, fn Conditional) *TemplateExporter {
	e.conditionals[name] = fn
	return e
}

// Document builds the document from the template and the bound data. Bound
// providers are consumed by rendering, so rebind before building again.
func (e *TemplateExporter) Document() (*Document, error) {
	t := e.template
	doc := &Document{}

	var err error
	if doc.HeaderStyle, err = t.HeaderStyle.Style(); err != nil {
		return nil, fmt.Errorf("header_style: %w", err)
	}
	if doc.BodyStyle, err = t.BodyStyle.Style(); err != nil {
		return nil, fmt.Errorf("body_style: %w", err)
	}
	if len(t.ColumnStyles) > 0 {
		doc.ColumnStyles = make(map[string]ColumnStyle, len(t.ColumnStyles))
		for header, cs := range t.ColumnStyles {
			h, err := cs.Header.Style()
			if err != nil {
				return nil, fmt.Errorf("column_styles %q header: %w", header, err)
			}
			b, err := cs.Body.Style()
			if err != nil {
				return nil, fmt.Errorf("column_styles %q body: %w", header, err)
			}
			doc.ColumnStyles[header] = ColumnStyle{Header: h, Body: b}
		}
	}

	for i := range t.Sheets {
		sheet, err := e.buildSheet(&t.Sheets[i])
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", t.Sheets[i].Name, err)
		}
		doc.Sheets = append(doc.Sheets, sheet)
	}

	if t.Theme != "" {
		theme, err := ThemeByName(t.Theme)
		if err != nil {
			return nil, err
		}
		doc.ApplyTheme(theme)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *TemplateExporter) buildSheet(st *SheetTemplate) (Sheet, error) {
	sheet := Sheet{Name: st.Name, AutoFilter: st.AutoFilter}
	if st.Freeze != nil {
		sheet.Freeze = FreezePane{Rows: st.Freeze.Rows, Cols: st.Freeze.Cols}
	}
	alt, err := st.AlternateRowStyle.Style()
	if err != nil {
		return Sheet{}, fmt.Errorf("alternate_row_style: %w", err)
	}
	sheet.AlternateRow = alt

	id := st.ID
	if id == "" {
		id = st.Name
	}
	data := e.data[id]
	if sheet.Data, err = ProviderOf(data); err != nil {
		return Sheet{}, err
	}

	if len(st.Columns) == 0 && data != nil {
		// No column list: derive it from the struct tags of the bound rows.
		cols, groups, err := ColumnsOf(data)
		if err != nil {
			return Sheet{}, fmt.Errorf("sheet %s: columns: %w", id, err)
		}
		sheet.Columns, sheet.Groups = cols, groups
	}
	for i := range st.Columns {
		col, err := e.buildColumn(&st.Columns[i])
		if err != nil {
			return Sheet{}, fmt.Errorf("column %d: %w", i, err)
		}
		sheet.Columns = append(sheet.Columns, col)
	}
	for _, g := range st.Groups {
		sheet.Groups = append(sheet.Groups, HeaderGroup{Title: g.Title, From: g.From, To: g.To})
	}
	return sheet, nil
}

func (e *TemplateExporter) buildColumn(ct *ColumnTemplate) (Column, error) {
	if ct.FieldName == "" {
		return Column{}, fmt.Errorf("field_name is required")
	}
	col := Column{
		Header: ct.Header,
		Width:  ct.Width,
		Format: ct.Format,
		Value:  FieldExtractor(ct.FieldName),
	}
	if col.Header == "" {
		col.Header = ct.FieldName
	}

	var err error
	if col.HeaderStyle, err = ct.HeaderStyle.Style(); err != nil {
		return Column{}, fmt.Errorf("header_style: %w", err)
	}
	if col.BodyStyle, err = ct.BodyStyle.Style(); err != nil {
		return Column{}, fmt.Errorf("body_style: %w", err)
	}

	if ct.Formatter != "" {
		f, ok := e.formatters[ct.Formatter]
		if !ok {
			return Column{}, fmt.Errorf("formatter %q is not registered", ct.Formatter)
		}
		extract := col.Value
		col.Value = func(row interface{}) interface{} { return f(extract(row)) }
	}
	var named Conditional
	if ct.Conditional != "" {
		fn, ok := e.conditionals[ct.Conditional]
		if !ok {
			return Column{}, fmt.Errorf("conditional %q is not registered", ct.Conditional)
		}
		named = fn
	}
	rules, err := CompileRules(ct.Highlight)
	if err != nil {
		return Column{}, fmt.Errorf("highlight: %w", err)
	}
	col.Conditional = chainConditionals(named, rules)
	return col, nil
}

// ToWriter renders the template to w.
func (e *TemplateExporter) ToWriter(w io.Writer, opts ...Option) error {
	doc, err := e.Document()
	if err != nil {
		return err
	}
	return Render(doc, w, opts...)
}

// ExportToExcel generates the Excel file on disk. Rendering stops between
// rows once ctx is done.
func (e *TemplateExporter) ExportToExcel(ctx context.Context, path string, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := e.Document()
	if err != nil {
		return err
	}
	doc.WithContext(ctx)
	return RenderFile(doc, path, opts...)
}

var builtinConditionals = map[string]Conditional{
	"negative_red": func(raw interface{}) *Style {
		if v := ValueOf(raw); v.Kind == KindNumber && v.Number < 0 {
			return &Style{FontColor: "FF0000"}
		}
		return nil
	},
	"bool_highlight": func(raw interface{}) *Style {
		if v := ValueOf(raw); v.Kind == KindBool && v.Bool {
			return &Style{Background: "C6EFCE", FontColor: "006100"}
		}
		return nil
	},
}
