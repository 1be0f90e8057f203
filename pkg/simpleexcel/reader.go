package simpleexcel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

// ErrMissingHeader is returned in strict mode when a field has no column.
var ErrMissingHeader = errors.New("header not found")

// headerScanRows bounds the header auto detection.
const headerScanRows = 10

type readConfig struct {
	headerRow int // 1-based, 0 detects
	strict    bool
}

// ReadOption configures ReadSheet and ReadMaps.
type ReadOption func(*readConfig)

// WithHeaderRow fixes the 1-based header row. By default the first of the
// top rows naming a known column is used, which skips group header rows.
func WithHeaderRow(n int) ReadOption {
	return func(c *readConfig) {
		if n > 0 {
			c.headerRow = n
		}
	}
}

// WithStrictHeaders fails when a struct field has no matching column.
func WithStrictHeaders() ReadOption {
	return func(c *readConfig) { c.strict = true }
}

// ReadSheet parses the rows of a sheet into out, a pointer to a slice of
// structs or struct pointers. Columns are matched to fields by the header of
// their excel tag or their field name. Cells that cannot be converted are
// reported as *ParseError values combined with multierr, the remaining rows
// are still appended. An empty sheet name selects the first sheet.
func ReadSheet(r io.Reader, sheet string, out interface{}, opts ...ReadOption) (err error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("out must be a pointer to a slice, got %T", out)
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()
	structType := elemType
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	fields, err := structFields(structType)
	if err != nil {
		return err
	}

	known := make(map[string]int, len(fields)*2)
	for i, f := range fields {
		known[normalizeHeader(f.tag.header)] = i
		if _, ok := known[normalizeHeader(f.name)]; !ok {
			known[normalizeHeader(f.name)] = i
		}
	}

	cfg := readConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var fieldAt []int // column -> field, -1 when unmapped
	var rowErrs error
	err = scanSheet(r, sheet, cfg, known, func(header []string) error {
		fieldAt = make([]int, len(header))
		seen := make(map[int]bool)
		for c, h := range header {
			fieldAt[c] = -1
			if i, ok := known[normalizeHeader(h)]; ok && !seen[i] {
				fieldAt[c] = i
				seen[i] = true
			}
		}
		if cfg.strict {
			for i, f := range fields {
				if !seen[i] {
					return fmt.Errorf("%w: %q", ErrMissingHeader, f.tag.header)
				}
			}
		}
		return nil
	}, func(rowNum int, header, cells []string) {
		item := reflect.New(structType).Elem()
		for c, text := range cells {
			if c >= len(fieldAt) || fieldAt[c] < 0 || text == "" {
				continue
			}
			f := fields[fieldAt[c]]
			if ferr := setCell(fieldByIndexAlloc(item, f.index), text); ferr != nil {
				rowErrs = multierr.Append(rowErrs, &ParseError{Row: rowNum, Column: header[c], Value: text, Err: ferr})
			}
		}
		if elemType.Kind() == reflect.Ptr {
			slice.Set(reflect.Append(slice, item.Addr()))
		} else {
			slice.Set(reflect.Append(slice, item))
		}
	})
	return multierr.Append(err, rowErrs)
}

// ReadMaps returns the rows of a sheet keyed by header text. Cells are raw,
// so dates read back as serial numbers.
func ReadMaps(r io.Reader, sheet string, opts ...ReadOption) ([]map[string]string, error) {
	cfg := readConfig{headerRow: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	var out []map[string]string
	err := scanSheet(r, sheet, cfg, nil, func([]string) error { return nil }, func(_ int, header, cells []string) {
		m := make(map[string]string, len(header))
		for c, h := range header {
			if h == "" {
				continue
			}
			if c < len(cells) {
				m[h] = cells[c]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	})
	return out, err
}

// scanSheet streams the sheet, calling onHeader once and onRow for every
// non blank row below the header.
func scanSheet(r io.Reader, sheet string, cfg readConfig, known map[string]int,
	onHeader func(header []string) error, onRow func(rowNum int, header, cells []string)) (err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(rows))

	var header []string
	for rowNum := 1; rows.Next(); rowNum++ {
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return fmt.Errorf("read row %d: %w", rowNum, err)
		}
		if header == nil {
			if !isHeaderRow(rowNum, cells, cfg.headerRow, known) {
				if cfg.headerRow == 0 && rowNum >= headerScanRows {
					return fmt.Errorf("%w: no header row in the first %d rows", ErrMissingHeader, headerScanRows)
				}
				continue
			}
			header = cells
			if header == nil {
				header = []string{}
			}
			if err := onHeader(header); err != nil {
				return err
			}
			continue
		}
		if blankRow(cells) {
			continue
		}
		onRow(rowNum, header, cells)
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if header == nil && cfg.headerRow > 0 {
		return fmt.Errorf("%w: sheet %q has no row %d", ErrMissingHeader, sheet, cfg.headerRow)
	}
	return nil
}

func isHeaderRow(rowNum int, cells []string, fixed int, known map[string]int) bool {
	if fixed > 0 {
		return rowNum == fixed
	}
	for _, c := range cells {
		if _, ok := known[normalizeHeader(c)]; ok {
			return true
		}
	}
	return false
}

// fieldByIndexAlloc walks index, allocating nil embedded struct pointers.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	dateType     = reflect.TypeOf(civil.Date{})
	dateTimeType = reflect.TypeOf(civil.DateTime{})
)

// setCell converts the raw text of a cell into dst.
func setCell(dst reflect.Value, text string) error {
	text = strings.TrimSpace(text)
	if dst.Kind() == reflect.Ptr {
		v := reflect.New(dst.Type().Elem())
		if err := setCell(v.Elem(), text); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}

	switch dst.Type() {
	case timeType:
		t, err := parseTime(text)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	case dateType:
		t, err := parseTime(text)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(civil.DateOf(t)))
		return nil
	case dateTimeType:
		t, err := parseTime(text)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(civil.DateTimeOf(t)))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(text)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := parseInteger(text)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := parseInteger(text)
		if err != nil {
			return err
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("%d overflows %s", n, dst.Type())
		}
		dst.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return err
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("%g overflows %s", f, dst.Type())
		}
		dst.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", dst.Type())
	}
	return nil
}

// parseInteger accepts integral floats such as "3.0" written by some engines.
func parseInteger(text string) (int64, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%s is not an integer", text)
	}
	return int64(f), nil
}

var timeLayouts = []string{
	time.RFC3339,
	defaultDateTimeLayout,
	defaultDateLayout,
	"2006/01/02",
	"01/02/2006",
}

// parseTime reads a serial number or one of the common text layouts.
func parseTime(text string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(text, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", text)
}
