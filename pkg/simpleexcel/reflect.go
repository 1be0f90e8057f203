package simpleexcel

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// TagName is the struct tag read by ColumnsOf and ReadSheet.
//
//	Name   string  `excel:"header:Full name;width:30"`
//	Salary float64 `excel:"header:Salary;format:#,##0.00;group:Pay"`
//	Secret string  `excel:"-"`
//
// Options are separated by ';' so formats may contain commas. A bare first
// option is taken as the header.
const TagName = "excel"

type fieldTag struct {
	header string
	width  float64
	format string
	group  string
	skip   bool
}

func parseTag(tag string) (fieldTag, error) {
	var ft fieldTag
	if tag == "-" {
		ft.skip = true
		return ft, nil
	}
	for i, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			if i == 0 {
				ft.header = part
				continue
			}
			return ft, fmt.Errorf("malformed tag option %q", part)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "header":
			ft.header = value
		case "width":
			w, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return ft, fmt.Errorf("width %q: %w", value, err)
			}
			ft.width = w
		case "format":
			ft.format = value
		case "group":
			ft.group = value
		default:
			return ft, fmt.Errorf("unknown tag option %q", key)
		}
	}
	return ft, nil
}

type structField struct {
	name  string
	index []int
	tag   fieldTag
}

// structFields lists exported fields, flattening embedded structs.
func structFields(t reflect.Type) ([]structField, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct, got %s", t.Kind())
	}

	var out []structField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue
		}
		tag, err := parseTag(f.Tag.Get(TagName))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if tag.skip {
			continue
		}

		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if f.Anonymous && ft.Kind() == reflect.Struct && f.Tag.Get(TagName) == "" {
			nested, err := structFields(ft)
			if err != nil {
				return nil, err
			}
			for _, n := range nested {
				n.index = append([]int{i}, n.index...)
				out = append(out, n)
			}
			continue
		}
		if f.PkgPath != "" {
			continue
		}

		if tag.header == "" {
			tag.header = f.Name
			if js := f.Tag.Get("json"); js != "" && js != "-" {
				if name, _, _ := strings.Cut(js, ","); name != "" {
					tag.header = name
				}
			}
		}
		out = append(out, structField{name: f.Name, index: []int{i}, tag: tag})
	}
	return out, nil
}

// ColumnsOf derives columns and header groups from a struct, a pointer to one
// or a slice of them. Consecutive fields sharing a group option form a
// header group.
func ColumnsOf(sample interface{}) ([]Column, []HeaderGroup, error) {
	t := reflect.TypeOf(sample)
	if t == nil {
		return nil, nil, fmt.Errorf("sample cannot be nil")
	}
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}

	fields, err := structFields(t)
	if err != nil {
		return nil, nil, err
	}

	cols := make([]Column, len(fields))
	var groups []HeaderGroup
	for i, f := range fields {
		cols[i] = Column{
			Header: f.tag.header,
			Width:  f.tag.width,
			Format: f.tag.format,
			Value:  indexExtractor(f.index),
		}
		if f.tag.group == "" {
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].Title == f.tag.group && groups[n-1].To == i-1 {
			groups[n-1].To = i
			continue
		}
		groups = append(groups, HeaderGroup{Title: f.tag.group, From: i, To: i})
	}
	return cols, groups, nil
}

// SheetOf builds a sheet over a slice of structs using ColumnsOf.
func SheetOf(name string, data interface{}) (Sheet, error) {
	cols, groups, err := ColumnsOf(data)
	if err != nil {
		return Sheet{}, err
	}
	p, err := NewSliceDataProvider(data)
	if err != nil {
		return Sheet{}, err
	}
	return Sheet{Name: name, Columns: cols, Groups: groups, Data: p}, nil
}

func indexExtractor(index []int) Extractor {
	return func(row interface{}) interface{} {
		v := reflect.ValueOf(row)
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil
		}
		f, err := v.FieldByIndexErr(index)
		if err != nil {
			return nil
		}
		return f.Interface()
	}
}

// FieldExtractor reads a struct field or a map entry by name. Field lookups
// are cached per row type.
func FieldExtractor(name string) Extractor {
	var cache sync.Map // reflect.Type -> int
	return func(row interface{}) interface{} {
		v := reflect.ValueOf(row)
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}

		switch v.Kind() {
		case reflect.Struct:
			t := v.Type()
			idx, ok := cache.Load(t)
			if !ok {
				i := -1
				if f, found := t.FieldByName(name); found && len(f.Index) == 1 {
					i = f.Index[0]
				}
				idx, _ = cache.LoadOrStore(t, i)
			}
			if i := idx.(int); i >= 0 {
				return v.Field(i).Interface()
			}
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return nil
			}
			val := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
			if val.IsValid() {
				return val.Interface()
			}
		}
		return nil
	}
}

// MapColumns creates one auto width column per key for rows of
// map[string]interface{}.
func MapColumns(keys ...string) []Column {
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Header: k, Value: FieldExtractor(k)}
	}
	return cols
}
