package simpleexcel

import (
	"fmt"
	"reflect"
	"sort"
)

// ExpandMapField scans a slice of structs for the keys of the map field
// mapFieldName and returns one column per key, sorted by key. Rows missing a
// key produce blank cells.
//
// All rows are scanned, so this only suits data that is already in memory.
func ExpandMapField(data interface{}, mapFieldName string) ([]Column, error) {
	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Slice {
		return nil, fmt.Errorf("data must be a slice")
	}

	elemType := val.Type().Elem()
	for elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("slice element must be a struct")
	}
	field, ok := elemType.FieldByName(mapFieldName)
	if !ok {
		return nil, fmt.Errorf("field %s not found in struct", mapFieldName)
	}
	if field.Type.Kind() != reflect.Map || field.Type.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("field %s is not a map with string keys", mapFieldName)
	}

	keysSet := make(map[string]bool)
	for i := 0; i < val.Len(); i++ {
		item := reflect.Indirect(val.Index(i))
		if !item.IsValid() {
			continue
		}
		m := item.FieldByIndex(field.Index)
		if m.IsNil() {
			continue
		}
		iter := m.MapRange()
		for iter.Next() {
			keysSet[iter.Key().String()] = true
		}
	}

	keys := make([]string, 0, len(keysSet))
	for k := range keysSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mapOf := indexExtractor(field.Index)
	cols := make([]Column, len(keys))
	for i, key := range keys {
		entry := FieldExtractor(key)
		cols[i] = Column{
			Header: key,
			Value: func(row interface{}) interface{} {
				return entry(mapOf(row))
			},
		}
	}
	return cols, nil
}

// ExpandColumns replaces the column whose header is placeholder with
// expanded, keeping the placeholder's width, format and styles.
func ExpandColumns(cols []Column, placeholder string, expanded []Column) []Column {
	var out []Column
	for _, col := range cols {
		if col.Header != placeholder {
			out = append(out, col)
			continue
		}
		for _, e := range expanded {
			c := col
			c.Header = e.Header
			c.Value = e.Value
			out = append(out, c)
		}
	}
	return out
}
