package simpleexcel

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// CellKind enumerates the value types a cell can hold.
type CellKind uint8

const (
	KindBlank CellKind = iota
	KindText
	KindNumber
	KindBool
	KindDate
	KindDateTime
	KindFormula
)

// Formula marks a string as a cell formula. It is written verbatim, a leading
// '=' is dropped.
type Formula string

// CellValue is a raw value classified once at extraction time.
type CellValue struct {
	Kind     CellKind
	Text     string // KindText and KindFormula
	Number   float64
	Bool     bool
	DateTime civil.DateTime // KindDate uses the Date part only
}

const (
	defaultDateLayout     = "2006-01-02"
	defaultDateTimeLayout = "2006-01-02 15:04:05"
)

var excelEpoch = civil.Date{Year: 1899, Month: time.December, Day: 30}

// Serial returns the spreadsheet serial number of a date or date-time value
// in the 1900 date system.
func (v CellValue) Serial() float64 {
	days := float64(v.DateTime.Date.DaysSince(excelEpoch))
	if v.Kind == KindDate {
		return days
	}
	t := v.DateTime.Time
	secs := float64(t.Hour*3600+t.Minute*60+t.Second) + float64(t.Nanosecond)/1e9
	return days + secs/86400
}

// String returns the display text used for width tracking.
func (v CellValue) String() string {
	switch v.Kind {
	case KindText, KindFormula:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return v.DateTime.Date.In(time.UTC).Format(defaultDateLayout)
	case KindDateTime:
		return v.DateTime.In(time.UTC).Format(defaultDateTimeLayout)
	}
	return ""
}

// IsDate reports whether the value carries a date or a date-time.
func (v CellValue) IsDate() bool {
	return v.Kind == KindDate || v.Kind == KindDateTime
}

// Text, Number and the other constructors build classified values directly.
func Text(s string) CellValue { return CellValue{Kind: KindText, Text: s} }
func Number(f float64) CellValue { return CellValue{Kind: KindNumber, Number: f} }
func Bool(b bool) CellValue { return CellValue{Kind: KindBool, Bool: b} }
func Blank() CellValue { return CellValue{} }
func FormulaValue(f string) CellValue { return CellValue{Kind: KindFormula, Text: strings.TrimPrefix(f, "=")} }

func DateValue(d civil.Date) CellValue {
	return CellValue{Kind: KindDate, DateTime: civil.DateTime{Date: d}}
}

func DateTimeValue(dt civil.DateTime) CellValue {
	return CellValue{Kind: KindDateTime, DateTime: dt}
}

// ValueOf classifies an arbitrary raw value. Pointers are dereferenced,
// driver.Valuer implementations are unwrapped and anything without a natural
// cell type is converted through fmt.Sprint.
func ValueOf(raw interface{}) CellValue {
	if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return Blank()
		}
		return ValueOf(rv.Elem().Interface())
	}

	switch v := raw.(type) {
	case nil:
		return Blank()
	case CellValue:
		return v
	case string:
		return Text(v)
	case []byte:
		return Text(string(v))
	case Formula:
		return FormulaValue(string(v))
	case bool:
		return Bool(v)
	case int:
		return Number(float64(v))
	case int8:
		return Number(float64(v))
	case int16:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case uint:
		return Number(float64(v))
	case uint8:
		return Number(float64(v))
	case uint16:
		return Number(float64(v))
	case uint32:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case float32:
		return Number(float64(v))
	case float64:
		return Number(v)
	case civil.Date:
		if !v.IsValid() {
			return Blank()
		}
		return DateValue(v)
	case civil.DateTime:
		if !v.IsValid() {
			return Blank()
		}
		return DateTimeValue(v)
	case time.Time:
		if v.IsZero() {
			return Blank()
		}
		return DateTimeValue(civil.DateTimeOf(v))
	case driver.Valuer:
		inner, err := v.Value()
		if err != nil || inner == nil {
			return Blank()
		}
		return ValueOf(inner)
	case fmt.Stringer:
		return Text(v.String())
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.String:
		return Text(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float())
	}
	return Text(fmt.Sprint(raw))
}
