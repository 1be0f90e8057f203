package simpleexcel

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestResolverHeaderPrecedence(t *testing.T) {
	doc := &Document{
		HeaderStyle: &Style{Bold: On, Background: "111111", Align: AlignLeft},
		ColumnStyles: map[string]ColumnStyle{
			"Salary": {Header: &Style{Background: "222222", Italic: On}},
		},
	}
	col := &Column{Header: "Salary", HeaderStyle: &Style{Italic: Off}}

	got := NewResolver(doc).HeaderStyle(col)

	assert.Equal(t, &Style{Bold: On, Background: "222222", Align: AlignLeft, Italic: Off}, got)
}

func TestResolverBodyWithoutLayers(t *testing.T) {
	r := NewResolver(&Document{})
	assert.Nil(t, r.BodyStyle(&Column{Header: "x"}))
	assert.Nil(t, r.FinalCellStyle(&Column{Header: "x"}, &Sheet{}, false, "", 1))
}

func TestResolverColumnStylesMatchByHeader(t *testing.T) {
	doc := &Document{ColumnStyles: map[string]ColumnStyle{"Other": {Body: &Style{Bold: On}}}}
	assert.Nil(t, NewResolver(doc).BodyStyle(&Column{Header: "Name"}))
}

func TestResolverGroupHeaderIgnoresColumns(t *testing.T) {
	doc := &Document{
		HeaderStyle:  &Style{Bold: On},
		ColumnStyles: map[string]ColumnStyle{"A": {Header: &Style{Background: "FF0000"}}},
	}
	assert.Equal(t, &Style{Bold: On}, NewResolver(doc).GroupHeaderStyle())
}

func TestFinalCellStyleLayers(t *testing.T) {
	doc := &Document{BodyStyle: &Style{Border: BorderThin, Background: "FFFFFF"}}
	sheet := &Sheet{AlternateRow: &Style{Background: "EEEEEE", Italic: On}}
	col := &Column{
		Header: "Delta",
		Conditional: func(raw interface{}) *Style {
			if raw.(int) < 0 {
				return &Style{FontColor: "FF0000"}
			}
			return nil
		},
	}
	r := NewResolver(doc)

	// Body beats the alternate row, which still contributes unset fields.
	assert.Equal(t,
		&Style{Border: BorderThin, Background: "FFFFFF", Italic: On},
		r.FinalCellStyle(col, sheet, true, "", 5))

	assert.Equal(t,
		&Style{Border: BorderThin, Background: "FFFFFF", FontColor: "FF0000"},
		r.FinalCellStyle(col, sheet, false, "", -3))
}

func TestFinalCellStyleConditionalSeesRawValue(t *testing.T) {
	var seen interface{}
	col := &Column{Header: "When", Conditional: func(raw interface{}) *Style {
		seen = raw
		return nil
	}}
	d := civil.Date{Year: 2024, Month: 2, Day: 29}

	NewResolver(&Document{}).FinalCellStyle(col, &Sheet{}, false, DefaultDateFormat, d)

	assert.Equal(t, d, seen)
}

func TestFinalCellStyleDateFormatAlwaysWins(t *testing.T) {
	doc := &Document{BodyStyle: &Style{NumFormat: "0.00"}}
	col := &Column{
		Header:      "When",
		BodyStyle:   &Style{NumFormat: "#,##0"},
		Conditional: func(interface{}) *Style { return &Style{NumFormat: "0%", Bold: On} },
	}

	got := NewResolver(doc).FinalCellStyle(col, &Sheet{}, false, "yyyy-mm-dd", nil)

	assert.Equal(t, &Style{NumFormat: "yyyy-mm-dd", Bold: On}, got)
}

func TestFinalCellStyleDateWithoutStyles(t *testing.T) {
	got := NewResolver(&Document{}).FinalCellStyle(&Column{Header: "d"}, &Sheet{}, false, "yyyy-mm-dd", nil)
	assert.Equal(t, &Style{NumFormat: "yyyy-mm-dd"}, got)
}

func TestFinalCellStyleDoesNotMutateInputs(t *testing.T) {
	body := &Style{Bold: On}
	doc := &Document{BodyStyle: body}
	NewResolver(doc).FinalCellStyle(&Column{Header: "d"}, &Sheet{}, false, "yyyy-mm-dd", nil)
	assert.Equal(t, &Style{Bold: On}, body)
}
