package simpleexcel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ScoreRow struct {
	Student string
	Scores  map[string]float64
}

func TestExpandMapField(t *testing.T) {
	data := []ScoreRow{
		{Student: "Ann", Scores: map[string]float64{"math": 9, "art": 7}},
		{Student: "Bob", Scores: map[string]float64{"history": 6}},
		{Student: "Cy"},
	}

	cols, err := ExpandMapField(data, "Scores")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "art", cols[0].Header)
	assert.Equal(t, "history", cols[1].Header)
	assert.Equal(t, "math", cols[2].Header)

	assert.Equal(t, 9.0, cols[2].Value(data[0]))
	assert.Nil(t, cols[2].Value(data[1]))
	assert.Nil(t, cols[0].Value(data[2]))
}

func TestExpandMapFieldPointerElements(t *testing.T) {
	data := []*ScoreRow{{Student: "Ann", Scores: map[string]float64{"x": 1}}, nil}
	cols, err := ExpandMapField(&data, "Scores")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, 1.0, cols[0].Value(data[0]))
}

func TestExpandMapFieldErrors(t *testing.T) {
	_, err := ExpandMapField("nope", "Scores")
	assert.Error(t, err)
	_, err = ExpandMapField([]int{1}, "Scores")
	assert.Error(t, err)
	_, err = ExpandMapField([]ScoreRow{}, "Missing")
	assert.Error(t, err)
	_, err = ExpandMapField([]ScoreRow{}, "Student")
	assert.Error(t, err)
}

func TestExpandColumns(t *testing.T) {
	data := []ScoreRow{{Student: "Ann", Scores: map[string]float64{"math": 9, "art": 7}}}
	dynamic, err := ExpandMapField(data, "Scores")
	require.NoError(t, err)

	base := []Column{
		{Header: "Student", Value: FieldExtractor("Student")},
		{Header: "Scores", Format: "0.0", Width: 9},
	}
	cols := ExpandColumns(base, "Scores", dynamic)

	require.Len(t, cols, 3)
	assert.Equal(t, "Student", cols[0].Header)
	assert.Equal(t, "art", cols[1].Header)
	assert.Equal(t, "0.0", cols[2].Format)
	assert.Equal(t, 9.0, cols[2].Width)
	assert.Equal(t, 9.0, cols[2].Value(data[0]))

	sheet := Sheet{Name: "Scores", Columns: cols}
	assert.NoError(t, sheet.Validate())
}
