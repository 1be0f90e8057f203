package rowsource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/excelstream/pkg/simpleexcel"
)

type fakeRows struct {
	cols    []string
	colsErr error
	data    [][]interface{}
	scanErr error
	err     error
	pos     int
	closed  int
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, r.colsErr }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	for i, v := range r.data[r.pos-1] {
		*dest[i].(*interface{}) = v
	}
	return nil
}

func (r *fakeRows) Err() error   { return r.err }
func (r *fakeRows) Close() error { r.closed++; return nil }

func TestSQLProvider(t *testing.T) {
	rows := &fakeRows{
		cols: []string{"id", "name", "salary"},
		data: [][]interface{}{
			{int64(1), []byte("Ann"), 10.5},
			{int64(2), nil, 3.0},
		},
	}
	p, err := NewSQLProvider(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "salary"}, p.Columns())

	var got []map[string]interface{}
	for p.Next() {
		got = append(got, p.Row().(map[string]interface{}))
	}
	require.NoError(t, p.Err())
	assert.Equal(t, []map[string]interface{}{
		{"id": int64(1), "name": "Ann", "salary": 10.5},
		{"id": int64(2), "name": nil, "salary": 3.0},
	}, got)
	assert.Nil(t, p.Row())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, rows.closed)
	assert.False(t, p.Next())
	assert.ErrorIs(t, p.Err(), simpleexcel.ErrConsumed)
}

func TestSQLProviderErrors(t *testing.T) {
	t.Run("columns", func(t *testing.T) {
		rows := &fakeRows{colsErr: errors.New("gone")}
		_, err := NewSQLProvider(rows)
		assert.Error(t, err)
		assert.Equal(t, 1, rows.closed)
	})

	t.Run("scan", func(t *testing.T) {
		boom := errors.New("bad type")
		p, err := NewSQLProvider(&fakeRows{cols: []string{"a"}, data: [][]interface{}{{1}}, scanErr: boom})
		require.NoError(t, err)
		assert.False(t, p.Next())
		assert.ErrorIs(t, p.Err(), boom)
	})

	t.Run("cursor", func(t *testing.T) {
		boom := errors.New("connection reset")
		p, err := NewSQLProvider(&fakeRows{cols: []string{"a"}, err: boom})
		require.NoError(t, err)
		assert.False(t, p.Next())
		assert.ErrorIs(t, p.Err(), boom)
	})
}

func TestSQLSheetRenders(t *testing.T) {
	rows := &fakeRows{
		cols: []string{"code", "total"},
		data: [][]interface{}{{[]byte("A1"), int64(7)}},
	}
	sheet, err := SQLSheet("Totals", rows)
	require.NoError(t, err)
	require.Len(t, sheet.Columns, 2)
	assert.Equal(t, "total", sheet.Columns[1].Header)

	doc := &simpleexcel.Document{Sheets: []simpleexcel.Sheet{sheet}}
	require.NoError(t, simpleexcel.RenderFile(doc, t.TempDir()+"/totals.xlsx"))
	assert.Equal(t, 1, rows.closed)
}
