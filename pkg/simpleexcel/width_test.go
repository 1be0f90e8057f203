package simpleexcel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayWidth(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello", 5},
		{"日本語", 6},
		{"한글", 4},
		{"ｈｉ", 4},
		{"ｱｲ", 2},
		{"a日b", 4},
		{"café", 4},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DisplayWidth(c.in), c.in)
	}
}

func TestWidthTrackerSeedsWithHeader(t *testing.T) {
	cols := []Column{{Header: "A very long header"}, {Header: "Fixed", Width: 30}}
	tr := NewWidthTracker(cols, DefaultWidthOptions)

	w, tracked := tr.FinalWidth(0)
	assert.False(t, tracked)
	assert.Equal(t, float64(len("A very long header")+2), w)

	_, tracked = tr.FinalWidth(1)
	assert.False(t, tracked, "fixed columns are not tracked")
}

func TestWidthTrackerIsOrderIndependent(t *testing.T) {
	cols := []Column{{Header: "H"}}
	values := []string{"abc", "日本語日本語", "x", "abcdefgh"}

	a := NewWidthTracker(cols, DefaultWidthOptions)
	for _, v := range values {
		a.Track(0, v)
	}
	b := NewWidthTracker(cols, DefaultWidthOptions)
	for i := len(values) - 1; i >= 0; i-- {
		b.Track(0, values[i])
	}

	wa, _ := a.FinalWidth(0)
	wb, _ := b.FinalWidth(0)
	assert.Equal(t, wa, wb)
	assert.Equal(t, 14.0, wa)
}

func TestWidthTrackerClamps(t *testing.T) {
	cols := []Column{{Header: "a"}, {Header: "b"}}
	tr := NewWidthTracker(cols, DefaultWidthOptions)
	tr.Track(0, "x")
	tr.Track(1, strings.Repeat("x", 500))

	w, tracked := tr.FinalWidth(0)
	assert.True(t, tracked)
	assert.Equal(t, 8.0, w)

	w, _ = tr.FinalWidth(1)
	assert.Equal(t, 100.0, w)
}

func TestWidthTrackerIgnoresOutOfRange(t *testing.T) {
	tr := NewWidthTracker([]Column{{Header: "a"}}, DefaultWidthOptions)
	tr.Track(5, "whatever")
	tr.Track(-1, "whatever")
	_, tracked := tr.FinalWidth(5)
	assert.False(t, tracked)
}
