package simpleexcel

import (
	"unicode"

	"golang.org/x/text/width"
)

// WidthOptions bounds the computed width of auto sized columns, in characters.
type WidthOptions struct {
	Padding int
	Min     int
	Max     int
}

// DefaultWidthOptions pads by 2 and clamps to [8, 100].
var DefaultWidthOptions = WidthOptions{Padding: 2, Min: 8, Max: 100}

// DisplayWidth approximates the rendered width of s in Latin character units.
// East Asian wide and full-width runes, Hangul included, count as two.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		if isDoubleWidth(r) {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func isDoubleWidth(r rune) bool {
	if r < 0x1100 {
		return false
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	case width.EastAsianHalfwidth:
		return false
	}
	// Jamo and Hangul syllables outside the wide tables, e.g. medial vowels.
	return unicode.Is(unicode.Hangul, r)
}

// WidthTracker keeps the running maximum display width of auto sized columns.
type WidthTracker struct {
	opts    WidthOptions
	auto    []bool
	max     []int
	tracked []bool
}

// NewWidthTracker seeds every auto width column with its header width.
func NewWidthTracker(columns []Column, opts WidthOptions) *WidthTracker {
	t := &WidthTracker{
		opts:    opts,
		auto:    make([]bool, len(columns)),
		max:     make([]int, len(columns)),
		tracked: make([]bool, len(columns)),
	}
	for i := range columns {
		if columns[i].AutoWidth() {
			t.auto[i] = true
			t.max[i] = DisplayWidth(columns[i].Header)
		}
	}
	return t
}

// Track records the display text of one cell.
func (t *WidthTracker) Track(col int, text string) {
	if col < 0 || col >= len(t.auto) || !t.auto[col] {
		return
	}
	t.tracked[col] = true
	if w := DisplayWidth(text); w > t.max[col] {
		t.max[col] = w
	}
}

// FinalWidth returns the clamped width of an auto column and whether any
// value was tracked for it.
func (t *WidthTracker) FinalWidth(col int) (float64, bool) {
	if col < 0 || col >= len(t.auto) || !t.auto[col] {
		return 0, false
	}
	w := t.max[col] + t.opts.Padding
	if w < t.opts.Min {
		w = t.opts.Min
	}
	if t.opts.Max > 0 && w > t.opts.Max {
		w = t.opts.Max
	}
	return float64(w), t.tracked[col]
}
