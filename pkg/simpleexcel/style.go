package simpleexcel

import "strings"

// Toggle is an optional boolean style attribute.
type Toggle uint8

const (
	Inherit Toggle = iota
	On
	Off
)

// Set reports whether the toggle carries a value.
func (t Toggle) Set() bool { return t != Inherit }

// Bool returns the toggle as a plain bool, Inherit being false.
func (t Toggle) Bool() bool { return t == On }

// ToggleOf converts a bool into an explicit toggle.
func ToggleOf(b bool) Toggle {
	if b {
		return On
	}
	return Off
}

// HAlign is the horizontal alignment of a cell. The zero value means unset.
type HAlign uint8

const (
	AlignUnset HAlign = iota
	AlignLeft
	AlignCenter
	AlignRight
	AlignJustify
)

var alignNames = map[HAlign]string{
	AlignLeft:    "left",
	AlignCenter:  "center",
	AlignRight:   "right",
	AlignJustify: "justify",
}

func (a HAlign) String() string { return alignNames[a] }

// ParseHAlign maps "left", "center", "right" and "justify" to an HAlign.
// Unknown names yield AlignUnset.
func ParseHAlign(s string) HAlign {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range alignNames {
		if name == s {
			return a
		}
	}
	return AlignUnset
}

// BorderWeight is the weight of the border drawn on all four cell edges.
type BorderWeight uint8

const (
	BorderUnset BorderWeight = iota
	BorderNone
	BorderThin
	BorderMedium
	BorderThick
)

var borderNames = map[BorderWeight]string{
	BorderNone:   "none",
	BorderThin:   "thin",
	BorderMedium: "medium",
	BorderThick:  "thick",
}

func (b BorderWeight) String() string { return borderNames[b] }

// ParseBorderWeight maps "none", "thin", "medium" and "thick" to a BorderWeight.
func ParseBorderWeight(s string) BorderWeight {
	s = strings.ToLower(strings.TrimSpace(s))
	for b, name := range borderNames {
		if name == s {
			return b
		}
	}
	return BorderUnset
}

// Style describes the visual attributes of a cell. Every field is optional,
// the zero value of a field means "not specified". Style is comparable and two
// styles are equal when all fields are equal, which makes it usable as a map key.
type Style struct {
	Background string // hex RGB, with or without leading '#'
	FontColor  string
	Bold       Toggle
	Italic     Toggle
	Align      HAlign
	Border     BorderWeight
	NumFormat  string
}

// IsZero reports whether no attribute is set.
func (s Style) IsZero() bool { return s == Style{} }

func (s Style) hasFont() bool {
	return s.Bold.Set() || s.Italic.Set() || s.FontColor != ""
}

// Merge returns a new style where every attribute set in over replaces the one
// in base. Either argument may be nil. The result is nil when both are nil or
// the merge sets nothing.
func Merge(base, over *Style) *Style {
	switch {
	case base == nil && over == nil:
		return nil
	case base == nil:
		return over.clone()
	case over == nil:
		return base.clone()
	}

	out := *base
	if over.Background != "" {
		out.Background = over.Background
	}
	if over.FontColor != "" {
		out.FontColor = over.FontColor
	}
	if over.Bold.Set() {
		out.Bold = over.Bold
	}
	if over.Italic.Set() {
		out.Italic = over.Italic
	}
	if over.Align != AlignUnset {
		out.Align = over.Align
	}
	if over.Border != BorderUnset {
		out.Border = over.Border
	}
	if over.NumFormat != "" {
		out.NumFormat = over.NumFormat
	}
	return out.clone()
}

// MergeAll folds styles left to right with Merge.
func MergeAll(layers ...*Style) *Style {
	var out *Style
	for _, l := range layers {
		out = Merge(out, l)
	}
	return out
}

func (s *Style) clone() *Style {
	if s == nil || s.IsZero() {
		return nil
	}
	c := *s
	return &c
}

func normalizeColor(c string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
}
