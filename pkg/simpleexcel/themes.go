package simpleexcel

import (
	"fmt"
	"sort"
	"strings"
)

// Theme bundles the document level style layers.
type Theme struct {
	Name      string
	Header    *Style
	Body      *Style
	Alternate *Style
}

var themes = map[string]Theme{
	"default": {
		Name:   "default",
		Header: &Style{Bold: On, Align: AlignCenter},
	},
	"blue": {
		Name:      "blue",
		Header:    &Style{Bold: On, FontColor: "FFFFFF", Background: "4472C4", Align: AlignCenter, Border: BorderThin},
		Body:      &Style{Border: BorderThin},
		Alternate: &Style{Background: "D9E1F2"},
	},
	"green": {
		Name:      "green",
		Header:    &Style{Bold: On, FontColor: "FFFFFF", Background: "70AD47", Align: AlignCenter, Border: BorderThin},
		Body:      &Style{Border: BorderThin},
		Alternate: &Style{Background: "E2EFDA"},
	},
	"gray": {
		Name:      "gray",
		Header:    &Style{Bold: On, Background: "D9D9D9", Border: BorderMedium},
		Alternate: &Style{Background: "F2F2F2"},
	},
}

// ThemeByName looks up a built-in theme.
func ThemeByName(name string) (Theme, error) {
	t, ok := themes[strings.ToLower(name)]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	return t, nil
}

// ThemeNames lists the built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyTheme fills style layers the document leaves unset. Explicit styles
// always win over the theme.
func (d *Document) ApplyTheme(t Theme) {
	if d.HeaderStyle == nil {
		d.HeaderStyle = t.Header.clone()
	}
	if d.BodyStyle == nil {
		d.BodyStyle = t.Body.clone()
	}
	if t.Alternate == nil {
		return
	}
	for i := range d.Sheets {
		if d.Sheets[i].AlternateRow == nil {
			d.Sheets[i].AlternateRow = t.Alternate.clone()
		}
	}
}
