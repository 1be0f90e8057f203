package simpleexcel

import "fmt"

// DefaultMaxStyles stays below the cell format ceiling of the XLSX engines.
const DefaultMaxStyles = 64000

// StyleCache maps style values to engine handles for one document render.
// Fonts are deduplicated on their own since most styles differ only in fill,
// alignment or format.
type StyleCache struct {
	engine Engine
	max    int

	styles map[Style]StyleHandle
	fonts  map[Font]FontHandle

	dateFormat     string
	dateTimeFormat string
	dateStyle      *StyleHandle
	dateTimeStyle  *StyleHandle
}

// NewStyleCache creates a cache bound to engine. max <= 0 selects
// DefaultMaxStyles.
func NewStyleCache(engine Engine, max int, dateFormat, dateTimeFormat string) *StyleCache {
	if max <= 0 {
		max = DefaultMaxStyles
	}
	return &StyleCache{
		engine:         engine,
		max:            max,
		styles:         make(map[Style]StyleHandle),
		fonts:          make(map[Font]FontHandle),
		dateFormat:     dateFormat,
		dateTimeFormat: dateTimeFormat,
	}
}

// GetOrCreate returns the handle of s, creating it on first use. The zero
// style maps to the engine default handle without creating anything.
func (c *StyleCache) GetOrCreate(s Style) (StyleHandle, error) {
	s.Background = normalizeColor(s.Background)
	s.FontColor = normalizeColor(s.FontColor)
	if s.IsZero() {
		return 0, nil
	}
	if h, ok := c.styles[s]; ok {
		return h, nil
	}
	if len(c.styles) >= c.max {
		return 0, fmt.Errorf("%w: %d distinct styles", ErrStyleLimit, c.max)
	}

	font, err := c.font(s)
	if err != nil {
		return 0, err
	}
	h, err := c.engine.NewStyle(s, font)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	c.styles[s] = h
	return h, nil
}

func (c *StyleCache) font(s Style) (FontHandle, error) {
	if !s.hasFont() {
		return 0, nil
	}
	key := fontOf(s)
	if h, ok := c.fonts[key]; ok {
		return h, nil
	}
	h, err := c.engine.NewFont(key)
	if err != nil {
		return 0, fmt.Errorf("create font: %w", err)
	}
	c.fonts[key] = h
	return h, nil
}

// DateStyle returns the shared style carrying only the date format.
func (c *StyleCache) DateStyle() (StyleHandle, error) {
	return c.memo(&c.dateStyle, c.dateFormat)
}

// DateTimeStyle returns the shared style carrying only the date-time format.
func (c *StyleCache) DateTimeStyle() (StyleHandle, error) {
	return c.memo(&c.dateTimeStyle, c.dateTimeFormat)
}

func (c *StyleCache) memo(slot **StyleHandle, format string) (StyleHandle, error) {
	if *slot != nil {
		return **slot, nil
	}
	h, err := c.GetOrCreate(Style{NumFormat: format})
	if err != nil {
		return 0, err
	}
	*slot = &h
	return h, nil
}

// Len returns the number of distinct styles created.
func (c *StyleCache) Len() int { return len(c.styles) }

// FontCount returns the number of distinct fonts created.
func (c *StyleCache) FontCount() int { return len(c.fonts) }
