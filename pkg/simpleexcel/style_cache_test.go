package simpleexcel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleCacheReturnsSameHandle(t *testing.T) {
	engine := newFakeEngine()
	cache := NewStyleCache(engine, 0, DefaultDateFormat, DefaultDateTimeFormat)

	h1, err := cache.GetOrCreate(Style{Bold: On, Background: "FF0000"})
	require.NoError(t, err)
	h2, err := cache.GetOrCreate(Style{Background: "FF0000", Bold: On})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, engine.styles, 1)
	assert.Equal(t, 1, cache.Len())
}

func TestStyleCacheNormalizesColors(t *testing.T) {
	engine := newFakeEngine()
	cache := NewStyleCache(engine, 0, DefaultDateFormat, DefaultDateTimeFormat)

	h1, err := cache.GetOrCreate(Style{Background: "#4472c4", FontColor: "#ffffff"})
	require.NoError(t, err)
	h2, err := cache.GetOrCreate(Style{Background: "4472C4", FontColor: " FFFFFF"})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, cache.Len())
	assert.Len(t, engine.styles, 1)
	assert.Len(t, engine.fonts, 1)
}

func TestStyleCacheZeroStyleIsDefault(t *testing.T) {
	engine := newFakeEngine()
	cache := NewStyleCache(engine, 0, DefaultDateFormat, DefaultDateTimeFormat)

	h, err := cache.GetOrCreate(Style{})
	require.NoError(t, err)
	assert.Equal(t, StyleHandle(0), h)
	assert.Empty(t, engine.styles)
}

func TestStyleCacheSharesFonts(t *testing.T) {
	engine := newFakeEngine()
	cache := NewStyleCache(engine, 0, DefaultDateFormat, DefaultDateTimeFormat)

	for _, bg := range []string{"FF0000", "00FF00", "0000FF"} {
		_, err := cache.GetOrCreate(Style{Bold: On, Background: bg})
		require.NoError(t, err)
	}
	_, err := cache.GetOrCreate(Style{Background: "CCCCCC"})
	require.NoError(t, err)

	assert.Equal(t, 4, cache.Len())
	assert.Equal(t, 1, cache.FontCount())
	assert.Equal(t, []FontHandle{1, 1, 1, 0}, engine.styleFonts)
}

func TestStyleCacheLimit(t *testing.T) {
	engine := newFakeEngine()
	cache := NewStyleCache(engine, 2, DefaultDateFormat, DefaultDateTimeFormat)

	_, err := cache.GetOrCreate(Style{Background: "000001"})
	require.NoError(t, err)
	_, err = cache.GetOrCreate(Style{Background: "000002"})
	require.NoError(t, err)

	_, err = cache.GetOrCreate(Style{Background: "000003"})
	assert.True(t, errors.Is(err, ErrStyleLimit))

	// Existing styles still resolve at the limit.
	_, err = cache.GetOrCreate(Style{Background: "000001"})
	assert.NoError(t, err)
}

func TestStyleCacheDateStyles(t *testing.T) {
	engine := newFakeEngine()
	cache := NewStyleCache(engine, 0, "dd/mm/yyyy", "dd/mm/yyyy hh:mm")

	d1, err := cache.DateStyle()
	require.NoError(t, err)
	d2, err := cache.DateStyle()
	require.NoError(t, err)
	dt, err := cache.DateTimeStyle()
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, dt)
	assert.Equal(t, "dd/mm/yyyy", engine.style(d1).NumFormat)
	assert.Equal(t, "dd/mm/yyyy hh:mm", engine.style(dt).NumFormat)

	// A plain lookup of the same value lands on the shared handle.
	h, err := cache.GetOrCreate(Style{NumFormat: "dd/mm/yyyy"})
	require.NoError(t, err)
	assert.Equal(t, d1, h)
}

func TestStyleCacheEngineError(t *testing.T) {
	engine := newFakeEngine()
	engine.failStyleAt = 1
	cache := NewStyleCache(engine, 0, DefaultDateFormat, DefaultDateTimeFormat)

	_, err := cache.GetOrCreate(Style{Bold: On})
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}
