package simpleexcel

import "github.com/rs/zerolog"

const (
	DefaultDateFormat     = "yyyy-mm-dd"
	DefaultDateTimeFormat = "yyyy-mm-dd hh:mm:ss"
	DefaultRowWindow      = 100
	// DefaultColumnWidth is used for auto columns that received no value.
	DefaultColumnWidth = 15.0
)

// Config holds the settings of one render call.
type Config struct {
	// RowWindow is the number of rows the engine keeps pending in memory.
	RowWindow int
	// MaxStyles caps the distinct styles of a document.
	MaxStyles      int
	DateFormat     string
	DateTimeFormat string
	Width          WidthOptions
	DefaultWidth   float64
	// TempDir receives temporary files, "" means os.TempDir.
	TempDir string
	Logger  zerolog.Logger
	Engine  EngineFactory
}

// Option configures a render call.
type Option func(*Config)

// DefaultConfig returns the default render configuration.
func DefaultConfig() Config {
	return Config{
		RowWindow:      DefaultRowWindow,
		MaxStyles:      DefaultMaxStyles,
		DateFormat:     DefaultDateFormat,
		DateTimeFormat: DefaultDateTimeFormat,
		Width:          DefaultWidthOptions,
		DefaultWidth:   DefaultColumnWidth,
		Logger:         zerolog.Nop(),
		Engine:         NewExcelizeEngine,
	}
}

func applyOptions(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithRowWindow sets the number of rows buffered before they are streamed.
func WithRowWindow(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.RowWindow = n
		}
	}
}

// WithMaxStyles sets the distinct style ceiling.
func WithMaxStyles(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxStyles = n
		}
	}
}

// WithDateFormats sets the number formats applied to date and date-time cells.
// Empty values keep the defaults.
func WithDateFormats(date, dateTime string) Option {
	return func(c *Config) {
		if date != "" {
			c.DateFormat = date
		}
		if dateTime != "" {
			c.DateTimeFormat = dateTime
		}
	}
}

// WithWidthOptions sets padding and bounds of auto column widths.
func WithWidthOptions(w WidthOptions) Option {
	return func(c *Config) {
		c.Width = w
	}
}

// WithDefaultWidth sets the width of auto columns without data.
func WithDefaultWidth(w float64) Option {
	return func(c *Config) {
		if w > 0 {
			c.DefaultWidth = w
		}
	}
}

// WithTempDir sets the directory of temporary files.
func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithLogger sets the logger receiving render events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithEngine replaces the spreadsheet engine.
func WithEngine(f EngineFactory) Option {
	return func(c *Config) {
		if f != nil {
			c.Engine = f
		}
	}
}
