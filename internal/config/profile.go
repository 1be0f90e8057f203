package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/locvowork/excelstream/pkg/simpleexcel"
)

//go:embed profile.yaml
var defaultProfile []byte

// RenderProfile holds the render settings shared by all exports.
type RenderProfile struct {
	RowWindow      int          `yaml:"row_window"`
	MaxStyles      int          `yaml:"max_styles"`
	DateFormat     string       `yaml:"date_format"`
	DateTimeFormat string       `yaml:"datetime_format"`
	DefaultWidth   float64      `yaml:"default_width"`
	Width          WidthProfile `yaml:"width"`
	Theme          string       `yaml:"theme"`
}

type WidthProfile struct {
	Padding int `yaml:"padding"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
}

// LoadRenderProfile decodes the embedded defaults and then path, when set, on
// top of them. Unknown keys are rejected.
func LoadRenderProfile(path string) (*RenderProfile, error) {
	p := &RenderProfile{}
	if err := decodeProfile(defaultProfile, p); err != nil {
		return nil, fmt.Errorf("default profile: %w", err)
	}
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := decodeProfile(b, p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func decodeProfile(b []byte, p *RenderProfile) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(p)
}

// Validate checks the profile values.
func (p *RenderProfile) Validate() error {
	if p.Width.Min > p.Width.Max {
		return fmt.Errorf("width min %d exceeds max %d", p.Width.Min, p.Width.Max)
	}
	if p.Theme != "" {
		if _, err := simpleexcel.ThemeByName(p.Theme); err != nil {
			return err
		}
	}
	return nil
}

// Options converts the profile to render options, with the EXPORT_* overrides
// of env applied.
func (p *RenderProfile) Options(env envConfig) []simpleexcel.Option {
	window, styles := p.RowWindow, p.MaxStyles
	if env.EXPORT_ROW_WINDOW > 0 {
		window = env.EXPORT_ROW_WINDOW
	}
	if env.EXPORT_MAX_STYLES > 0 {
		styles = env.EXPORT_MAX_STYLES
	}
	return []simpleexcel.Option{
		simpleexcel.WithRowWindow(window),
		simpleexcel.WithMaxStyles(styles),
		simpleexcel.WithDateFormats(p.DateFormat, p.DateTimeFormat),
		simpleexcel.WithDefaultWidth(p.DefaultWidth),
		simpleexcel.WithWidthOptions(simpleexcel.WidthOptions{
			Padding: p.Width.Padding,
			Min:     p.Width.Min,
			Max:     p.Width.Max,
		}),
	}
}
