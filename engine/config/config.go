// Package config loads spritepak settings from a YAML file.
//
// The file is named by the --config flag or the SPRITEPAK_CONFIG
// environment variable. Values in the file overlay Default(); anything the
// file omits keeps its built-in value.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1siamBot/spritepak/engine/catalog"
	"github.com/1siamBot/spritepak/engine/imagecodec"
	"github.com/1siamBot/spritepak/engine/pak"
)

// EnvVar names the environment variable consulted when no --config flag is given.
const EnvVar = "SPRITEPAK_CONFIG"

// Config is the full tool configuration.
type Config struct {
	Sniff   SniffConfig   `yaml:"sniff"`
	Scan    ScanConfig    `yaml:"scan"`
	Limits  LimitsConfig  `yaml:"limits"`
	Mix     MixConfig     `yaml:"mix"`
	Catalog CatalogConfig `yaml:"catalog"`
	Export  ExportConfig  `yaml:"export"`
	Viewer  ViewerConfig  `yaml:"viewer"`
}

// SniffConfig bounds the image sniffer.
type SniffConfig struct {
	// Widths and Heights are the raw-geometry candidates.
	Widths  []int `yaml:"widths"`
	Heights []int `yaml:"heights"`

	// Strides are the raw bytes-per-pixel candidates, in preference order.
	// Only 4 (RGBA) and 3 (RGB) are understood.
	Strides []int `yaml:"strides"`

	// MaxDimension refuses encoded images wider or taller than this.
	MaxDimension int `yaml:"max_dimension"`
}

// ScanConfig configures the signature sweep.
type ScanConfig struct {
	// Window is the speculative payload size, in bytes, for signatures
	// without a usable terminator.
	Window int `yaml:"window"`
}

// LimitsConfig holds the strict-grammar sanity ceilings.
type LimitsConfig struct {
	MaxEntries    int `yaml:"max_entries"`
	MaxNameLength int `yaml:"max_name_length"`
}

// MixConfig configures Westwood MIX archives.
type MixConfig struct {
	// Names are file names whose CRC IDs label MIX entries.
	Names []string `yaml:"names"`

	// Palette is an optional .pal file used to colour SHP previews.
	Palette string `yaml:"palette"`
}

// CatalogConfig configures folder loading.
type CatalogConfig struct {
	Extensions []string       `yaml:"extensions"`
	Categories []catalog.Rule `yaml:"categories"`
}

// ExportConfig sets export defaults.
type ExportConfig struct {
	Format      string `yaml:"format"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	Scale       int    `yaml:"scale"`
}

// ViewerConfig sizes the viewer window and zoom range.
type ViewerConfig struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	MinZoom float64 `yaml:"min_zoom"`
	MaxZoom float64 `yaml:"max_zoom"`
}

// Default returns the built-in configuration.
func Default() *Config {
	limits := pak.DefaultLimits()
	return &Config{
		Sniff: SniffConfig{
			Widths:       append([]int(nil), pak.DefaultSizes...),
			Heights:      append([]int(nil), pak.DefaultSizes...),
			Strides:      []int{4, 3},
			MaxDimension: pak.DefaultMaxDimension,
		},
		Scan: ScanConfig{Window: pak.DefaultWindow},
		Limits: LimitsConfig{
			MaxEntries:    limits.MaxEntries,
			MaxNameLength: limits.MaxNameLength,
		},
		Catalog: CatalogConfig{
			Extensions: []string{".pak"},
			Categories: catalog.DefaultRules(),
		},
		Export: ExportConfig{
			Format:      string(imagecodec.PNG),
			JPEGQuality: imagecodec.DefaultJPEGQuality,
			Scale:       1,
		},
		Viewer: ViewerConfig{
			Width:   1200,
			Height:  800,
			MinZoom: 0.25,
			MaxZoom: 8,
		},
	}
}

// Path returns flagValue if set, else the SPRITEPAK_CONFIG environment
// variable. An empty result means no config file.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvVar)
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Parse(data); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays YAML data onto c and validates the result.
func (c *Config) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return c.Validate()
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Sniff.Widths) == 0 || len(c.Sniff.Heights) == 0 {
		errs = append(errs, errors.New("sniff.widths and sniff.heights must not be empty"))
	}
	for _, v := range append(append([]int(nil), c.Sniff.Widths...), c.Sniff.Heights...) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("sniff size %d must be positive", v))
		}
	}
	if len(c.Sniff.Strides) == 0 {
		errs = append(errs, errors.New("sniff.strides must not be empty"))
	}
	for _, s := range c.Sniff.Strides {
		if s != 3 && s != 4 {
			errs = append(errs, fmt.Errorf("sniff.strides: unsupported stride %d", s))
		}
	}
	if c.Sniff.MaxDimension <= 0 {
		errs = append(errs, errors.New("sniff.max_dimension must be positive"))
	}
	if c.Scan.Window <= 0 {
		errs = append(errs, errors.New("scan.window must be positive"))
	}
	if c.Limits.MaxEntries <= 0 || c.Limits.MaxNameLength <= 0 {
		errs = append(errs, errors.New("limits must be positive"))
	}
	if f, err := imagecodec.ParseFormat(c.Export.Format); err != nil {
		errs = append(errs, fmt.Errorf("export.format: %w", err))
	} else if _, err := imagecodec.Encoder(f, c.Export.JPEGQuality); err != nil {
		errs = append(errs, fmt.Errorf("export.format: %w", err))
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("export.jpeg_quality %d outside 1..100", c.Export.JPEGQuality))
	}
	if c.Export.Scale < 1 {
		errs = append(errs, fmt.Errorf("export.scale %d must be at least 1", c.Export.Scale))
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		errs = append(errs, errors.New("viewer size must be positive"))
	}
	if c.Viewer.MinZoom <= 0 || c.Viewer.MaxZoom < c.Viewer.MinZoom {
		errs = append(errs, fmt.Errorf("viewer zoom range %g..%g is invalid", c.Viewer.MinZoom, c.Viewer.MaxZoom))
	}
	for _, ext := range c.Catalog.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("catalog.extensions: %q must start with a dot", ext))
		}
	}
	return errors.Join(errs...)
}

// Sniffer builds the image sniffer, loading the SHP palette if configured.
func (c *Config) Sniffer() (*pak.Sniffer, error) {
	s := &pak.Sniffer{
		Widths:       append([]int(nil), c.Sniff.Widths...),
		Heights:      append([]int(nil), c.Sniff.Heights...),
		Strides:      append([]int(nil), c.Sniff.Strides...),
		MaxDimension: c.Sniff.MaxDimension,
	}
	if c.Mix.Palette != "" {
		pal, err := pak.LoadPalette(c.Mix.Palette)
		if err != nil {
			return nil, err
		}
		s.Palette = &pal
	}
	return s, nil
}

// ResolverOptions converts the configuration into pak resolver options.
func (c *Config) ResolverOptions(logger *slog.Logger) (pak.Options, error) {
	s, err := c.Sniffer()
	if err != nil {
		return pak.Options{}, err
	}
	return pak.Options{
		Limits: pak.Limits{
			MaxEntries:    c.Limits.MaxEntries,
			MaxNameLength: c.Limits.MaxNameLength,
		},
		Sniffer:  s,
		Window:   c.Scan.Window,
		MixNames: c.Mix.Names,
		Logger:   logger,
	}, nil
}

// ExportOptions returns the export defaults.
func (c *Config) ExportOptions() (pak.ExportOptions, error) {
	f, err := imagecodec.ParseFormat(c.Export.Format)
	if err != nil {
		return pak.ExportOptions{}, err
	}
	return pak.ExportOptions{Format: f, Quality: c.Export.JPEGQuality, Scale: c.Export.Scale}, nil
}
