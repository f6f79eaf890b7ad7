package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1siamBot/spritepak/engine/imagecodec"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spritepak.yaml")
	data := `
sniff:
  widths: [8, 24]
scan:
  window: 1024
mix:
  names: [rules.ini, mouse.shp]
catalog:
  extensions: [.pak, .mix]
  categories:
    - name: Units
      keywords: [unit, tank]
export:
  format: jpg
  jpeg_quality: 75
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Sniff.Widths) != 2 || cfg.Sniff.Widths[1] != 24 {
		t.Errorf("widths = %v", cfg.Sniff.Widths)
	}
	if len(cfg.Sniff.Heights) != 6 {
		t.Errorf("heights lost their default: %v", cfg.Sniff.Heights)
	}
	if cfg.Scan.Window != 1024 || cfg.Limits.MaxEntries != 10000 {
		t.Errorf("scan.window = %d, limits.max_entries = %d", cfg.Scan.Window, cfg.Limits.MaxEntries)
	}
	if len(cfg.Catalog.Categories) != 1 || cfg.Catalog.Categories[0].Keywords[1] != "tank" {
		t.Errorf("categories = %+v", cfg.Catalog.Categories)
	}

	opts, err := cfg.ResolverOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Window != 1024 || len(opts.MixNames) != 2 || opts.Sniffer.Widths[0] != 8 {
		t.Errorf("resolver options = %+v", opts)
	}
	exp, err := cfg.ExportOptions()
	if err != nil {
		t.Fatal(err)
	}
	if exp.Format != imagecodec.JPEG || exp.Quality != 75 || exp.Scale != 1 {
		t.Errorf("export options = %+v", exp)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Viewer.Width != 1200 {
		t.Errorf("viewer.width = %d", cfg.Viewer.Width)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	err := cfg.Parse([]byte("sniff:\n  strides: [2]\nexport:\n  format: xcf\n  scale: 0\n"))
	if err == nil {
		t.Fatal("Parse accepted invalid values")
	}
	for _, want := range []string{"stride 2", "export.format", "export.scale"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateRejectsDecodeOnlyFormat(t *testing.T) {
	for _, format := range []string{"webp", "tiff"} {
		cfg := Default()
		err := cfg.Parse([]byte("export:\n  format: " + format + "\n"))
		if !errors.Is(err, imagecodec.ErrNoEncoder) {
			t.Errorf("%s: err = %v, want ErrNoEncoder", format, err)
		}
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if err := Default().Parse([]byte("sniff: [unterminated")); err == nil {
		t.Error("Parse accepted malformed YAML")
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvVar, "/etc/spritepak.yaml")
	if got := Path("local.yaml"); got != "local.yaml" {
		t.Errorf("flag ignored: %s", got)
	}
	if got := Path(""); got != "/etc/spritepak.yaml" {
		t.Errorf("env ignored: %s", got)
	}
}

func TestSnifferPalette(t *testing.T) {
	dir := t.TempDir()
	pal := filepath.Join(dir, "unittem.pal")
	raw := make([]byte, 768)
	raw[3] = 63
	if err := os.WriteFile(pal, raw, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	cfg.Mix.Palette = pal
	s, err := cfg.Sniffer()
	if err != nil {
		t.Fatal(err)
	}
	if s.Palette == nil || s.Palette[1].R != 252 {
		t.Errorf("palette not loaded: %v", s.Palette)
	}

	cfg.Mix.Palette = filepath.Join(dir, "missing.pal")
	if _, err := cfg.Sniffer(); err == nil {
		t.Error("missing palette accepted")
	}
}
