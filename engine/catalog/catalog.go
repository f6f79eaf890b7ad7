// Package catalog groups the containers found in a folder and exposes their
// assets as one ordered, filterable sprite list.
package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/1siamBot/spritepak/engine/imagecodec"
	"github.com/1siamBot/spritepak/engine/pak"
)

// File is one resolved container file.
type File struct {
	Path      string
	Category  string
	Container *pak.Container

	bases map[string]int // export base name (folded) -> asset count
}

// Name returns the base file name.
func (f *File) Name() string { return filepath.Base(f.Path) }

func (f *File) stem() string {
	return strings.TrimSuffix(f.Name(), filepath.Ext(f.Path)) + "_"
}

// baseCounts counts the assets sharing each export base name. Names are
// folded so that case-insensitive file systems cannot merge two exports.
func (f *File) baseCounts() map[string]int {
	if f.bases == nil {
		f.bases = make(map[string]int)
		if f.Container != nil {
			stem := f.stem()
			for _, a := range f.Container.Assets {
				f.bases[strings.ToLower(sanitize(stem+a.Name))]++
			}
		}
	}
	return f.bases
}

// Sprite is one entry of the flattened list.
type Sprite struct {
	File  *File
	Index int // position of Asset in File.Container
	Asset *pak.Asset
}

// Options configures a Catalog. Zero values select the defaults.
type Options struct {
	Rules       []Rule
	Extensions  []string // matched case-insensitively, with the dot
	PreviewOnly bool     // list only assets that decoded to an image
	Logger      *slog.Logger
}

// Catalog owns the containers loaded from one folder.
type Catalog struct {
	resolver *pak.Resolver
	opts     Options
	log      *slog.Logger

	files   []*File
	filter  string
	sprites []Sprite
}

// New returns an empty catalog that resolves files with r.
func New(r *pak.Resolver, opts Options) *Catalog {
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".pak"}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Catalog{resolver: r, opts: opts, log: log, filter: All}
}

// LoadFolder replaces the catalog contents with every matching file directly
// inside dir, in name order. Files that cannot be read or resolved are
// logged and skipped. It returns the number of files loaded.
func (c *Catalog) LoadFolder(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, &pak.FileError{Op: "readdir", Path: dir, Err: err}
	}
	c.files = nil
	for _, e := range entries {
		if !e.Type().IsRegular() || !c.matches(e.Name()) {
			continue
		}
		if err := c.LoadFile(filepath.Join(dir, e.Name())); err != nil {
			c.log.Warn("skipping file", "path", filepath.Join(dir, e.Name()), "err", err)
		}
	}
	c.rebuild()
	c.log.Info("folder loaded", "dir", dir, "files", len(c.files), "sprites", len(c.sprites))
	return len(c.files), nil
}

// LoadFile resolves one file and appends it to the catalog.
func (c *Catalog) LoadFile(path string) error {
	cont, err := c.resolver.ReadFile(path)
	if err != nil {
		return err
	}
	c.Add(path, cont)
	return nil
}

// Add appends an already resolved container.
func (c *Catalog) Add(path string, cont *pak.Container) {
	c.files = append(c.files, &File{
		Path:      path,
		Category:  Categorize(filepath.Base(path), c.opts.Rules),
		Container: cont,
	})
	c.rebuild()
}

func (c *Catalog) matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range c.opts.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// Files returns the loaded files in load order.
func (c *Catalog) Files() []*File { return c.files }

// Categories returns All followed by the categories present, in rule order.
func (c *Catalog) Categories() []string {
	out := []string{All}
	for _, r := range c.opts.Rules {
		for _, f := range c.files {
			if f.Category == r.Name && !slices.Contains(out, r.Name) {
				out = append(out, r.Name)
			}
		}
	}
	return out
}

// SetFilter restricts Sprites to files of one category. All shows everything.
func (c *Catalog) SetFilter(category string) {
	c.filter = category
	c.rebuild()
}

// Filter returns the active category.
func (c *Catalog) Filter() string { return c.filter }

func (c *Catalog) rebuild() {
	c.sprites = nil
	for _, f := range c.files {
		if c.filter != All && f.Category != c.filter {
			continue
		}
		for i, a := range f.Container.Assets {
			if c.opts.PreviewOnly && !a.HasPreview() {
				continue
			}
			c.sprites = append(c.sprites, Sprite{File: f, Index: i, Asset: a})
		}
	}
}

// Sprites returns the filtered sprites: file order, then container order.
func (c *Catalog) Sprites() []Sprite { return c.sprites }

// Len returns the number of filtered sprites.
func (c *Catalog) Len() int { return len(c.sprites) }

// SpriteAt returns the i-th filtered sprite.
func (c *Catalog) SpriteAt(i int) (Sprite, bool) {
	if i < 0 || i >= len(c.sprites) {
		return Sprite{}, false
	}
	return c.sprites[i], true
}

// Duplicates groups filtered sprites with identical payloads. Groups and
// their members are in list order; unique sprites are omitted.
func (c *Catalog) Duplicates() [][]Sprite {
	groups := make(map[[32]byte][]Sprite)
	var order [][32]byte
	for _, s := range c.sprites {
		sum := blake3.Sum256(s.Asset.Data)
		if _, ok := groups[sum]; !ok {
			order = append(order, sum)
		}
		groups[sum] = append(groups[sum], s)
	}
	var out [][]Sprite
	for _, sum := range order {
		if g := groups[sum]; len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// ExportName returns the file name a sprite is exported under: the container
// file stem, the asset name, and an extension for the output format, or .bin
// for assets written raw. Assets sharing a name within their container get
// their index appended, so every asset of a container maps to its own file.
func ExportName(s Sprite, f imagecodec.Format) string {
	ext := ".bin"
	if s.Asset.HasPreview() {
		if f == "" {
			f = imagecodec.PNG
		}
		ext = f.Ext()
	}
	if s.File == nil {
		return sanitize(s.Asset.Name) + ext
	}
	base := sanitize(s.File.stem() + s.Asset.Name)
	counts := s.File.baseCounts()
	if counts[strings.ToLower(base)] > 1 {
		suffix := "_" + strconv.Itoa(s.Index)
		base += suffix
		for counts[strings.ToLower(base)] > 0 {
			base += suffix
		}
	}
	return base + ext
}

// sanitize keeps asset names from escaping the export directory.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return "unnamed"
	}
	return name
}

// Export writes sprite i into dir and returns the written path.
func (c *Catalog) Export(i int, dir string, opts pak.ExportOptions) (string, error) {
	s, ok := c.SpriteAt(i)
	if !ok {
		return "", fmt.Errorf("sprite %d out of range (%d sprites)", i, len(c.sprites))
	}
	return ExportSprite(s, dir, opts)
}

// ExportSprite writes s into dir under ExportName and returns the path.
func ExportSprite(s Sprite, dir string, opts pak.ExportOptions) (string, error) {
	path := filepath.Join(dir, ExportName(s, opts.Format))
	if err := s.Asset.Export(path, opts); err != nil {
		return "", err
	}
	return path, nil
}
