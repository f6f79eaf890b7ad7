// Package viewer holds the sprite viewer's state: the loaded catalog, the
// selected sprite, the list scroll position and export settings. It has no
// drawing code so it can be driven by tests.
package viewer

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/1siamBot/spritepak/engine/catalog"
	"github.com/1siamBot/spritepak/engine/imagecodec"
	"github.com/1siamBot/spritepak/engine/logging"
	"github.com/1siamBot/spritepak/engine/pak"
)

// Viewer is the state behind the sprite list and preview pane.
type Viewer struct {
	Catalog   *catalog.Catalog
	Selected  int // index into Catalog.Sprites, -1 when empty
	Top       int // first visible list row
	Rows      int // list rows that fit on screen
	ExportDir string
	Export    pak.ExportOptions
	Status    string
	Source    string // last opened path

	log *slog.Logger
}

// New creates a viewer over cat showing rows list rows.
func New(cat *catalog.Catalog, rows int, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = logging.Discard()
	}
	if rows < 1 {
		rows = 1
	}
	v := &Viewer{Catalog: cat, Rows: rows, ExportDir: ".", log: logger}
	v.reset()
	return v
}

// Open loads a folder of containers, or a single container file.
func (v *Viewer) Open(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return &pak.FileError{Op: "stat", Path: path, Err: err}
	}
	if st.IsDir() {
		n, err := v.Catalog.LoadFolder(path)
		if err != nil {
			return err
		}
		v.Status = fmt.Sprintf("%d files, %d sprites", n, v.Catalog.Len())
	} else {
		if err := v.Catalog.LoadFile(path); err != nil {
			v.Status = err.Error()
			return err
		}
		v.Status = fmt.Sprintf("%s: %d sprites", path, v.Catalog.Len())
	}
	v.Source = path
	v.reset()
	return nil
}

func (v *Viewer) reset() {
	v.Top = 0
	v.Selected = -1
	if v.Catalog.Len() > 0 {
		v.Selected = 0
	}
}

// Current returns the selected sprite.
func (v *Viewer) Current() (catalog.Sprite, bool) {
	return v.Catalog.SpriteAt(v.Selected)
}

// Select moves the selection to i, clamped to the list, and scrolls it into view.
func (v *Viewer) Select(i int) {
	n := v.Catalog.Len()
	if n == 0 {
		v.Selected, v.Top = -1, 0
		return
	}
	v.Selected = max(0, min(n-1, i))
	if v.Selected < v.Top {
		v.Top = v.Selected
	}
	if v.Selected >= v.Top+v.Rows {
		v.Top = v.Selected - v.Rows + 1
	}
}

// Move shifts the selection by delta rows.
func (v *Viewer) Move(delta int) { v.Select(v.Selected + delta) }

// Page shifts the selection by whole screens.
func (v *Viewer) Page(pages int) { v.Select(v.Selected + pages*v.Rows) }

// Scroll moves the list window without changing the selection.
func (v *Viewer) Scroll(delta int) {
	v.Top = max(0, min(max(0, v.Catalog.Len()-v.Rows), v.Top+delta))
}

// Visible returns the half-open range of list rows on screen.
func (v *Viewer) Visible() (from, to int) {
	return v.Top, min(v.Catalog.Len(), v.Top+v.Rows)
}

// RowAt returns the sprite index under list row r, or -1.
func (v *Viewer) RowAt(r int) int {
	i := v.Top + r
	if r < 0 || r >= v.Rows || i >= v.Catalog.Len() {
		return -1
	}
	return i
}

// CycleFilter advances to the next category present in the catalog.
func (v *Viewer) CycleFilter() string {
	cats := v.Catalog.Categories()
	i := slices.Index(cats, v.Catalog.Filter())
	next := cats[(i+1)%len(cats)]
	v.Catalog.SetFilter(next)
	v.reset()
	v.Status = fmt.Sprintf("filter %s: %d sprites", next, v.Catalog.Len())
	return next
}

// ExportCurrent writes the selected sprite to ExportDir as f.
func (v *Viewer) ExportCurrent(f imagecodec.Format) (string, error) {
	if v.Selected < 0 {
		return "", fmt.Errorf("nothing selected")
	}
	opts := v.Export
	opts.Format = f
	path, err := v.Catalog.Export(v.Selected, v.ExportDir, opts)
	if err != nil {
		v.Status = "export failed: " + err.Error()
		v.log.Error("export failed", "err", err)
		return "", err
	}
	v.Status = "exported " + path
	v.log.Info("sprite exported", "path", path)
	return path, nil
}
