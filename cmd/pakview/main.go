// pakview is a windowed browser for sprite container files.
//
//	pakview [--config file] [--debug] <folder-or-file>
//
// Up/Down/PageUp/PageDown select a sprite, Tab cycles the category filter,
// the mouse wheel zooms, dragging pans, F fits the preview, P and B export
// the selection as PNG or BMP.
package main

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/spf13/pflag"

	"github.com/1siamBot/spritepak/engine/catalog"
	"github.com/1siamBot/spritepak/engine/config"
	"github.com/1siamBot/spritepak/engine/imagecodec"
	"github.com/1siamBot/spritepak/engine/input"
	"github.com/1siamBot/spritepak/engine/logging"
	"github.com/1siamBot/spritepak/engine/pak"
	"github.com/1siamBot/spritepak/engine/render"
	"github.com/1siamBot/spritepak/viewer"
)

const (
	sidebarWidth = 280
	rowHeight    = 18
	listTop      = 30
	statusHeight = 24
)

type app struct {
	viewer   *viewer.Viewer
	camera   *render.Camera
	input    *input.State
	textures *textureCache
	shown    *pak.Asset
	screenW  int
	screenH  int
	log      *slog.Logger
}

func newApp(cfg *config.Config, v *viewer.Viewer, logger *slog.Logger) *app {
	w, h := cfg.Viewer.Width, cfg.Viewer.Height
	cam := render.NewCamera(w-sidebarWidth, h-statusHeight)
	cam.MinZoom, cam.MaxZoom = cfg.Viewer.MinZoom, cfg.Viewer.MaxZoom
	return &app{
		viewer:   v,
		camera:   cam,
		input:    input.NewState(),
		textures: newTextureCache(),
		screenW:  w,
		screenH:  h,
		log:      logger,
	}
}

func (a *app) Update() error {
	a.input.Update()
	v := a.viewer

	switch {
	case a.input.Repeat(ebiten.KeyDown):
		v.Move(1)
	case a.input.Repeat(ebiten.KeyUp):
		v.Move(-1)
	case a.input.Repeat(ebiten.KeyPageDown):
		v.Page(1)
	case a.input.Repeat(ebiten.KeyPageUp):
		v.Page(-1)
	case a.input.JustPressed(ebiten.KeyHome):
		v.Select(0)
	case a.input.JustPressed(ebiten.KeyEnd):
		v.Select(v.Catalog.Len() - 1)
	}

	if a.input.JustPressed(ebiten.KeyTab) {
		v.CycleFilter()
		a.textures.clear()
		a.shown = nil
	}
	if a.input.JustPressed(ebiten.KeyP) {
		a.export(imagecodec.PNG)
	}
	if a.input.JustPressed(ebiten.KeyB) {
		a.export(imagecodec.BMP)
	}
	if a.input.JustPressed(ebiten.KeyF) {
		a.camera.Fit()
	}
	if a.input.JustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	// Mouse: the list scrolls and selects; the preview zooms and pans.
	inList := a.input.MouseX < sidebarWidth
	if a.input.ScrollY != 0 {
		if inList {
			v.Scroll(-int(a.input.ScrollY))
		} else {
			a.camera.ZoomAt(a.input.ScrollY*0.25*a.camera.Zoom, a.input.MouseX-sidebarWidth, a.input.MouseY)
		}
	}
	if inList && a.input.LeftJustPressed {
		if i := v.RowAt((a.input.MouseY - listTop) / rowHeight); i >= 0 && a.input.MouseY >= listTop {
			v.Select(i)
		}
	}
	if !inList && a.input.Dragging {
		a.camera.Pan(float64(-a.input.MouseDX), float64(-a.input.MouseDY))
	}

	if s, ok := v.Current(); ok && s.Asset != a.shown {
		a.shown = s.Asset
		if img := s.Asset.Preview(); img != nil {
			b := img.Bounds()
			a.camera.SetImage(b.Dx(), b.Dy())
		}
	}
	return nil
}

func (a *app) export(f imagecodec.Format) {
	if _, err := a.viewer.ExportCurrent(f); err != nil {
		a.log.Warn("export", "err", err)
	}
}

func (a *app) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{30, 30, 40, 255})
	a.drawPreview(screen)
	a.drawSidebar(screen)

	status := a.viewer.Status
	if s, ok := a.viewer.Current(); ok {
		status = fmt.Sprintf("%s/%s  %d bytes  %s  zoom %.2gx  |  %s",
			s.File.Name(), s.Asset.Name, s.Asset.Size(), s.Asset.Encoding, a.camera.Zoom, status)
	}
	vector.DrawFilledRect(screen, 0, float32(a.screenH-statusHeight), float32(a.screenW), statusHeight, color.RGBA{0, 0, 0, 200}, false)
	ebitenutil.DebugPrintAt(screen, status, 5, a.screenH-statusHeight+4)
}

func (a *app) drawPreview(screen *ebiten.Image) {
	s, ok := a.viewer.Current()
	if !ok {
		ebitenutil.DebugPrintAt(screen, "no sprites", sidebarWidth+20, 20)
		return
	}
	tex := a.textures.get(s.Asset)
	if tex == nil {
		ebitenutil.DebugPrintAt(screen, "no preview", sidebarWidth+20, 20)
		return
	}
	scale, tx, ty := a.camera.Transform()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(tx+sidebarWidth, ty)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(tex, op)
}

func (a *app) drawSidebar(screen *ebiten.Image) {
	v := a.viewer
	vector.DrawFilledRect(screen, 0, 0, sidebarWidth, float32(a.screenH-statusHeight), color.RGBA{20, 20, 40, 230}, false)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("[Tab] %s  (%d)", v.Catalog.Filter(), v.Catalog.Len()), 10, 8)

	from, to := v.Visible()
	for i := from; i < to; i++ {
		s, _ := v.Catalog.SpriteAt(i)
		y := listTop + (i-from)*rowHeight
		if i == v.Selected {
			vector.DrawFilledRect(screen, 4, float32(y), sidebarWidth-8, rowHeight, color.RGBA{100, 100, 200, 255}, false)
		}
		ebitenutil.DebugPrintAt(screen, s.Asset.Name, 10, y+2)
	}
}

func (a *app) Layout(_, _ int) (int, int) {
	return a.screenW, a.screenH
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pakview: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		debug      bool
		exportDir  string
	)
	flags := pflag.NewFlagSet("pakview", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvVar+")")
	flags.BoolVar(&debug, "debug", false, "debug logging")
	flags.StringVarP(&exportDir, "out", "o", ".", "directory for exported sprites")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: pakview [flags] <folder-or-file>")
	}

	logger, cleanup, err := logging.Setup(logging.Config{Debug: debug})
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return err
	}
	opts, err := cfg.ResolverOptions(logger)
	if err != nil {
		return err
	}
	exp, err := cfg.ExportOptions()
	if err != nil {
		return err
	}

	cat := catalog.New(pak.NewResolver(opts), catalog.Options{
		Rules:       cfg.Catalog.Categories,
		Extensions:  cfg.Catalog.Extensions,
		PreviewOnly: true,
		Logger:      logger,
	})
	rows := (cfg.Viewer.Height - statusHeight - listTop) / rowHeight
	v := viewer.New(cat, rows, logger)
	v.ExportDir = exportDir
	v.Export = exp
	if err := v.Open(flags.Arg(0)); err != nil {
		return err
	}

	ebiten.SetWindowSize(cfg.Viewer.Width, cfg.Viewer.Height)
	ebiten.SetWindowTitle("pakview - " + flags.Arg(0))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(newApp(cfg, v, logger)); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
