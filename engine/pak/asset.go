package pak

import (
	"fmt"
	"image"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/1siamBot/spritepak/engine/imagecodec"
)

// Asset is one named payload recovered from a container. Data is always a
// private copy of the source bytes. Image is the sniffed preview and may be
// nil for payloads that are not recognizable images.
type Asset struct {
	Name     string
	Data     []byte
	Offset   int64 // position of Data in the source buffer
	Image    image.Image
	Encoding string   // "png", "bmp", ..., "shp", "raw"; empty when undecoded
	Geometry Geometry // raw interpretation, zero unless Encoding == "raw"
}

// Preview returns the decoded image or nil.
func (a *Asset) Preview() image.Image { return a.Image }

// HasPreview reports whether the asset decoded to an image.
func (a *Asset) HasPreview() bool { return a.Image != nil }

// Size returns the payload length in bytes.
func (a *Asset) Size() int { return len(a.Data) }

// Load sniffs the payload and records the preview. It reports whether a
// preview is now available.
func (a *Asset) Load(s *Sniffer) bool {
	if a.Image != nil {
		return true
	}
	res, err := s.Sniff(a.Data)
	if err != nil {
		return false
	}
	a.Image = res.Image
	a.Encoding = res.Encoding
	a.Geometry = res.Geometry
	return true
}

// ExportOptions controls how a decoded asset is written out.
type ExportOptions struct {
	Format  imagecodec.Format
	Quality int // JPEG only
	Scale   int // nearest-neighbour upscale factor, <= 1 for none
}

// ExportTo writes the asset to path. A decoded asset is re-encoded as
// format; an undecoded one is written verbatim and format is ignored.
func (a *Asset) ExportTo(path, format string) error {
	if a.Image == nil {
		return a.Export(path, ExportOptions{})
	}
	f, err := imagecodec.ParseFormat(format)
	if err != nil {
		return fmt.Errorf("export %s: %w", a.Name, err)
	}
	return a.Export(path, ExportOptions{Format: f})
}

// Export writes the asset to path using opts.
func (a *Asset) Export(path string, opts ExportOptions) error {
	if a.Image == nil {
		if err := os.WriteFile(path, a.Data, 0644); err != nil {
			return &FileError{Op: "write", Path: path, Err: err}
		}
		return nil
	}
	img := a.Image
	if opts.Scale > 1 {
		img = scaleNearest(img, opts.Scale)
	}
	f := opts.Format
	if f == "" {
		f = imagecodec.PNG
	}
	if err := imagecodec.Save(path, img, f, opts.Quality); err != nil {
		return fmt.Errorf("export %s: %w", a.Name, err)
	}
	return nil
}

func scaleNearest(src image.Image, factor int) image.Image {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// Container is the ordered asset list produced by one successful strategy.
type Container struct {
	Strategy string
	Assets   []*Asset
}

// Len returns the number of assets.
func (c *Container) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Assets)
}

// Names returns asset names in container order.
func (c *Container) Names() []string {
	names := make([]string, 0, c.Len())
	for _, a := range c.Assets {
		names = append(names, a.Name)
	}
	return names
}

// Previewable returns the assets that decoded to an image, in order.
func (c *Container) Previewable() []*Asset {
	var out []*Asset
	for _, a := range c.Assets {
		if a.HasPreview() {
			out = append(out, a)
		}
	}
	return out
}
