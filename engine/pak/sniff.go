package pak

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/1siamBot/spritepak/engine/imagecodec"
)

// Encoding names used for non-standard interpretations.
const (
	EncodingSHP = "shp"
	EncodingRaw = "raw"
)

// Geometry is one raw pixel-buffer interpretation.
type Geometry struct {
	Width  int
	Height int
	Stride int // bytes per pixel: 4 RGBA, 3 RGB
}

func (g Geometry) Pixels() int { return g.Width * g.Height }

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%d", g.Width, g.Height, g.Stride)
}

// SniffResult is a successful interpretation of a payload.
type SniffResult struct {
	Image    image.Image
	Encoding string
	Geometry Geometry // set for EncodingRaw
}

// Sniffer interprets payload bytes as an image: first as a standard
// encoding, then as an SHP frame, then as a raw pixel buffer under a fixed
// set of guessed geometries.
//
// The raw stage is a guess. Several geometries can divide the same byte
// count and the degenerate-buffer filter only weeds out the obvious false
// positives; the search order makes the choice deterministic, not correct.
type Sniffer struct {
	Widths       []int
	Heights      []int
	Strides      []int
	MaxDimension int
	Palette      *Palette // SHP palette; nil uses a grayscale ramp
}

// DefaultSizes is the candidate width and height list.
var DefaultSizes = []int{16, 32, 64, 128, 256, 512}

// DefaultMaxDimension bounds encoded images before they are decoded.
const DefaultMaxDimension = 8192

// NewSniffer returns a sniffer with the default search space.
func NewSniffer() *Sniffer {
	return &Sniffer{
		Widths:       append([]int(nil), DefaultSizes...),
		Heights:      append([]int(nil), DefaultSizes...),
		Strides:      []int{4, 3},
		MaxDimension: DefaultMaxDimension,
	}
}

// Sniff returns the first interpretation of data that succeeds, or ErrDecode.
func (s *Sniffer) Sniff(data []byte) (SniffResult, error) {
	if len(data) == 0 {
		return SniffResult{}, ErrDecode
	}
	if img, f, err := imagecodec.Decode(data, s.MaxDimension); err == nil {
		return SniffResult{Image: img, Encoding: string(f)}, nil
	}
	if img, err := s.decodeSHP(data); err == nil {
		return SniffResult{Image: img, Encoding: EncodingSHP}, nil
	}
	if img, g, ok := s.sniffRaw(data); ok {
		return SniffResult{Image: img, Encoding: EncodingRaw, Geometry: g}, nil
	}
	return SniffResult{}, ErrDecode
}

// SniffAs accepts data only as the given standard encoding.
func (s *Sniffer) SniffAs(f imagecodec.Format, data []byte) (SniffResult, error) {
	img, err := imagecodec.DecodeAs(f, data, s.MaxDimension)
	if err != nil {
		return SniffResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return SniffResult{Image: img, Encoding: string(f)}, nil
}

func (s *Sniffer) decodeSHP(data []byte) (image.Image, error) {
	shp, err := parseSHP(data, s.MaxDimension)
	if err != nil {
		return nil, err
	}
	pal := s.Palette
	if pal == nil {
		gray := GrayscalePalette()
		pal = &gray
	}
	img := shp.decodeFrame(0, pal)
	if img == nil {
		return nil, errors.New("shp: empty first frame")
	}
	return img, nil
}

// Candidates returns the raw geometries tried for an n-byte payload, in
// order: exact-size matches first, then stride-4 truncating matches. Within
// a tier smaller pixel counts come first, then squarer shapes, then stride
// list order, then narrower widths.
func (s *Sniffer) Candidates(n int) []Geometry {
	type cand struct {
		g      Geometry
		stride int // index into s.Strides
	}
	var exact, loose []cand
	for si, stride := range s.Strides {
		if stride <= 0 {
			continue
		}
		for _, w := range s.Widths {
			for _, h := range s.Heights {
				if w <= 0 || h <= 0 {
					continue
				}
				if w*h*stride == n {
					exact = append(exact, cand{Geometry{w, h, stride}, si})
				}
			}
		}
	}
	for _, w := range s.Widths {
		for _, h := range s.Heights {
			if w > 0 && h > 0 && w*h*4 < n {
				loose = append(loose, cand{Geometry{w, h, 4}, 0})
			}
		}
	}

	less := func(list []cand) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := list[i], list[j]
			if a.g.Pixels() != b.g.Pixels() {
				return a.g.Pixels() < b.g.Pixels()
			}
			if da, db := absInt(a.g.Width-a.g.Height), absInt(b.g.Width-b.g.Height); da != db {
				return da < db
			}
			if a.stride != b.stride {
				return a.stride < b.stride
			}
			return a.g.Width < b.g.Width
		}
	}
	sort.SliceStable(exact, less(exact))
	sort.SliceStable(loose, less(loose))

	out := make([]Geometry, 0, len(exact)+len(loose))
	for _, c := range exact {
		out = append(out, c.g)
	}
	for _, c := range loose {
		out = append(out, c.g)
	}
	return out
}

func (s *Sniffer) sniffRaw(data []byte) (*image.NRGBA, Geometry, bool) {
	for _, g := range s.Candidates(len(data)) {
		img := rawImage(data, g)
		if img == nil || degenerate(img) {
			continue
		}
		return img, g, true
	}
	return nil, Geometry{}, false
}

// rawImage builds a pixel buffer from the leading bytes of data.
func rawImage(data []byte, g Geometry) *image.NRGBA {
	need := g.Pixels() * g.Stride
	if g.Pixels() <= 0 || need > len(data) {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	switch g.Stride {
	case 4:
		copy(img.Pix, data[:need])
	case 3:
		for i, j := 0, 0; i < need; i, j = i+3, j+4 {
			img.Pix[j+0] = data[i+0]
			img.Pix[j+1] = data[i+1]
			img.Pix[j+2] = data[i+2]
			img.Pix[j+3] = 0xFF
		}
	default:
		return nil
	}
	return img
}

// degenerate reports whether every pixel is gray or every pixel is the same.
func degenerate(img *image.NRGBA) bool {
	pix := img.Pix
	if len(pix) < 4 {
		return true
	}
	gray, constant := true, true
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := pix[i], pix[i+1], pix[i+2]
		if r != g || g != b {
			gray = false
		}
		if r != pix[0] || g != pix[1] || b != pix[2] || pix[i+3] != pix[3] {
			constant = false
		}
		if !gray && !constant {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
