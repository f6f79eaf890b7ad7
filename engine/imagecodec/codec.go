// Package imagecodec is the image decode/encode capability used by the pak
// resolver and the exporters. Decoding is gated by magic bytes and by a
// dimension ceiling checked against the header before any pixel memory is
// allocated.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Format names an encoded image format.
type Format string

const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
	WebP Format = "webp"
	TIFF Format = "tiff"
)

var (
	ErrUnknownFormat = errors.New("unknown image format")
	ErrNoSignature   = errors.New("signature mismatch")
	ErrTooLarge      = errors.New("image dimensions exceed limit")
	ErrNoEncoder     = errors.New("format cannot be encoded")
)

// DefaultJPEGQuality is used when a caller passes a quality <= 0.
const DefaultJPEGQuality = 90

type codec struct {
	format Format
	match  func([]byte) bool
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// Decode order matters: the sniffer tries formats in this order.
var codecs = []codec{
	{PNG, func(b []byte) bool { return bytes.HasPrefix(b, pngMagic) }, png.DecodeConfig, png.Decode},
	{BMP, func(b []byte) bool { return len(b) >= 14 && b[0] == 'B' && b[1] == 'M' }, bmp.DecodeConfig, bmp.Decode},
	{JPEG, func(b []byte) bool { return bytes.HasPrefix(b, jpegMagic) }, jpeg.DecodeConfig, jpeg.Decode},
	{GIF, func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a"))
	}, gif.DecodeConfig, gif.Decode},
	{WebP, func(b []byte) bool {
		return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
	}, webp.DecodeConfig, webp.Decode},
	{TIFF, func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("II*\x00")) || bytes.HasPrefix(b, []byte("MM\x00*"))
	}, tiff.DecodeConfig, tiff.Decode},
}

// Formats returns the decodable formats in decode order.
func Formats() []Format {
	out := make([]Format, len(codecs))
	for i, c := range codecs {
		out[i] = c.format
	}
	return out
}

func lookup(f Format) (codec, bool) {
	for _, c := range codecs {
		if c.format == f {
			return c, true
		}
	}
	return codec{}, false
}

// Match reports whether data carries the leading signature of f.
func Match(f Format, data []byte) bool {
	c, ok := lookup(f)
	return ok && c.match(data)
}

// DecodeConfig reads only the header of data as format f.
func DecodeConfig(f Format, data []byte) (image.Config, error) {
	c, ok := lookup(f)
	if !ok {
		return image.Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if !c.match(data) {
		return image.Config{}, ErrNoSignature
	}
	return c.config(bytes.NewReader(data))
}

// DecodeAs decodes data as format f. Images wider or taller than maxDim are
// refused before decoding; maxDim <= 0 disables the check.
func DecodeAs(f Format, data []byte, maxDim int) (img image.Image, err error) {
	c, ok := lookup(f)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if !c.match(data) {
		return nil, ErrNoSignature
	}
	cfg, err := c.config(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s config: %w", f, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%s: empty image %dx%d", f, cfg.Width, cfg.Height)
	}
	if maxDim > 0 && (cfg.Width > maxDim || cfg.Height > maxDim) {
		return nil, fmt.Errorf("%s %dx%d: %w", f, cfg.Width, cfg.Height, ErrTooLarge)
	}

	// Third-party decoders see arbitrary bytes here; a panic must not take
	// down the caller's extraction loop.
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%s decode panic: %v", f, r)
		}
	}()
	img, err = c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", f, err)
	}
	return img, nil
}

// Decode tries every known format in order and returns the first success.
func Decode(data []byte, maxDim int) (image.Image, Format, error) {
	var errs []error
	for _, c := range codecs {
		if !c.match(data) {
			continue
		}
		img, err := DecodeAs(c.format, data, maxDim)
		if err == nil {
			return img, c.format, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, "", ErrUnknownFormat
	}
	return nil, "", errors.Join(errs...)
}

// ParseFormat normalizes a user supplied format name such as "PNG", "jpg"
// or ".bmp".
func ParseFormat(name string) (Format, error) {
	n := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	switch n {
	case "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "webp":
		return WebP, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Ext returns the conventional file extension for f, with the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// Encoder returns the encoder for f. WebP and TIFF are decode-only.
func Encoder(f Format, quality int) (imgio.Encoder, error) {
	switch f {
	case PNG:
		return imgio.PNGEncoder(), nil
	case BMP:
		return imgio.BMPEncoder(), nil
	case JPEG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		return imgio.JPEGEncoder(quality), nil
	case GIF:
		return func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoEncoder, f)
}

// Encode returns img encoded as f.
func Encode(img image.Image, f Format, quality int) ([]byte, error) {
	enc, err := Encoder(f, quality)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		return nil, fmt.Errorf("%s encode: %w", f, err)
	}
	return buf.Bytes(), nil
}

// Save encodes img as f and writes it to path.
func Save(path string, img image.Image, f Format, quality int) error {
	enc, err := Encoder(f, quality)
	if err != nil {
		return err
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
