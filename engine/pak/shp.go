package pak

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
)

// ─── PAL (palette) format ──────────────────────────────────────────────────

// Palette maps 8-bit SHP colour indices to colours.
type Palette [256]color.RGBA

// ParsePalette reads a 768-byte 6-bit VGA palette. Index 0 is transparent.
func ParsePalette(data []byte) (Palette, error) {
	var p Palette
	if len(data) < 768 {
		return p, fmt.Errorf("palette: %d bytes, need 768", len(data))
	}
	for i := 0; i < 256; i++ {
		// 6-bit values (0-63), scale to 8-bit
		p[i] = color.RGBA{
			R: data[i*3] << 2,
			G: data[i*3+1] << 2,
			B: data[i*3+2] << 2,
			A: 255,
		}
	}
	p[0].A = 0
	return p, nil
}

// LoadPalette reads a .pal file.
func LoadPalette(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Palette{}, &FileError{Op: "read", Path: path, Err: err}
	}
	return ParsePalette(data)
}

// GrayscalePalette is used when no palette has been configured.
func GrayscalePalette() Palette {
	var p Palette
	for i := 0; i < 256; i++ {
		p[i] = color.RGBA{uint8(i), uint8(i), uint8(i), 255}
	}
	p[0].A = 0
	return p
}

// ─── SHP (TS/RA2) format ───────────────────────────────────────────────────

const (
	shpHeaderSize = 8
	shpFrameSize  = 24
	shpMaxSide    = 2000
	shpMaxFrames  = 10000
)

type shpFrame struct {
	X, Y          int
	Width, Height int
	Compression   uint8
	Offset        int
}

type shpFile struct {
	Width, Height int
	Frames        []shpFrame
	Data          []byte
}

var errNotSHP = errors.New("shp: header mismatch")

// parseSHP reads the file header and frame table. Every field the frame
// decoder relies on is range-checked here.
func parseSHP(data []byte, maxDim int) (*shpFile, error) {
	if len(data) < shpHeaderSize+shpFrameSize {
		return nil, errNotSHP
	}
	if binary.LittleEndian.Uint16(data[0:2]) != 0 {
		return nil, errNotSHP
	}
	s := &shpFile{
		Width:  int(binary.LittleEndian.Uint16(data[2:4])),
		Height: int(binary.LittleEndian.Uint16(data[4:6])),
		Data:   data,
	}
	nf := int(binary.LittleEndian.Uint16(data[6:8]))
	limit := shpMaxSide
	if maxDim > 0 && maxDim < limit {
		limit = maxDim
	}
	if s.Width <= 0 || s.Width > limit || s.Height <= 0 || s.Height > limit {
		return nil, errNotSHP
	}
	if nf <= 0 || nf > shpMaxFrames || len(data) < shpHeaderSize+nf*shpFrameSize {
		return nil, errNotSHP
	}

	s.Frames = make([]shpFrame, nf)
	for i := range s.Frames {
		// Each frame header is 24 bytes:
		// uint16 x, y, width, height; uint8 compression; 3 bytes padding;
		// uint32 radar colour; uint32 reserved; uint32 offset
		h := data[shpHeaderSize+i*shpFrameSize:]
		f := &s.Frames[i]
		f.X = int(binary.LittleEndian.Uint16(h[0:2]))
		f.Y = int(binary.LittleEndian.Uint16(h[2:4]))
		f.Width = int(binary.LittleEndian.Uint16(h[4:6]))
		f.Height = int(binary.LittleEndian.Uint16(h[6:8]))
		f.Compression = h[8]
		f.Offset = int(binary.LittleEndian.Uint32(h[20:24]))
	}

	first := s.Frames[0]
	if first.Width == 0 || first.Height == 0 {
		return nil, errNotSHP
	}
	if first.X+first.Width > s.Width || first.Y+first.Height > s.Height {
		return nil, errNotSHP
	}
	switch first.Compression {
	case 1:
		if first.Offset+first.Width*first.Height > len(data) {
			return nil, errNotSHP
		}
	case 2, 3:
		if first.Offset+2 > len(data) {
			return nil, errNotSHP
		}
	default:
		return nil, errNotSHP
	}
	if first.Offset < shpHeaderSize+nf*shpFrameSize {
		return nil, errNotSHP
	}
	return s, nil
}

func (s *shpFile) decodeFrame(idx int, pal *Palette) *image.RGBA {
	if idx < 0 || idx >= len(s.Frames) {
		return nil
	}
	f := &s.Frames[idx]
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	w, h := f.Width, f.Height
	if w == 0 || h == 0 {
		// Empty/shadow frame
		return img
	}
	off := f.Offset
	if off >= len(s.Data) {
		return img
	}

	switch f.Compression {
	case 2, 3:
		// Scanline RLE: each line has a uint16 length prefix; 0 is followed
		// by a transparent run length.
		pos := off
		for y := 0; y < h; y++ {
			if pos+2 > len(s.Data) {
				break
			}
			lineLen := int(binary.LittleEndian.Uint16(s.Data[pos : pos+2]))
			pos += 2
			end := pos + lineLen - 2
			if end > len(s.Data) {
				end = len(s.Data)
			}
			x := 0
			for pos < end && x < w {
				v := s.Data[pos]
				pos++
				if v == 0 {
					if pos >= len(s.Data) {
						break
					}
					x += int(s.Data[pos])
					pos++
					continue
				}
				img.SetRGBA(f.X+x, f.Y+y, pal[v])
				x++
			}
			if pos < end {
				pos = end
			}
		}
	default:
		// Uncompressed
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p := off + y*w + x
				if p < len(s.Data) {
					img.SetRGBA(f.X+x, f.Y+y, pal[s.Data[p]])
				}
			}
		}
	}
	return img
}
