package pak

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"testing"

	"github.com/1siamBot/spritepak/engine/imagecodec"
)

func TestSniffPNG(t *testing.T) {
	res, err := NewSniffer().Sniff(pngBytes(t, 12, 7, 3))
	if err != nil {
		t.Fatal(err)
	}
	if res.Encoding != string(imagecodec.PNG) {
		t.Errorf("encoding = %q, want png", res.Encoding)
	}
	if b := res.Image.Bounds(); b.Dx() != 12 || b.Dy() != 7 {
		t.Errorf("bounds = %v, want 12x7", b)
	}
}

func TestSniffRawSquare(t *testing.T) {
	res, err := NewSniffer().Sniff(rawPixels(64 * 64 * 4))
	if err != nil {
		t.Fatal(err)
	}
	if res.Encoding != EncodingRaw {
		t.Fatalf("encoding = %q, want raw", res.Encoding)
	}
	if res.Geometry != (Geometry{64, 64, 4}) {
		t.Errorf("geometry = %v, want 64x64x4", res.Geometry)
	}
	if b := res.Image.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("bounds = %v, want 64x64", b)
	}
}

func TestSniffRawRGB(t *testing.T) {
	data := rawPixels(16 * 16 * 3)
	res, err := NewSniffer().Sniff(data)
	if err != nil {
		t.Fatal(err)
	}
	if res.Geometry != (Geometry{16, 16, 3}) {
		t.Fatalf("geometry = %v, want 16x16x3", res.Geometry)
	}
	want := color.NRGBA{data[3], data[4], data[5], 0xFF}
	if got := res.Image.At(1, 0); got != want {
		t.Errorf("pixel (1,0) = %v, want %v", got, want)
	}
}

func TestSniffRawLoose(t *testing.T) {
	// 16x16x4 plus a tail no geometry divides exactly.
	res, err := NewSniffer().Sniff(rawPixels(16*16*4 + 5))
	if err != nil {
		t.Fatal(err)
	}
	if res.Geometry != (Geometry{16, 16, 4}) {
		t.Errorf("geometry = %v, want 16x16x4", res.Geometry)
	}
}

func TestSniffRejectsDegenerate(t *testing.T) {
	gray := make([]byte, 64*64*4)
	for i := 0; i < len(gray); i += 4 {
		v := byte(i / 4)
		gray[i], gray[i+1], gray[i+2], gray[i+3] = v, v, v, 0xFF
	}
	constant := bytes.Repeat([]byte{0x40, 0x80, 0x20, 0xFF}, 64*64)

	for name, data := range map[string][]byte{"gray": gray, "constant": constant} {
		if _, err := NewSniffer().Sniff(data); !errors.Is(err, ErrDecode) {
			t.Errorf("%s: err = %v, want ErrDecode", name, err)
		}
	}
}

func TestSniffTooSmall(t *testing.T) {
	for _, data := range [][]byte{nil, {1, 2, 3, 4}} {
		if _, err := NewSniffer().Sniff(data); !errors.Is(err, ErrDecode) {
			t.Errorf("Sniff(%x): err = %v, want ErrDecode", data, err)
		}
	}
}

func TestSniffAsWrongFormat(t *testing.T) {
	_, err := NewSniffer().SniffAs(imagecodec.JPEG, pngBytes(t, 4, 4, 1))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestCandidatesOrder(t *testing.T) {
	got := NewSniffer().Candidates(64 * 64 * 4)
	want := []Geometry{
		{64, 64, 4},
		{32, 128, 4},
		{128, 32, 4},
		{16, 256, 4},
		{256, 16, 4},
	}
	if len(got) < len(want) {
		t.Fatalf("got %d candidates, want at least %d", len(got), len(want))
	}
	for i, g := range want {
		if got[i] != g {
			t.Errorf("candidate %d = %v, want %v", i, got[i], g)
		}
	}
	// Loose matches follow, smallest first.
	if got[len(want)] != (Geometry{16, 16, 4}) {
		t.Errorf("first loose candidate = %v, want 16x16x4", got[len(want)])
	}
}

func TestCandidatesDeterministic(t *testing.T) {
	s := NewSniffer()
	a, b := s.Candidates(98304), s.Candidates(98304)
	if len(a) != len(b) {
		t.Fatal("candidate count differs between calls")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("candidate %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

// shpBytes builds a single-frame uncompressed 4x4 SHP whose pixels are the
// palette indices 1..16.
func shpBytes() []byte {
	buf := make([]byte, 8+24+16)
	binary.LittleEndian.PutUint16(buf[2:], 4)
	binary.LittleEndian.PutUint16(buf[4:], 4)
	binary.LittleEndian.PutUint16(buf[6:], 1)
	f := buf[8:]
	binary.LittleEndian.PutUint16(f[4:], 4)
	binary.LittleEndian.PutUint16(f[6:], 4)
	f[8] = 1
	binary.LittleEndian.PutUint32(f[20:], 32)
	for i := 0; i < 16; i++ {
		buf[32+i] = byte(i + 1)
	}
	return buf
}

func TestSniffSHP(t *testing.T) {
	s := NewSniffer()
	res, err := s.Sniff(shpBytes())
	if err != nil {
		t.Fatal(err)
	}
	if res.Encoding != EncodingSHP {
		t.Fatalf("encoding = %q, want shp", res.Encoding)
	}
	if got, want := res.Image.At(1, 0), (color.RGBA{2, 2, 2, 255}); got != want {
		t.Errorf("gray pixel = %v, want %v", got, want)
	}

	raw := make([]byte, 768)
	raw[2*3] = 63
	pal, err := ParsePalette(raw)
	if err != nil {
		t.Fatal(err)
	}
	s.Palette = &pal
	res, err = s.Sniff(shpBytes())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := res.Image.At(1, 0), (color.RGBA{252, 0, 0, 255}); got != want {
		t.Errorf("palette pixel = %v, want %v", got, want)
	}
}

func TestParseSHPRejects(t *testing.T) {
	tests := map[string]func([]byte){
		"nonzero header":  func(b []byte) { b[0] = 1 },
		"zero frames":     func(b []byte) { binary.LittleEndian.PutUint16(b[6:], 0) },
		"frame outside":   func(b []byte) { binary.LittleEndian.PutUint16(b[8:], 3) },
		"bad compression": func(b []byte) { b[8+8] = 9 },
		"offset in table": func(b []byte) { binary.LittleEndian.PutUint32(b[8+20:], 8) },
		"data past end":   func(b []byte) { binary.LittleEndian.PutUint32(b[8+20:], 40) },
	}
	for name, mutate := range tests {
		b := shpBytes()
		mutate(b)
		if _, err := parseSHP(b, DefaultMaxDimension); err == nil {
			t.Errorf("%s: parseSHP accepted the buffer", name)
		}
	}
}

func TestParsePaletteShort(t *testing.T) {
	if _, err := ParsePalette(make([]byte, 100)); err == nil {
		t.Error("ParsePalette accepted 100 bytes")
	}
}
