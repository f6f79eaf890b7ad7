package pak

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"
)

type entry struct {
	name string
	data []byte
}

func le32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func le16(v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return b[:]
}

// pngBytes encodes an opaque w x h image whose colours depend on seed.
func pngBytes(t *testing.T, w, h int, seed uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x*8) + seed, uint8(y*8) ^ seed, seed, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// rawPixels returns non-gray bytes that carry no image signature and whose
// leading words are too large to be chunk sizes or MIX counts.
func rawPixels(n int) []byte {
	b := make([]byte, n)
	for j := range b {
		b[j] = byte(j*31 + 7)
	}
	for j := 0; j < 8 && j < n; j++ {
		b[j] = 0xFE
	}
	return b
}

func buildPakV1(entries []entry) []byte {
	var b bytes.Buffer
	b.WriteString("<Pak")
	b.Write(le32(1))
	b.Write(le32(uint32(len(entries))))
	for _, e := range entries {
		b.Write(le32(uint32(len(e.name))))
		b.WriteString(e.name)
		b.Write(le32(uint32(len(e.data))))
		b.Write(e.data)
	}
	return b.Bytes()
}

// buildPack lays out the table first and payloads after it, NUL-terminating
// every name.
func buildPack(entries []entry) []byte {
	header := 12
	table := 0
	for _, e := range entries {
		table += 12 + len(e.name) + 1
	}
	var payload bytes.Buffer
	var tbl bytes.Buffer
	for _, e := range entries {
		tbl.Write(le32(uint32(header + table + payload.Len())))
		tbl.Write(le32(uint32(len(e.data))))
		tbl.Write(le32(uint32(len(e.name) + 1)))
		tbl.WriteString(e.name)
		tbl.WriteByte(0)
		payload.Write(e.data)
	}
	total := header + tbl.Len() + payload.Len()
	var b bytes.Buffer
	b.WriteString("PACK")
	b.Write(le32(uint32(total)))
	b.Write(le32(uint32(len(entries))))
	b.Write(tbl.Bytes())
	b.Write(payload.Bytes())
	return b.Bytes()
}

func buildSpriteV3(entries []entry) []byte {
	var b bytes.Buffer
	b.Write(SpriteV3.Magic)
	b.Write(le32(3))
	b.Write(le32(0))
	b.Write(le32(uint32(len(entries))))
	for _, e := range entries {
		b.WriteString(e.name)
		b.WriteByte(0)
		b.Write(le32(uint32(len(e.data))))
		b.Write(e.data)
	}
	return b.Bytes()
}

// buildMix writes an unencrypted MIX. flags < 0 selects the old layout.
func buildMix(flags int64, entries []entry) []byte {
	var body bytes.Buffer
	var index bytes.Buffer
	for _, e := range entries {
		index.Write(le32(uint32(MixID(e.name))))
		index.Write(le32(uint32(body.Len())))
		index.Write(le32(uint32(len(e.data))))
		body.Write(e.data)
	}
	var b bytes.Buffer
	if flags >= 0 {
		b.Write(le32(uint32(flags)))
	}
	b.Write(le16(uint16(len(entries))))
	b.Write(le32(uint32(body.Len())))
	b.Write(index.Bytes())
	b.Write(body.Bytes())
	if flags >= 0 && flags&mixFlagChecksum != 0 {
		b.Write(make([]byte, mixChecksumSize))
	}
	return b.Bytes()
}

func sampleEntries(n int) []entry {
	out := make([]entry, n)
	for i := range out {
		out[i] = entry{
			name: string(rune('a'+i)) + "_sprite",
			data: bytes.Repeat([]byte{byte(i + 1)}, i+3),
		}
	}
	return out
}

func checkEntries(t *testing.T, c *Container, want []entry) {
	t.Helper()
	if c.Len() != len(want) {
		t.Fatalf("got %d assets, want %d", c.Len(), len(want))
	}
	for i, a := range c.Assets {
		if a.Name != want[i].name {
			t.Errorf("asset %d name = %q, want %q", i, a.Name, want[i].name)
		}
		if !bytes.Equal(a.Data, want[i].data) {
			t.Errorf("asset %d data = %x, want %x", i, a.Data, want[i].data)
		}
	}
}
