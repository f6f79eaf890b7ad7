package pak

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestStrictParserRoundTrip(t *testing.T) {
	builders := []struct {
		grammar Grammar
		build   func([]entry) []byte
	}{
		{PakV1, buildPakV1},
		{PackV2, buildPack},
		{SpriteV3, buildSpriteV3},
	}
	for _, b := range builders {
		for _, n := range []int{1, 2, 5} {
			want := sampleEntries(n)
			buf := b.build(want)
			p := NewStrictParser(b.grammar, DefaultLimits())
			c, err := p.Attempt(buf)
			if err != nil {
				t.Fatalf("%s with %d entries: %v", b.grammar.Name, n, err)
			}
			checkEntries(t, c, want)
		}
	}
}

func TestStrictParserPayloadIsCopied(t *testing.T) {
	buf := buildPakV1(sampleEntries(1))
	c, err := NewStrictParser(PakV1, DefaultLimits()).Attempt(buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range buf {
		buf[i] = 0
	}
	if c.Assets[0].Data[0] != 1 {
		t.Error("asset data aliases the source buffer")
	}
}

func TestStrictParserRejectsForeignMagic(t *testing.T) {
	buf := buildPakV1(sampleEntries(2))
	for _, g := range []Grammar{PackV2, SpriteV3} {
		_, err := NewStrictParser(g, DefaultLimits()).Attempt(buf)
		if !errors.Is(err, ErrNoMatch) {
			t.Errorf("%s on a pak-v1 buffer: err = %v, want ErrNoMatch", g.Name, err)
		}
	}
}

func TestStrictParserShortBuffers(t *testing.T) {
	for _, g := range Grammars() {
		p := NewStrictParser(g, DefaultLimits())
		for n := 0; n < g.HeaderSize(); n++ {
			buf := make([]byte, n)
			copy(buf, g.Magic)
			c, err := p.Attempt(buf)
			if err == nil || c != nil {
				t.Fatalf("%s accepted a %d-byte buffer", g.Name, n)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("%s: err = %T, want *ParseError", g.Name, err)
			}
			if !errors.Is(err, ErrNoMatch) && !errors.Is(err, ErrMalformed) {
				t.Errorf("%s: err = %v, want NoMatch or Malformed", g.Name, err)
			}
		}
	}
}

func TestStrictParserTruncationNeverSucceeds(t *testing.T) {
	builders := map[string]func([]entry) []byte{
		PakV1.Name:    buildPakV1,
		PackV2.Name:   buildPack,
		SpriteV3.Name: buildSpriteV3,
	}
	for _, g := range Grammars() {
		full := builders[g.Name](sampleEntries(3))
		p := NewStrictParser(g, DefaultLimits())
		for n := 0; n < len(full); n++ {
			if c, err := p.Attempt(full[:n]); err == nil {
				t.Fatalf("%s accepted a %d/%d-byte prefix with %d assets", g.Name, n, len(full), c.Len())
			}
		}
	}
}

func TestStrictParserZeroCount(t *testing.T) {
	for _, g := range Grammars() {
		buf := make([]byte, g.HeaderSize())
		copy(buf, g.Magic)
		if g.SizeField != "" {
			binary.LittleEndian.PutUint32(buf[len(g.Magic):], uint32(len(buf)))
		}
		_, err := NewStrictParser(g, DefaultLimits()).Attempt(buf)
		if !errors.Is(err, ErrNoMatch) {
			t.Errorf("%s: err = %v, want ErrNoMatch", g.Name, err)
		}
	}
}

func TestStrictParserEntryCeiling(t *testing.T) {
	buf := buildPakV1(sampleEntries(3))
	_, err := NewStrictParser(PakV1, Limits{MaxEntries: 2, MaxNameLength: 64}).Attempt(buf)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestStrictParserNameCeiling(t *testing.T) {
	long := []entry{{name: "a_very_long_sprite_name", data: []byte{1, 2, 3}}}
	limits := Limits{MaxEntries: 10, MaxNameLength: 8}
	for _, tt := range []struct {
		g   Grammar
		buf []byte
	}{
		{PakV1, buildPakV1(long)},
		{PackV2, buildPack(long)},
		{SpriteV3, buildSpriteV3(long)},
	} {
		_, err := NewStrictParser(tt.g, limits).Attempt(tt.buf)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: err = %v, want ErrMalformed", tt.g.Name, err)
		}
	}
}

func TestPackOffsetBeyondFile(t *testing.T) {
	tests := []struct {
		name   string
		offset uint32
		size   uint32
	}{
		{"past end", 40, 4},
		{"size too large", 12, 1000},
		{"wraps uint32", 0xFFFFFFF0, 0x20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := buildPack([]entry{{name: "hero", data: []byte("abcd")}})
			binary.LittleEndian.PutUint32(buf[12:], tt.offset)
			binary.LittleEndian.PutUint32(buf[16:], tt.size)
			_, err := NewStrictParser(PackV2, DefaultLimits()).Attempt(buf)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestPackFileSizeField(t *testing.T) {
	buf := buildPack(sampleEntries(2))
	p := NewStrictParser(PackV2, DefaultLimits())

	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)+1))
	if _, err := p.Attempt(buf); !errors.Is(err, ErrMalformed) {
		t.Errorf("oversized file_size: err = %v, want ErrMalformed", err)
	}

	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)-5))
	if _, err := p.Attempt(buf); err != nil {
		t.Errorf("undersized file_size: %v", err)
	}
}

type packRecord struct {
	name      string
	off, size int  // off is relative to the table end; size < 0 runs to EOF
	fromStart bool // off is absolute
}

// packRecords builds a PACK whose records point at explicit offsets. tail
// follows the table.
func packRecords(recs []packRecord, tail string) []byte {
	tableEnd := 12
	for _, r := range recs {
		tableEnd += 12 + len(r.name) + 1
	}
	total := tableEnd + len(tail)
	var b bytes.Buffer
	b.WriteString("PACK")
	b.Write(le32(uint32(total)))
	b.Write(le32(uint32(len(recs))))
	for _, r := range recs {
		off := r.off
		if !r.fromStart {
			off += tableEnd
		}
		size := r.size
		if size < 0 {
			size = total - off
		}
		b.Write(le32(uint32(off)))
		b.Write(le32(uint32(size)))
		b.Write(le32(uint32(len(r.name) + 1)))
		b.WriteString(r.name + "\x00")
	}
	b.WriteString(tail)
	return b.Bytes()
}

func TestPackLayouts(t *testing.T) {
	tests := []struct {
		name string
		recs []packRecord
		tail string
		want func(buf []byte) []string
	}{
		{
			name: "reverse order",
			recs: []packRecord{{name: "b", off: 4, size: 4}, {name: "a", off: 0, size: 4}},
			tail: "AAAABBBB",
			want: func([]byte) []string { return []string{"BBBB", "AAAA"} },
		},
		{
			name: "overlapping",
			recs: []packRecord{{name: "x", off: 0, size: 4}, {name: "y", off: 2, size: 4}},
			tail: "abcdef",
			want: func([]byte) []string { return []string{"abcd", "cdef"} },
		},
		{
			name: "inside header",
			recs: []packRecord{{name: "magic", off: 0, size: 4, fromStart: true}, {name: "t", off: 0, size: 2}},
			tail: "zz",
			want: func([]byte) []string { return []string{"PACK", "zz"} },
		},
		{
			name: "whole file",
			recs: []packRecord{{name: "all", off: 0, size: -1, fromStart: true}},
			tail: "q",
			want: func(buf []byte) []string { return []string{string(buf)} },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := packRecords(tt.recs, tt.tail)
			c, err := NewStrictParser(PackV2, DefaultLimits()).Attempt(buf)
			if err != nil {
				t.Fatal(err)
			}
			want := tt.want(buf)
			if c.Len() != len(want) {
				t.Fatalf("got %d assets, want %d", c.Len(), len(want))
			}
			for i, w := range want {
				a := c.Assets[i]
				if a.Name != tt.recs[i].name || string(a.Data) != w {
					t.Errorf("asset %d = %q %q, want %q %q", i, a.Name, a.Data, tt.recs[i].name, w)
				}
			}
		})
	}
}

func TestSpriteV3UnterminatedName(t *testing.T) {
	var b bytes.Buffer
	b.Write(SpriteV3.Magic)
	b.Write(le32(3))
	b.Write(le32(0))
	b.Write(le32(1))
	b.WriteString("no_terminator")
	_, err := NewStrictParser(SpriteV3, DefaultLimits()).Attempt(b.Bytes())
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestCursorCString(t *testing.T) {
	c := &cursor{buf: []byte("abc\x00rest")}
	s, err := c.cstring(8)
	if err != nil || string(s) != "abc" || c.pos != 4 {
		t.Fatalf("cstring = %q, %v, pos %d", s, err, c.pos)
	}
	if _, err := c.cstring(8); err != errUnterminated {
		t.Errorf("err = %v, want errUnterminated", err)
	}
	c = &cursor{buf: []byte("abcdef\x00")}
	if _, err := c.cstring(3); err != errNameTooLong {
		t.Errorf("err = %v, want errNameTooLong", err)
	}
}
