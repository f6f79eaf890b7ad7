package pak

import (
	"bytes"
	"encoding/binary"
)

// Limits are the sanity ceilings applied by the strict grammars.
type Limits struct {
	MaxEntries    int
	MaxNameLength int
}

// DefaultLimits returns the built-in ceilings.
func DefaultLimits() Limits {
	return Limits{MaxEntries: 10000, MaxNameLength: 1024}
}

// TableLayout selects how entry records and payloads are arranged.
type TableLayout int

const (
	// Sequential: each record is followed directly by its payload.
	Sequential TableLayout = iota
	// OffsetTable: records carry an absolute offset and size into the file.
	OffsetTable
)

// NameStyle selects how entry names are stored.
type NameStyle int

const (
	LengthPrefixed NameStyle = iota // uint32 length, then bytes
	NullTerminated                  // bytes up to and including a NUL
)

// Grammar is the exact binary layout of one container revision: magic,
// a run of uint32 header fields, a uint32 entry count, then the table.
type Grammar struct {
	Name      string
	Magic     []byte
	Fields    []string // uint32 header fields between the magic and the count
	SizeField string   // header field holding the total file size, if any
	Layout    TableLayout
	Names     NameStyle
}

// Known container revisions, in resolver priority order.
var (
	// PakV1: "<Pak", version, count, {name_len, name, size, data}...
	PakV1 = Grammar{
		Name:   "pak-v1",
		Magic:  []byte("<Pak"),
		Fields: []string{"version"},
		Layout: Sequential,
		Names:  LengthPrefixed,
	}
	// PackV2: "PACK", file_size, count, {offset, size, name_len, name}...
	PackV2 = Grammar{
		Name:      "pack-v2",
		Magic:     []byte("PACK"),
		Fields:    []string{"file_size"},
		SizeField: "file_size",
		Layout:    OffsetTable,
		Names:     LengthPrefixed,
	}
	// SpriteV3: 16-byte text, version, flags, count, {name\0, size, data}...
	SpriteV3 = Grammar{
		Name:   "sprite-v3",
		Magic:  []byte("SPRITEPAK v3\x00\x00\x00\x00"),
		Fields: []string{"version", "flags"},
		Layout: Sequential,
		Names:  NullTerminated,
	}
)

// Grammars returns the table-driven revisions in priority order.
func Grammars() []Grammar {
	return []Grammar{PakV1, PackV2, SpriteV3}
}

// HeaderSize is the number of bytes before the first table record.
func (g Grammar) HeaderSize() int {
	return len(g.Magic) + 4*len(g.Fields) + 4
}

// StrictParser validates a buffer against one Grammar. Any violation
// rejects the whole buffer; nothing is partially recovered.
type StrictParser struct {
	Grammar Grammar
	Limits  Limits
}

// NewStrictParser returns a parser for g with the given ceilings.
func NewStrictParser(g Grammar, limits Limits) *StrictParser {
	return &StrictParser{Grammar: g, Limits: limits}
}

func (p *StrictParser) Name() string { return p.Grammar.Name }

// Attempt parses buf. Payloads are copied; previews are not decoded here.
func (p *StrictParser) Attempt(buf []byte) (*Container, error) {
	g := p.Grammar
	name := g.Name
	if len(buf) < g.HeaderSize() {
		return nil, noMatch(name, 0, "%d bytes, header needs %d", len(buf), g.HeaderSize())
	}
	if !bytes.HasPrefix(buf, g.Magic) {
		return nil, noMatch(name, 0, "magic %q not found", g.Magic)
	}

	c := &cursor{buf: buf, pos: len(g.Magic)}
	for _, field := range g.Fields {
		v, _ := c.u32()
		if field == g.SizeField && int64(v) > int64(len(buf)) {
			return nil, malformed(name, c.pos-4, "%s %d exceeds buffer length %d", field, v, len(buf))
		}
	}
	count, _ := c.u32()
	if count == 0 {
		return nil, noMatch(name, c.pos-4, "empty entry table")
	}
	if int64(count) > int64(p.Limits.MaxEntries) {
		return nil, malformed(name, c.pos-4, "entry count %d above ceiling %d", count, p.Limits.MaxEntries)
	}

	out := &Container{Assets: make([]*Asset, 0, count)}
	for i := uint32(0); i < count; i++ {
		var (
			a   *Asset
			err error
		)
		switch g.Layout {
		case OffsetTable:
			a, err = p.readTableEntry(c, i)
		default:
			a, err = p.readSequentialEntry(c, i)
		}
		if err != nil {
			return nil, err
		}
		out.Assets = append(out.Assets, a)
	}
	return out, nil
}

func (p *StrictParser) readName(c *cursor, i uint32) (string, error) {
	name := p.Grammar.Name
	start := c.pos
	switch p.Grammar.Names {
	case NullTerminated:
		raw, err := c.cstring(p.Limits.MaxNameLength)
		if err != nil {
			return "", malformed(name, start, "entry %d name: %v", i, err)
		}
		return string(raw), nil
	default:
		n, ok := c.u32()
		if !ok {
			return "", malformed(name, start, "entry %d: short read of name length", i)
		}
		if int64(n) > int64(p.Limits.MaxNameLength) {
			return "", malformed(name, start, "entry %d name length %d above ceiling %d", i, n, p.Limits.MaxNameLength)
		}
		raw, ok := c.bytes(int(n))
		if !ok {
			return "", malformed(name, c.pos, "entry %d: short read of %d-byte name", i, n)
		}
		return string(bytes.TrimRight(raw, "\x00")), nil
	}
}

func (p *StrictParser) readSequentialEntry(c *cursor, i uint32) (*Asset, error) {
	name := p.Grammar.Name
	entryName, err := p.readName(c, i)
	if err != nil {
		return nil, err
	}
	size, ok := c.u32()
	if !ok {
		return nil, malformed(name, c.pos, "entry %d: short read of size", i)
	}
	off := c.pos
	data, ok := c.bytes(int(size))
	if !ok {
		return nil, malformed(name, off, "entry %d: size %d, %d bytes left", i, size, c.remaining())
	}
	return &Asset{Name: entryName, Data: bytes.Clone(data), Offset: int64(off)}, nil
}

func (p *StrictParser) readTableEntry(c *cursor, i uint32) (*Asset, error) {
	name := p.Grammar.Name
	at := c.pos
	offset, ok1 := c.u32()
	size, ok2 := c.u32()
	if !ok1 || !ok2 {
		return nil, malformed(name, at, "entry %d: short read of table record", i)
	}
	entryName, err := p.readName(c, i)
	if err != nil {
		return nil, err
	}
	end := uint64(offset) + uint64(size)
	if end > uint64(len(c.buf)) {
		return nil, malformed(name, at, "entry %d: offset %d + size %d exceeds file length %d", i, offset, size, len(c.buf))
	}
	return &Asset{Name: entryName, Data: bytes.Clone(c.buf[offset:end]), Offset: int64(offset)}, nil
}

// cursor is a bounds-checked little-endian reader over an immutable buffer.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) u32() (uint32, bool) {
	if c.remaining() < 4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, true
}

func (c *cursor) u16() (uint16, bool) {
	if c.remaining() < 2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, true
}

func (c *cursor) bytes(n int) ([]byte, bool) {
	if n < 0 || n > c.remaining() {
		return nil, false
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, true
}

type cursorError string

func (e cursorError) Error() string { return string(e) }

const (
	errUnterminated cursorError = "unterminated string"
	errNameTooLong  cursorError = "name exceeds length ceiling"
)

// cstring reads a NUL-terminated string of at most max bytes (excluding the
// NUL) and consumes the terminator.
func (c *cursor) cstring(max int) ([]byte, error) {
	rest := c.buf[c.pos:]
	limit := len(rest)
	if max >= 0 && max+1 < limit {
		limit = max + 1
	}
	i := bytes.IndexByte(rest[:limit], 0)
	if i < 0 {
		if limit < len(rest) {
			return nil, errNameTooLong
		}
		return nil, errUnterminated
	}
	c.pos += i + 1
	return rest[:i], nil
}
