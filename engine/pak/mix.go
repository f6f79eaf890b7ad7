package pak

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blowfish"
)

// ─── MIX format constants ───────────────────────────────────────────────────

const (
	mixFlagChecksum  = 0x00010000
	mixFlagEncrypted = 0x00020000
	mixChecksumSize  = 20 // SHA-1 trailer after the body
	mixEntrySize     = 12
	mixKeySourceSize = 80
)

// Westwood RSA public key for TS/RA2 mix files (40-byte modulus, exponent
// 0x10001). The two 40-byte key source blocks decrypt independently and
// concatenate into the 56-byte Blowfish key.
var (
	rsaModulus  = hexBig("0x51bcda086d39fce4565160d651713fa2e8aa54fa6682b04aabdd0e6af8b0c1e6d1fb4f3daa437f15")
	rsaExponent = big.NewInt(0x10001)
)

func hexBig(s string) *big.Int {
	v := new(big.Int)
	v.SetString(s, 0)
	return v
}

type mixEntry struct {
	ID     int32
	Offset uint32
	Size   uint32
}

type mixHeader struct {
	Flags      uint32
	FileCount  uint16
	BodySize   uint32
	Entries    []mixEntry
	HeaderSize int
}

// ─── CRC-based file ID (TS/RA2 "new mix" format) ───────────────────────────

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint32 {
	var t [256]uint32
	for i := 0; i < 256; i++ {
		c := uint32(i)
		for j := 0; j < 8; j++ {
			if c&1 != 0 {
				c = 0xedb88320 ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}
	return t
}

// MixID returns the TS/RA2 index ID for a file name.
func MixID(name string) int32 {
	fname := strings.ToUpper(name)
	l := len(fname)
	a := l >> 2
	if l&3 != 0 {
		fname += string(rune(l - (a << 2)))
		pad := 3 - (l & 3)
		for i := 0; i < pad; i++ {
			fname += string(fname[a<<2])
		}
	}
	var rv uint32 = 0xffffffff
	for _, b := range []byte(fname) {
		rv = (rv >> 8) ^ crcTable[b^byte(rv&0xff)]
	}
	return int32(^rv)
}

// MixParser reads Westwood MIX archives. MIX has no magic, so the parser
// only accepts a buffer whose header, index and body account for every byte.
type MixParser struct {
	Names      map[int32]string
	MaxEntries int
}

// NewMixParser labels entries whose ID matches one of names.
func NewMixParser(names []string, limits Limits) *MixParser {
	p := &MixParser{Names: make(map[int32]string, len(names)), MaxEntries: limits.MaxEntries}
	for _, n := range names {
		p.Names[MixID(n)] = n
	}
	return p
}

func (p *MixParser) Name() string { return "mix" }

// Attempt parses buf as a MIX archive.
func (p *MixParser) Attempt(buf []byte) (*Container, error) {
	m, err := p.readHeader(buf)
	if err != nil {
		return nil, err
	}
	if m.FileCount == 0 {
		return nil, noMatch("mix", 0, "empty index")
	}

	want := int64(m.HeaderSize) + int64(m.BodySize)
	if m.Flags&mixFlagChecksum != 0 {
		want += mixChecksumSize
	}
	if want != int64(len(buf)) {
		return nil, noMatch("mix", 0, "header+body %d != file length %d", want, len(buf))
	}

	out := &Container{Assets: make([]*Asset, 0, len(m.Entries))}
	for i, e := range m.Entries {
		end := uint64(e.Offset) + uint64(e.Size)
		if end > uint64(m.BodySize) {
			return nil, malformed("mix", m.HeaderSize, "entry %d: offset %d + size %d exceeds body %d", i, e.Offset, e.Size, m.BodySize)
		}
		start := m.HeaderSize + int(e.Offset)
		name, ok := p.Names[e.ID]
		if !ok {
			name = fmt.Sprintf("%08x", uint32(e.ID))
		}
		out.Assets = append(out.Assets, &Asset{
			Name:   name,
			Data:   bytes.Clone(buf[start : start+int(e.Size)]),
			Offset: int64(start),
		})
	}
	return out, nil
}

func (p *MixParser) readHeader(buf []byte) (*mixHeader, error) {
	if len(buf) < 10 {
		return nil, noMatch("mix", 0, "%d bytes, header needs 10", len(buf))
	}
	m := &mixHeader{}
	c := &cursor{buf: buf}

	// Old format: the first two bytes are a non-zero file count.
	if buf[0] != 0 || buf[1] != 0 {
		m.FileCount, _ = c.u16()
		m.BodySize, _ = c.u32()
		m.HeaderSize = 6
		return p.readIndex(c, m)
	}

	m.Flags, _ = c.u32()
	if m.Flags&^(mixFlagChecksum|mixFlagEncrypted) != 0 {
		return nil, noMatch("mix", 0, "unknown flags 0x%08x", m.Flags)
	}
	if m.Flags&mixFlagEncrypted != 0 {
		return p.readEncryptedIndex(c, m)
	}
	m.FileCount, _ = c.u16()
	m.BodySize, _ = c.u32()
	m.HeaderSize = 4 + 2 + 4
	return p.readIndex(c, m)
}

func (p *MixParser) checkCount(m *mixHeader) error {
	if p.MaxEntries > 0 && int(m.FileCount) > p.MaxEntries {
		return malformed("mix", 0, "entry count %d above ceiling %d", m.FileCount, p.MaxEntries)
	}
	return nil
}

func (p *MixParser) readIndex(c *cursor, m *mixHeader) (*mixHeader, error) {
	if err := p.checkCount(m); err != nil {
		return nil, err
	}
	index, ok := c.bytes(int(m.FileCount) * mixEntrySize)
	if !ok {
		return nil, noMatch("mix", c.pos, "index of %d entries runs past end of file", m.FileCount)
	}
	m.Entries = parseMixIndex(index, int(m.FileCount))
	m.HeaderSize += int(m.FileCount) * mixEntrySize
	return m, nil
}

func parseMixIndex(index []byte, count int) []mixEntry {
	entries := make([]mixEntry, count)
	for i := range entries {
		off := i * mixEntrySize
		entries[i].ID = int32(binary.LittleEndian.Uint32(index[off : off+4]))
		entries[i].Offset = binary.LittleEndian.Uint32(index[off+4 : off+8])
		entries[i].Size = binary.LittleEndian.Uint32(index[off+8 : off+12])
	}
	return entries
}

func (p *MixParser) readEncryptedIndex(c *cursor, m *mixHeader) (*mixHeader, error) {
	keysource, ok := c.bytes(mixKeySourceSize)
	if !ok {
		return nil, malformed("mix", c.pos, "short read of key source")
	}
	bf, err := blowfish.NewCipher(decryptKeySource(keysource))
	if err != nil {
		return nil, malformed("mix", c.pos, "blowfish init: %v", err)
	}

	// The first block holds file_count and body_size plus two index bytes.
	first, ok := c.bytes(blowfish.BlockSize)
	if !ok {
		return nil, malformed("mix", c.pos, "short read of first index block")
	}
	var block [blowfish.BlockSize]byte
	copy(block[:], first)
	decryptECB(bf, block[:])
	m.FileCount = binary.LittleEndian.Uint16(block[0:2])
	m.BodySize = binary.LittleEndian.Uint32(block[2:6])
	if err := p.checkCount(m); err != nil {
		return nil, err
	}

	indexBytes := int(m.FileCount)*mixEntrySize - 2
	blockCount := (indexBytes + blowfish.BlockSize - 1) / blowfish.BlockSize
	if blockCount < 0 {
		blockCount = 0
	}
	enc, ok := c.bytes(blockCount * blowfish.BlockSize)
	if !ok {
		return nil, malformed("mix", c.pos, "index of %d entries runs past end of file", m.FileCount)
	}
	index := make([]byte, 2+len(enc))
	copy(index[0:2], block[6:8])
	copy(index[2:], enc)
	decryptECB(bf, index[2:])

	m.Entries = parseMixIndex(index, int(m.FileCount))
	m.HeaderSize = 4 + mixKeySourceSize + (blockCount+1)*blowfish.BlockSize
	return m, nil
}

// decryptKeySource recovers the Blowfish key from the 80-byte key source
// with the public-key RSA operation.
func decryptKeySource(keysource []byte) []byte {
	// Little-endian on disk, big-endian for math/big
	reversed := make([]byte, mixKeySourceSize)
	for i := 0; i < mixKeySourceSize; i++ {
		reversed[mixKeySourceSize-1-i] = keysource[i]
	}

	block1 := new(big.Int).SetBytes(reversed[0:40])
	block2 := new(big.Int).SetBytes(reversed[40:80])
	plain1 := new(big.Int).Exp(block1, rsaExponent, rsaModulus)
	plain2 := new(big.Int).Exp(block2, rsaExponent, rsaModulus)

	// key = (plain1 << 312) + plain2, as 56 little-endian bytes
	combined := new(big.Int).Lsh(plain1, 312)
	combined.Add(combined, plain2)

	keyBE := make([]byte, 56)
	b := combined.Bytes()
	if len(b) <= 56 {
		copy(keyBE[56-len(b):], b)
	} else {
		copy(keyBE, b[len(b)-56:])
	}
	key := make([]byte, 56)
	for i := 0; i < 56; i++ {
		key[i] = keyBE[55-i]
	}
	return key
}

func decryptECB(c cipher.Block, data []byte) {
	bs := c.BlockSize()
	for i := 0; i+bs <= len(data); i += bs {
		c.Decrypt(data[i:i+bs], data[i:i+bs])
	}
}
