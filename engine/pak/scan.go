package pak

import (
	"bytes"

	"github.com/1siamBot/spritepak/engine/imagecodec"
)

// NotFound is returned by the scan functions when nothing matches.
const NotFound = -1

// DefaultWindow is the speculative payload size used when a signature has no
// terminator or the terminated candidate does not decode.
const DefaultWindow = 32 * 1024

// Signature marks the start, and optionally the end, of an encoded image
// embedded in a byte stream.
type Signature struct {
	Format     imagecodec.Format
	Magic      []byte
	Terminator []byte // nil: delimit with a speculative window
}

// DefaultSignatures returns the signature table in scan priority order.
func DefaultSignatures() []Signature {
	return []Signature{
		{Format: imagecodec.PNG, Magic: []byte("\x89PNG\r\n\x1a\n"), Terminator: []byte("IEND\xae\x42\x60\x82")},
		{Format: imagecodec.JPEG, Magic: []byte{0xFF, 0xD8, 0xFF}, Terminator: []byte{0xFF, 0xD9}},
		{Format: imagecodec.GIF, Magic: []byte("GIF8")},
		{Format: imagecodec.BMP, Magic: []byte("BM")},
	}
}

// FindSignature returns the offset of the first occurrence of sig at or
// after start, or NotFound.
func FindSignature(buf, sig []byte, start int) int {
	if start < 0 {
		start = 0
	}
	if len(sig) == 0 || start >= len(buf) {
		return NotFound
	}
	i := bytes.Index(buf[start:], sig)
	if i < 0 {
		return NotFound
	}
	return start + i
}

// FindTerminator returns the offset immediately after the first occurrence
// of term at or after start, or NotFound.
func FindTerminator(buf, term []byte, start int) int {
	i := FindSignature(buf, term, start)
	if i == NotFound {
		return NotFound
	}
	return i + len(term)
}

// WindowEnd returns the end of a size-byte window at start, clamped to the
// buffer.
func WindowEnd(buf []byte, start, size int) int {
	if start >= len(buf) {
		return len(buf)
	}
	if size <= 0 || size > len(buf)-start {
		return len(buf)
	}
	return start + size
}
