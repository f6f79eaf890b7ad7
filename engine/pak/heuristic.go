package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func spriteName(n int) string { return fmt.Sprintf("sprite_%d", n) }

// SignatureSweep salvages encoded images embedded anywhere in a buffer. A
// signature hit becomes an asset only if the sniffer decodes it as that
// signature's format.
type SignatureSweep struct {
	Signatures []Signature
	Window     int
	Sniffer    *Sniffer
}

// NewSignatureSweep returns a sweep over the default signature table.
func NewSignatureSweep(s *Sniffer, window int) *SignatureSweep {
	if window <= 0 {
		window = DefaultWindow
	}
	return &SignatureSweep{Signatures: DefaultSignatures(), Window: window, Sniffer: s}
}

func (s *SignatureSweep) Name() string { return "signature-sweep" }

// Attempt scans buf from offset 0. A terminated candidate that decodes moves
// the scan past its terminator; a window candidate that decodes moves it
// past the signature only, since the real end is unknown; a failed hit moves
// it one byte.
func (s *SignatureSweep) Attempt(buf []byte) (*Container, error) {
	out := &Container{}
	// next[i] caches the next hit of signature i at or after the cursor.
	next := make([]int, len(s.Signatures))
	for i := range next {
		next[i] = -2
	}

	offset := 0
	for offset < len(buf) {
		best := -1
		for i, sig := range s.Signatures {
			if next[i] != NotFound && next[i] < offset {
				next[i] = FindSignature(buf, sig.Magic, offset)
			}
			if next[i] == NotFound {
				continue
			}
			if best < 0 || next[i] < next[best] {
				best = i
			}
		}
		if best < 0 {
			break
		}
		sig := s.Signatures[best]
		hit := next[best]

		c, ok := s.extract(buf, hit, sig)
		if !ok {
			offset = hit + 1
			continue
		}
		out.Assets = append(out.Assets, &Asset{
			Name:     spriteName(len(out.Assets)),
			Data:     bytes.Clone(buf[hit:c.end]),
			Offset:   int64(hit),
			Image:    c.res.Image,
			Encoding: c.res.Encoding,
		})
		if c.terminated {
			offset = c.end
		} else {
			offset = hit + len(sig.Magic)
		}
	}

	if len(out.Assets) == 0 {
		return nil, noMatch(s.Name(), 0, "no signature yielded a decodable image")
	}
	return out, nil
}

type candidate struct {
	end        int
	terminated bool
	res        SniffResult
}

// extract delimits and validates the candidate at hit.
func (s *SignatureSweep) extract(buf []byte, hit int, sig Signature) (candidate, bool) {
	tried := NotFound
	if sig.Terminator != nil {
		end := FindTerminator(buf, sig.Terminator, hit+len(sig.Magic))
		if end != NotFound {
			tried = end
			if res, err := s.Sniffer.SniffAs(sig.Format, buf[hit:end]); err == nil {
				return candidate{end: end, terminated: true, res: res}, true
			}
		}
	}
	end := WindowEnd(buf, hit, s.Window)
	if end == tried {
		return candidate{}, false
	}
	if res, err := s.Sniffer.SniffAs(sig.Format, buf[hit:end]); err == nil {
		return candidate{end: end, res: res}, true
	}
	return candidate{}, false
}

// FlatChunkSweep reads buf as repeated (uint32 size, payload) records,
// keeping only payloads that decode as an encoded image or SHP frame. The
// records start at offset 0, or at offset 4 when the first word is an entry
// count instead of a size.
type FlatChunkSweep struct {
	Sniffer *Sniffer
}

func (f *FlatChunkSweep) Name() string { return "flat-chunk" }

func (f *FlatChunkSweep) Attempt(buf []byte) (*Container, error) {
	for _, start := range []int{0, 4} {
		if start+4 > len(buf) {
			break
		}
		if out := f.sweep(buf, start); len(out.Assets) > 0 {
			return out, nil
		}
	}
	return nil, noMatch(f.Name(), 0, "no chunk decoded as an image")
}

func (f *FlatChunkSweep) sweep(buf []byte, start int) *Container {
	out := &Container{}
	pos := start
	for pos+4 <= len(buf) {
		size := binary.LittleEndian.Uint32(buf[pos:])
		pos += 4
		if size == 0 || uint64(size) > uint64(len(buf)-pos) {
			break
		}
		data := buf[pos : pos+int(size)]
		at := pos
		pos += int(size)

		// Raw guesses cannot confirm a chunk boundary.
		res, err := f.Sniffer.Sniff(data)
		if err != nil || res.Encoding == EncodingRaw {
			continue
		}
		out.Assets = append(out.Assets, &Asset{
			Name:     spriteName(len(out.Assets)),
			Data:     bytes.Clone(data),
			Offset:   int64(at),
			Image:    res.Image,
			Encoding: res.Encoding,
			Geometry: res.Geometry,
		})
	}
	return out
}

// WholeBuffer treats the entire buffer as one candidate image. It is the
// last resort for files that are a bare image or raw pixel dump.
type WholeBuffer struct {
	Sniffer *Sniffer
}

func (w *WholeBuffer) Name() string { return "whole-buffer" }

func (w *WholeBuffer) Attempt(buf []byte) (*Container, error) {
	res, err := w.Sniffer.Sniff(buf)
	if err != nil {
		return nil, noMatch(w.Name(), 0, "%v", err)
	}
	return &Container{Assets: []*Asset{{
		Name:     spriteName(0),
		Data:     bytes.Clone(buf),
		Image:    res.Image,
		Encoding: res.Encoding,
		Geometry: res.Geometry,
	}}}, nil
}
