// Package manifest records what an extraction produced: one entry per asset
// with its position in the source container, its sniffed encoding and a
// BLAKE3 digest of the payload. Manifests are stored as deterministic CBOR.
package manifest

import (
	"encoding/hex"
	"fmt"
	"os"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/1siamBot/spritepak/engine/pak"
)

// FileName is the manifest written next to extracted assets.
const FileName = "manifest.cbor"

// Version is the current manifest layout.
const Version = 1

// Entry describes one extracted asset.
type Entry struct {
	Name     string `cbor:"name"`
	Offset   int64  `cbor:"offset"`
	Size     int    `cbor:"size"`
	Encoding string `cbor:"encoding,omitempty"`
	Width    int    `cbor:"width,omitempty"`
	Height   int    `cbor:"height,omitempty"`
	Digest   string `cbor:"blake3"`
	File     string `cbor:"file,omitempty"` // exported file, relative to the manifest
}

// Manifest describes one resolved container.
type Manifest struct {
	Version  int     `cbor:"version"`
	Source   string  `cbor:"source"`
	Strategy string  `cbor:"strategy"`
	Entries  []Entry `cbor:"entries"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("manifest: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("manifest: CBOR decoder initialization failed: " + err.Error())
	}
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// New describes every asset of c. File fields are left empty.
func New(source string, c *pak.Container) *Manifest {
	m := &Manifest{Version: Version, Source: source, Strategy: c.Strategy}
	for _, a := range c.Assets {
		e := Entry{
			Name:     a.Name,
			Offset:   a.Offset,
			Size:     a.Size(),
			Encoding: a.Encoding,
			Digest:   Digest(a.Data),
		}
		if img := a.Preview(); img != nil {
			e.Width, e.Height = img.Bounds().Dx(), img.Bounds().Dy()
		}
		m.Entries = append(m.Entries, e)
	}
	return m
}

// Marshal encodes m as deterministic CBOR.
func Marshal(m *Manifest) ([]byte, error) {
	return encMode.Marshal(m)
}

// Unmarshal decodes a manifest and checks its version.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("manifest: unsupported version %d", m.Version)
	}
	return &m, nil
}

// Write stores m at path.
func Write(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &pak.FileError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Read loads the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pak.FileError{Op: "read", Path: path, Err: err}
	}
	return Unmarshal(data)
}

// Diagnose renders encoded manifest bytes in CBOR diagnostic notation.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// Verify reports the first entry whose payload in c differs from the
// recorded digest, or a count mismatch.
func (m *Manifest) Verify(c *pak.Container) error {
	if len(m.Entries) != c.Len() {
		return fmt.Errorf("manifest has %d entries, container has %d", len(m.Entries), c.Len())
	}
	for i, e := range m.Entries {
		a := c.Assets[i]
		if a.Name != e.Name {
			return fmt.Errorf("entry %d: name %q, container has %q", i, e.Name, a.Name)
		}
		if got := Digest(a.Data); got != e.Digest {
			return fmt.Errorf("entry %d (%s): digest %s, recorded %s", i, e.Name, got, e.Digest)
		}
	}
	return nil
}
