// Package pak recovers named image assets from sprite container files whose
// layout is not known in advance.
//
// A Resolver runs an ordered table of strategies against one buffer. Strict
// strategies each validate an exact container grammar; heuristic strategies
// salvage images by signature scanning and by guessing raw pixel geometry.
// The first strategy that yields at least one asset wins.
package pak

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Strategy is one way of reading a container. Attempt returns a non-empty
// container, or an error whose Kind is ErrNoMatch or ErrMalformed.
type Strategy interface {
	Name() string
	Attempt(buf []byte) (*Container, error)
}

// Options configures NewResolver. Zero values select the defaults.
type Options struct {
	Limits   Limits
	Sniffer  *Sniffer
	Window   int
	MixNames []string
	Logger   *slog.Logger
}

// Resolver tries strict strategies, then heuristic ones, in fixed order.
// It holds no per-call state and can be reused.
type Resolver struct {
	Strict    []Strategy
	Heuristic []Strategy
	Sniffer   *Sniffer
	Logger    *slog.Logger
}

// NewResolver builds the standard strategy table.
func NewResolver(opts Options) *Resolver {
	limits := opts.Limits
	def := DefaultLimits()
	if limits.MaxEntries <= 0 {
		limits.MaxEntries = def.MaxEntries
	}
	if limits.MaxNameLength <= 0 {
		limits.MaxNameLength = def.MaxNameLength
	}
	sniffer := opts.Sniffer
	if sniffer == nil {
		sniffer = NewSniffer()
	}
	r := &Resolver{Sniffer: sniffer, Logger: opts.Logger}
	for _, g := range Grammars() {
		r.Strict = append(r.Strict, NewStrictParser(g, limits))
	}
	r.Strict = append(r.Strict, NewMixParser(opts.MixNames, limits))
	r.Heuristic = []Strategy{
		NewSignatureSweep(sniffer, opts.Window),
		&FlatChunkSweep{Sniffer: sniffer},
		&WholeBuffer{Sniffer: sniffer},
	}
	return r
}

// Strategies returns the full table in the order Resolve tries it.
func (r *Resolver) Strategies() []Strategy {
	out := make([]Strategy, 0, len(r.Strict)+len(r.Heuristic))
	out = append(out, r.Strict...)
	return append(out, r.Heuristic...)
}

// Resolve returns the container produced by the first strategy that yields
// at least one asset, or an error matching ErrExhausted. Assets from strict
// strategies are sniffed for previews afterwards; a payload that does not
// decode stays in the container without one.
func (r *Resolver) Resolve(buf []byte) (*Container, error) {
	log := r.logger()
	for i, s := range r.Strategies() {
		c, err := r.attempt(s, buf)
		if err != nil {
			log.Debug("strategy rejected", "strategy", s.Name(), "err", err)
			continue
		}
		c.Strategy = s.Name()
		if i < len(r.Strict) {
			for _, a := range c.Assets {
				if r.Sniffer != nil && !a.Load(r.Sniffer) {
					log.Debug("no preview", "strategy", s.Name(), "asset", a.Name, "size", len(a.Data))
				}
			}
		}
		log.Info("container resolved", "strategy", s.Name(), "assets", len(c.Assets), "bytes", len(buf))
		return c, nil
	}
	return nil, fmt.Errorf("%w: %d strategies tried on %d bytes", ErrExhausted, len(r.Strict)+len(r.Heuristic), len(buf))
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return discard
	}
	return r.Logger
}

// attempt runs one strategy, converting panics and empty results into
// rejections so a single strategy can never end the run.
func (r *Resolver) attempt(s Strategy, buf []byte) (c *Container, err error) {
	defer func() {
		if p := recover(); p != nil {
			c, err = nil, malformed(s.Name(), 0, "panic: %v", p)
		}
	}()
	c, err = s.Attempt(buf)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, noMatch(s.Name(), 0, "no assets")
	}
	return c, nil
}

// ReadFile loads path fully into memory, closes it, and resolves the bytes.
func (r *Resolver) ReadFile(path string) (*Container, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Op: "read", Path: path, Err: err}
	}
	c, err := r.Resolve(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
