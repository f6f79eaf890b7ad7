package pak

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying resolver failures with errors.Is.
var (
	// ErrIO means the input file could not be read.
	ErrIO = errors.New("could not open")
	// ErrNoMatch means a strategy's header or shape check failed.
	ErrNoMatch = errors.New("no match")
	// ErrMalformed means a header matched but an internal bound was violated.
	ErrMalformed = errors.New("malformed")
	// ErrExhausted means every strategy failed on the buffer.
	ErrExhausted = errors.New("unrecognized container format")
	// ErrDecode means the sniffer could not interpret a payload as an image.
	ErrDecode = errors.New("no decodable image")
)

// ParseError reports why one strategy rejected a buffer. Kind is ErrNoMatch
// or ErrMalformed.
type ParseError struct {
	Strategy string
	Kind     error
	Offset   int
	Reason   string
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v at offset %d: %s", e.Strategy, e.Kind, e.Offset, e.Reason)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func noMatch(strategy string, off int, format string, args ...any) error {
	return &ParseError{Strategy: strategy, Kind: ErrNoMatch, Offset: off, Reason: fmt.Sprintf(format, args...)}
}

func malformed(strategy string, off int, format string, args ...any) error {
	return &ParseError{Strategy: strategy, Kind: ErrMalformed, Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// FileError wraps a filesystem failure. It matches ErrIO.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, ErrIO, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func (e *FileError) Is(target error) bool { return target == ErrIO }
