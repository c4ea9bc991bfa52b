package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies conversion failures.
type ErrorKind int

const (
	MalformedXml ErrorKind = iota + 1
	UnrepairableXml
	MissingCoordinates
	InvalidCoordinate
	InsufficientVertices
	InvalidConfiguration
)

var errorKindNames = map[ErrorKind]string{
	MalformedXml:         "MalformedXml",
	UnrepairableXml:      "UnrepairableXml",
	MissingCoordinates:   "MissingCoordinates",
	InvalidCoordinate:    "InvalidCoordinate",
	InsufficientVertices: "InsufficientVertices",
	InvalidConfiguration: "InvalidConfiguration",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Sentinels for errors.Is; any *ParseError of the same kind matches.
var (
	ErrMalformedXML         = &ParseError{Kind: MalformedXml}
	ErrUnrepairableXML      = &ParseError{Kind: UnrepairableXml}
	ErrMissingCoordinates   = &ParseError{Kind: MissingCoordinates}
	ErrInvalidCoordinate    = &ParseError{Kind: InvalidCoordinate}
	ErrInsufficientVertices = &ParseError{Kind: InsufficientVertices}
	ErrInvalidConfiguration = &ParseError{Kind: InvalidConfiguration}
)

// Position represents a position in the input stream.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ParseError is the error type for every failure in the taxonomy above.
type ParseError struct {
	Kind    ErrorKind
	Source  string
	Pos     Position
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if !e.Pos.IsZero() {
		msg += " at " + e.Pos.String()
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports a match on kind, so errors.Is(err, ErrMalformedXML) works for
// any malformed-document failure.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

func NewParseError(kind ErrorKind, pos Position, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// WithSource returns a copy of e tagged with the input source.
func (e *ParseError) WithSource(src string) *ParseError {
	c := *e
	c.Source = src
	return &c
}

func ConfigError(format string, args ...any) error {
	return &ParseError{Kind: InvalidConfiguration, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *ParseError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
