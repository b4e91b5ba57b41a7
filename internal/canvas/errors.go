package canvas

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every failure the graph core can report.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindInvalidEndpoint     ErrorKind = "invalid_endpoint"
	KindSelfLoop            ErrorKind = "self_loop"
	KindInvalidType         ErrorKind = "invalid_type"
	KindInvalidComponent    ErrorKind = "invalid_component"
	KindCorruptDocument     ErrorKind = "corrupt_document"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrNotFound            = errors.New("canvas: not found")
	ErrInvalidEndpoint     = errors.New("canvas: invalid endpoint")
	ErrSelfLoop            = errors.New("canvas: self loop")
	ErrInvalidType         = errors.New("canvas: invalid connection type")
	ErrInvalidComponent    = errors.New("canvas: invalid component")
	ErrCorruptDocument     = errors.New("canvas: corrupt document")
	ErrUpstreamUnavailable = errors.New("canvas: upstream unavailable")
)

var sentinelByKind = map[ErrorKind]error{
	KindNotFound:            ErrNotFound,
	KindInvalidEndpoint:     ErrInvalidEndpoint,
	KindSelfLoop:            ErrSelfLoop,
	KindInvalidType:         ErrInvalidType,
	KindInvalidComponent:    ErrInvalidComponent,
	KindCorruptDocument:     ErrCorruptDocument,
	KindUpstreamUnavailable: ErrUpstreamUnavailable,
}

// Error carries the kind and the offending id so callers can build a precise message.
type Error struct {
	Kind       ErrorKind
	Op         string
	ID         string
	Violations []Violation
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("canvas")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.ID != "" {
		fmt.Fprintf(&b, " (id=%s)", e.ID)
	}
	if len(e.Violations) > 0 {
		fmt.Fprintf(&b, ": %d violation(s), first: %s", len(e.Violations), e.Violations[0].String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := sentinelByKind[e.Kind]
	return ok && s == target
}

func newError(kind ErrorKind, op, id string) *Error {
	return &Error{Kind: kind, Op: op, ID: id}
}

// KindOf returns the kind of a canvas error anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Upstream wraps a collaborator failure (persistence, AI) as UpstreamUnavailable.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindUpstreamUnavailable, Op: op, Err: err}
}
