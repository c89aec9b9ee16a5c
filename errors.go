package mimetree

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind enumerates the fatal error conditions the parser and its
// codecs can raise.
type ErrorKind int

const (
	// ErrIoFailed wraps an error surfaced by the underlying Stream.
	ErrIoFailed ErrorKind = iota
	// ErrBadHeader means the header parser rejected the input.
	ErrBadHeader
	// ErrMissingBoundary means a multipart header lacked a boundary parameter.
	ErrMissingBoundary
	// ErrEmptyMultipart means the preamble ran straight into CLOSE with no parts.
	ErrEmptyMultipart
	// ErrUnexpectedEof means end-of-input arrived where a boundary line was expected.
	ErrUnexpectedEof
	// ErrTooDeep means multipart nesting exceeded ParserConfig.MaxDepth.
	ErrTooDeep
	// ErrDecodeFailed means a codec rejected its input.
	ErrDecodeFailed
	// ErrNoBegin means a uuencode stream had no "begin" line.
	ErrNoBegin
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIoFailed:
		return "IoFailed"
	case ErrBadHeader:
		return "BadHeader"
	case ErrMissingBoundary:
		return "MissingBoundary"
	case ErrEmptyMultipart:
		return "EmptyMultipart"
	case ErrUnexpectedEof:
		return "UnexpectedEof"
	case ErrTooDeep:
		return "TooDeep"
	case ErrDecodeFailed:
		return "DecodeFailed"
	case ErrNoBegin:
		return "NoBegin"
	default:
		return "Unknown"
	}
}

// Where distinguishes the several UnexpectedEof sites: preamble,
// part-body boundary scanning, or a missing close delimiter.
type Where string

const (
	WhereInPreamble   Where = "preamble"
	WhereBeforeClose  Where = "before-close"
	WhereInBoundary   Where = "boundary-scan"
)

// ParseError is the error type raised by this package's parser, codecs,
// streams and sinks; NewParser's configuration check returns a plain
// error, and errors returned by caller-supplied hooks (OutputBodyPolicy,
// HeaderFactory) are passed through unchanged. It carries
// a Kind discriminator plus whatever extra context applies to that Kind,
// and wraps any underlying cause via github.com/pkg/errors so callers can
// still recover it with errors.Cause or errors.Unwrap.
type ParseError struct {
	Kind     ErrorKind
	Where    Where  // set for ErrUnexpectedEof
	Encoding string // set for ErrDecodeFailed
	cause    error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrUnexpectedEof:
		if e.Where != "" {
			return fmt.Sprintf("mimetree: unexpected EOF (%s)", e.Where)
		}
		return "mimetree: unexpected EOF"
	case ErrDecodeFailed:
		if e.cause != nil {
			return fmt.Sprintf("mimetree: decode failed for %q: %v", e.Encoding, e.cause)
		}
		return fmt.Sprintf("mimetree: decode failed for %q", e.Encoding)
	case ErrIoFailed:
		if e.cause != nil {
			return fmt.Sprintf("mimetree: io failed: %v", e.cause)
		}
		return "mimetree: io failed"
	default:
		if e.cause != nil {
			return fmt.Sprintf("mimetree: %s: %v", e.Kind, e.cause)
		}
		return "mimetree: " + e.Kind.String()
	}
}

// Unwrap lets errors.Is / errors.As see through to the wrapped cause.
func (e *ParseError) Unwrap() error {
	return e.cause
}

// Cause satisfies github.com/pkg/errors' causer interface.
func (e *ParseError) Cause() error {
	return e.cause
}

func newErr(kind ErrorKind) *ParseError {
	return &ParseError{Kind: kind}
}

func wrapErr(kind ErrorKind, cause error) *ParseError {
	return &ParseError{Kind: kind, cause: errors.WithStack(cause)}
}

func ioFailed(cause error) *ParseError {
	return wrapErr(ErrIoFailed, cause)
}

func unexpectedEOF(where Where) *ParseError {
	return &ParseError{Kind: ErrUnexpectedEof, Where: where}
}

func decodeFailed(encoding string, cause error) *ParseError {
	return &ParseError{Kind: ErrDecodeFailed, Encoding: encoding, cause: errors.WithStack(cause)}
}

var (
	errNotSeekable        = errors.New("mimetree: underlying stream is not seekable")
	errBadWhence          = errors.New("mimetree: invalid seek whence")
	errSeekOutOfRange     = errors.New("mimetree: seek out of range")
	errWriteNotSupported  = errors.New("mimetree: LineStream does not support Write")
	errSeekNotSupported   = errors.New("mimetree: LineStream does not support Seek")
)

// IsKind reports whether err is a *ParseError of the given Kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ParseError
	for err != nil {
		if p, ok := err.(*ParseError); ok {
			pe = p
			break
		}
		err = errors.Unwrap(err)
	}
	return pe != nil && pe.Kind == kind
}
