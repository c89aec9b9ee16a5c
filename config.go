package mimetree

import (
	"fmt"
	"log/slog"
)

// NestedMessageMode selects how a leaf message/rfc822 body is folded
// back into the entity tree once it has been reparsed.
type NestedMessageMode int

const (
	// NestedOff treats message/rfc822 as an opaque leaf. Default.
	NestedOff NestedMessageMode = iota
	// NestedNest attaches the reparsed message as the envelope's sole child.
	NestedNest
	// NestedReplace discards the envelope entirely, keeping only the
	// reparsed inner message.
	NestedReplace
)

// DefaultMaxDepth is the nesting-depth ceiling applied when
// ParserConfig.MaxDepth is left at zero.
const DefaultMaxDepth = 32

// BodySinkFactory is the caller-supplied policy hook that allocates a
// fresh BodySink for a leaf part, given that leaf's header. Required.
type BodySinkFactory func(h Header) (BodySink, error)

// EntityFactory optionally constructs entities, letting callers return a
// subclassed/instrumented Entity from the pool the parser builds.
type EntityFactory func() *Entity

// HeaderFactory optionally overrides how a header is parsed out of a
// Stream. Defaults to DefaultHeaderParser.
type HeaderFactory func(r Stream) (Header, error)

// ParserConfig configures a Parser. OutputBodyPolicy is required; every
// other field has a workable default.
type ParserConfig struct {
	// OutputBodyPolicy allocates the BodySink for each leaf part.
	OutputBodyPolicy BodySinkFactory

	// NestedMessageMode selects Off/Nest/Replace handling of message/rfc822.
	NestedMessageMode NestedMessageMode

	// MaxDepth bounds multipart recursion depth. <=0 means DefaultMaxDepth.
	MaxDepth int

	// EntityFactory optionally constructs Entity values.
	EntityFactory EntityFactory

	// HeaderFactory optionally overrides header parsing.
	HeaderFactory HeaderFactory

	// Logger receives warnings for recovered (non-fatal) conditions:
	// unknown transfer-encodings falling back to binary, and uuencode
	// streams missing their "end" line. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c *ParserConfig) validate() error {
	if c.OutputBodyPolicy == nil {
		return fmt.Errorf("mimetree: ParserConfig.OutputBodyPolicy is required")
	}
	return nil
}

func (c *ParserConfig) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

func (c *ParserConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *ParserConfig) newEntity() *Entity {
	if c.EntityFactory != nil {
		return c.EntityFactory()
	}
	return &Entity{}
}

func (c *ParserConfig) parseHeader(r Stream) (Header, error) {
	if c.HeaderFactory != nil {
		return c.HeaderFactory(r)
	}
	return DefaultHeaderParser(r)
}
