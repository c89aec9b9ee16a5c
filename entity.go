package mimetree

import (
	"fmt"
	"io"
	"strings"
)

// Entity is one node of the parse tree the parser returns: a header
// plus either a body sink (leaf) or an ordered list of child entities
// (multipart container). A non-leaf has no body sink; a leaf has
// exactly one body sink after a successful parse; ContentType().type
// == "multipart" iff the node has children, except for a message/rfc822
// envelope parsed under NestedNest, which has no body sink and holds the
// reparsed message as its single child. Entities are built once by
// the parser and never mutated afterward.
type Entity struct {
	header   Header
	body     BodySink
	parts    []*Entity
	typ, sub string // cached from header
}

// Head returns this entity's header.
func (e *Entity) Head() Header {
	return e.header
}

// BodySink returns this entity's body sink, or (nil, false) for a
// multipart container.
func (e *Entity) BodySink() (BodySink, bool) {
	if e.body == nil {
		return nil, false
	}
	return e.body, true
}

// ContentType returns the (type, subtype) pair cached at parse time.
func (e *Entity) ContentType() (string, string) {
	return e.typ, e.sub
}

// IsMultipart reports whether this entity's cached type is "multipart".
func (e *Entity) IsMultipart() bool {
	return e.typ == "multipart"
}

// Parts returns this entity's children, in input order. Empty for a leaf.
func (e *Entity) Parts() []*Entity {
	return e.parts
}

// Part returns the i-th child, or nil if out of range.
func (e *Entity) Part(i int) *Entity {
	if i < 0 || i >= len(e.parts) {
		return nil
	}
	return e.parts[i]
}

// AddPart appends a child entity. Used by the parser while assembling a
// multipart container; callers outside the parser should treat a
// returned tree as read-only.
func (e *Entity) AddPart(child *Entity) {
	e.parts = append(e.parts, child)
}

// DumpSkeleton writes a diagnostic, indented, human-readable dump of
// this entity and its descendants to w. This is explicitly NOT a
// round-trippable serialization; composing raw MIME text back out of a
// parsed tree is out of scope, so there is no WriteTo/Bytes here.
func (e *Entity) DumpSkeleton(w io.Writer) error {
	return e.dumpSkeleton(w, 0)
}

func (e *Entity) dumpSkeleton(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	ctype := e.typ + "/" + e.sub
	if e.body != nil {
		filename := ""
		if e.header != nil {
			if fn, ok := e.header.RecommendedFilename(); ok {
				filename = " filename=" + fn
			}
		}
		enc := ""
		if e.header != nil {
			enc = " encoding=" + e.header.MimeEncoding()
		}
		if _, err := fmt.Fprintf(w, "%s%s%s size=%d%s\n", indent, ctype, enc, e.body.Size(), filename); err != nil {
			return err
		}
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%s (%d parts)\n", indent, ctype, len(e.parts)); err != nil {
		return err
	}
	for _, part := range e.parts {
		if err := part.dumpSkeleton(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
