package mimetree

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/textproto"
	"strings"
)

// Header is the external contract the parser depends on. This
// package's own header field parser is intentionally minimal: full
// RFC 2047/2231 header semantics (encoded words, extended parameter
// continuations) are treated as an external collaborator's concern,
// not this package's.
type Header interface {
	// MimeType returns the header's Content-Type (type, subtype), both
	// lowercased. Absent a Content-Type, implementations should return
	// ("text", "plain") per RFC default.
	MimeType() (string, string)
	// MimeEncoding returns the lowercased Content-Transfer-Encoding,
	// defaulting to "binary" when absent.
	MimeEncoding() string
	// MultipartBoundary returns the "boundary" Content-Type parameter,
	// and whether it was present.
	MultipartBoundary() (string, bool)
	// RecommendedFilename returns a filename derived from
	// Content-Disposition or Content-Type, and whether one was found.
	RecommendedFilename() (string, bool)
	// Get returns the index-th value of field (0-based), or ("", false).
	Get(field string, index int) (string, bool)
}

// TextprotoHeader is the concrete Header implementation this package
// ships for its own tests and as a usable default, built on
// net/textproto.MIMEHeader and mime.ParseMediaType. It deliberately
// carries none of the header-composing methods a full mail library
// would have (Save, WriteTo, SetFrom, ...): composing messages from
// scratch is out of scope here.
type TextprotoHeader struct {
	textproto.MIMEHeader
}

func (h TextprotoHeader) contentType() (string, map[string]string) {
	raw := h.MIMEHeader.Get("Content-Type")
	if raw == "" {
		return "text/plain", nil
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return "text/plain", nil
	}
	return strings.ToLower(mediaType), params
}

func (h TextprotoHeader) MimeType() (string, string) {
	mediaType, _ := h.contentType()
	typ, sub, ok := strings.Cut(mediaType, "/")
	if !ok {
		return typ, ""
	}
	return typ, sub
}

func (h TextprotoHeader) MimeEncoding() string {
	enc := h.MIMEHeader.Get("Content-Transfer-Encoding")
	if enc == "" {
		return "binary"
	}
	return strings.ToLower(strings.TrimSpace(enc))
}

func (h TextprotoHeader) MultipartBoundary() (string, bool) {
	_, params := h.contentType()
	b, ok := params["boundary"]
	return b, ok && b != ""
}

func (h TextprotoHeader) RecommendedFilename() (string, bool) {
	if raw := h.MIMEHeader.Get("Content-Disposition"); raw != "" {
		if _, params, err := mime.ParseMediaType(raw); err == nil {
			if fn, ok := params["filename"]; ok && fn != "" {
				return fn, true
			}
		}
	}
	_, params := h.contentType()
	if fn, ok := params["name"]; ok && fn != "" {
		return fn, true
	}
	return "", false
}

func (h TextprotoHeader) Get(field string, index int) (string, bool) {
	values := h.MIMEHeader[textproto.CanonicalMIMEHeaderKey(field)]
	if index < 0 || index >= len(values) {
		return "", false
	}
	return values[index], true
}

// DefaultHeaderParser reads an RFC-822 header off r through the blank
// line separator and returns a TextprotoHeader. It is the HeaderFactory
// ParserConfig falls back to when none is supplied.
//
// This reads one line at a time via r.ReadLine rather than handing r to
// net/textproto.Reader: textproto wraps its input in its own
// *bufio.Reader, which would read ahead past the blank-line separator
// and into the body on every call, stranding those bytes in a buffer
// this function discards on return. r.ReadLine already does its own
// buffering inside the Stream implementation, so reading through it
// line-by-line keeps the Stream's position exactly at the first body
// byte once the header is done.
func DefaultHeaderParser(r Stream) (Header, error) {
	h := textproto.MIMEHeader{}
	var lastKey string
	for {
		rawLine, err := r.ReadLine()
		if err != nil && err != io.EOF {
			return nil, ioFailed(err)
		}
		stripped, _ := stripEOL(rawLine)
		if len(stripped) == 0 {
			if len(rawLine) == 0 && err == io.EOF {
				return nil, wrapErr(ErrBadHeader, io.ErrUnexpectedEOF)
			}
			return TextprotoHeader{MIMEHeader: h}, nil
		}
		if stripped[0] == ' ' || stripped[0] == '\t' {
			if lastKey == "" {
				return nil, wrapErr(ErrBadHeader, fmt.Errorf("header continuation line before any field: %q", stripped))
			}
			if vals := h[lastKey]; len(vals) > 0 {
				vals[len(vals)-1] = vals[len(vals)-1] + " " + strings.TrimSpace(string(stripped))
			}
		} else {
			idx := bytes.IndexByte(stripped, ':')
			if idx < 0 {
				return nil, wrapErr(ErrBadHeader, fmt.Errorf("malformed header line: %q", stripped))
			}
			key := textproto.CanonicalMIMEHeaderKey(string(stripped[:idx]))
			h.Add(key, strings.TrimSpace(string(stripped[idx+1:])))
			lastKey = key
		}
		if err == io.EOF {
			return nil, wrapErr(ErrBadHeader, io.ErrUnexpectedEOF)
		}
	}
}
