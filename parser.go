package mimetree

import (
	"io"
	"os"
)

// TermState names why a boundary-scanning loop stopped reading: it
// reached end-of-input, matched a part delimiter, or matched a closing
// delimiter. Every helper in this file returns one explicitly rather
// than overloading io.EOF, since DELIM and CLOSE are both ordinary
// (non-error) outcomes the caller must branch on.
type TermState int

const (
	TermEOF TermState = iota
	TermDelim
	TermClose
)

func (t TermState) String() string {
	switch t {
	case TermDelim:
		return "DELIM"
	case TermClose:
		return "CLOSE"
	default:
		return "EOF"
	}
}

// boundary holds the two markers a multipart nesting level scans for:
// DELIM = "--"+B, CLOSE = "--"+B+"--". Comparisons are byte-exact
// against the fully-stripped line, so no trailing whitespace tolerance
// is built in here.
type boundary struct {
	delim string
	close string
}

func newBoundary(raw string) *boundary {
	return &boundary{delim: "--" + raw, close: "--" + raw + "--"}
}

// Parser runs the recursive-descent multipart grammar over a Stream.
// A Parser is not safe for concurrent use across Parse calls: lastHead
// is reset and rewritten by each call.
type Parser struct {
	cfg      ParserConfig
	lastHead Header
}

// NewParser validates cfg and returns a ready Parser.
func NewParser(cfg ParserConfig) (*Parser, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Parser{cfg: cfg}, nil
}

// LastHead returns the first header parsed during the most recent Parse
// call, even when that call ultimately failed, for post-mortem access
// to the offending message's top header.
func (p *Parser) LastHead() (Header, bool) {
	if p.lastHead == nil {
		return nil, false
	}
	return p.lastHead, true
}

// Parse consumes s from its current position and returns the resulting
// entity tree, or the first fatal error encountered. On error, the
// partially built tree is discarded; LastHead still reports the
// top-level header if one was parsed.
func (p *Parser) Parse(s Stream) (*Entity, error) {
	p.lastHead = nil
	entity, _, err := p.parsePart(s, nil, 0)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ParseReader is a convenience entry point for callers holding a plain
// io.Reader: it buffers the whole input into a MemoryStream and parses
// that. Large or streaming input should build a Stream directly
// (FileStream over an *os.File) and call NewParser(cfg).Parse instead.
func ParseReader(cfg ParserConfig, r io.Reader) (*Entity, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ioFailed(err)
	}
	p, err := NewParser(cfg)
	if err != nil {
		return nil, err
	}
	return p.Parse(NewMemoryStream(data))
}

// parsePart parses one header, then dispatches to the multipart or
// leaf branch by its mime_type. outer is the enclosing multipart's
// boundary, or nil at top level / inside an unbounded nested message.
func (p *Parser) parsePart(r Stream, outer *boundary, depth int) (*Entity, TermState, error) {
	if depth > p.cfg.maxDepth() {
		return nil, TermEOF, newErr(ErrTooDeep)
	}

	header, err := p.cfg.parseHeader(r)
	if err != nil {
		return nil, TermEOF, err
	}
	if p.lastHead == nil {
		p.lastHead = header
	}

	entity := p.cfg.newEntity()
	entity.header = header
	entity.typ, entity.sub = header.MimeType()

	if entity.typ == "multipart" {
		return p.parseMultipart(r, entity, outer, depth)
	}
	return p.parseLeaf(r, entity, outer, depth)
}

// parseMultipart parses a multipart entity's preamble, its child parts
// up to the close delimiter, and its epilogue.
func (p *Parser) parseMultipart(r Stream, entity *Entity, outer *boundary, depth int) (*Entity, TermState, error) {
	rawBoundary, ok := entity.header.MultipartBoundary()
	if !ok {
		return nil, TermEOF, newErr(ErrMissingBoundary)
	}
	inner := newBoundary(rawBoundary)

	if err := parsePreamble(inner, r); err != nil {
		return nil, TermEOF, err
	}

	for {
		child, childState, err := p.parsePart(r, inner, depth+1)
		if err != nil {
			return nil, TermEOF, err
		}
		if childState == TermEOF {
			return nil, TermEOF, unexpectedEOF(WhereBeforeClose)
		}
		entity.AddPart(child)
		if childState == TermClose {
			break
		}
	}

	epState, err := parseEpilogue(outer, r)
	if err != nil {
		return nil, TermEOF, err
	}
	return entity, epState, nil
}

// parseLeaf handles encoding selection, boundary staging when nested
// under a multipart, optional message/rfc822 reparse, and the normal
// decode-into-BodySink path.
func (p *Parser) parseLeaf(r Stream, entity *Entity, outer *boundary, depth int) (*Entity, TermState, error) {
	header := entity.header
	encName := header.MimeEncoding()
	codec, ok := LookupCodec(encName)
	if !ok {
		p.cfg.logger().Warn("unknown content-transfer-encoding, falling back to binary",
			"encoding", encName)
		codec, _ = LookupCodec("binary")
		encName = "binary"
	}

	var encodedReader Stream
	terminal := TermEOF

	if outer != nil {
		staging, cleanup, err := newStagingStream()
		if err != nil {
			return nil, TermEOF, err
		}
		defer cleanup()

		terminal, err = parseToBound(outer, r, staging)
		if err != nil {
			return nil, TermEOF, err
		}
		if err := rewindStream(staging); err != nil {
			return nil, TermEOF, err
		}
		encodedReader = staging
	} else {
		encodedReader = r
	}

	if entity.typ == "message" && entity.sub == "rfc822" && p.cfg.NestedMessageMode != NestedOff {
		nested, err := p.reparseNested(encodedReader, codec, encName, depth)
		if err != nil {
			return nil, TermEOF, err
		}
		if p.cfg.NestedMessageMode == NestedReplace {
			return nested, terminal, nil
		}
		entity.AddPart(nested)
		return entity, terminal, nil
	}

	sink, err := p.cfg.OutputBodyPolicy(header)
	if err != nil {
		return nil, TermEOF, err
	}
	sink.SetBinary(!textlike(header))

	writer, err := sink.OpenWrite()
	if err != nil {
		return nil, TermEOF, err
	}
	if err := p.runDecode(codec, encName, encodedReader, &writeOnlyStream{w: writer}); err != nil {
		writer.Close()
		return nil, TermEOF, err
	}
	if err := writer.Close(); err != nil {
		return nil, TermEOF, ioFailed(err)
	}

	entity.body = sink
	return entity, terminal, nil
}

// reparseNested decodes a message/rfc822 leaf's encoded body into a
// fresh staging Stream and recursively parses it with no enclosing
// boundary.
func (p *Parser) reparseNested(encodedReader Stream, codec Codec, encName string, depth int) (*Entity, error) {
	nested, cleanup, err := newStagingStream()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := p.runDecode(codec, encName, encodedReader, nested); err != nil {
		return nil, err
	}
	if err := rewindStream(nested); err != nil {
		return nil, err
	}

	entity, _, err := p.parsePart(nested, nil, depth+1)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// runDecode invokes codec's decode, preferring its WarningDecoder form
// (if it has one) so locally-recovered problems reach ParserConfig's
// logger instead of being discarded. Any error the codec itself
// produces is already a typed *ParseError; anything else is wrapped as
// DecodeFailed.
func (p *Parser) runDecode(codec Codec, encName string, r Stream, w Stream) error {
	var err error
	if wd, ok := codec.(WarningDecoder); ok {
		err = wd.DecodeWarn(r, w, func(msg string) {
			p.cfg.logger().Warn(msg, "encoding", encName)
		})
	} else {
		err = codec.Decode(r, w)
	}
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ParseError); ok {
		return pe
	}
	return decodeFailed(encName, err)
}

// textlike reports whether h's primary MIME type is one the parser
// treats as text for BodySink.SetBinary purposes: the binary flag is
// set to !textlike(header).
func textlike(h Header) bool {
	typ, _ := h.MimeType()
	return typ == "text" || typ == "message"
}

// parsePreamble discards lines ahead of a multipart's first part.
// Returning normally means DELIM was found;
// CLOSE and end-of-input are both fatal here (EmptyMultipart,
// UnexpectedEofInPreamble respectively).
func parsePreamble(inner *boundary, r Stream) error {
	for {
		line, err := r.ReadLine()
		if len(line) > 0 {
			stripped, _ := stripEOL(line)
			switch string(stripped) {
			case inner.delim:
				return nil
			case inner.close:
				return newErr(ErrEmptyMultipart)
			}
		}
		if err == io.EOF {
			return unexpectedEOF(WhereInPreamble)
		}
		if err != nil {
			return ioFailed(err)
		}
	}
}

// parseEpilogue discards trailing lines after a multipart's close
// delimiter. When outer is nil (top-level multipart), the rest of the
// stream is discarded and TermEOF is always returned; otherwise lines
// are discarded until outer's DELIM, CLOSE, or end-of-input, any of
// which is a normal (non-error) outcome.
func parseEpilogue(outer *boundary, r Stream) (TermState, error) {
	if outer == nil {
		if err := discardAll(r); err != nil {
			return TermEOF, err
		}
		return TermEOF, nil
	}
	for {
		line, err := r.ReadLine()
		if len(line) > 0 {
			stripped, _ := stripEOL(line)
			switch string(stripped) {
			case outer.delim:
				return TermDelim, nil
			case outer.close:
				return TermClose, nil
			}
		}
		if err == io.EOF {
			return TermEOF, nil
		}
		if err != nil {
			return TermEOF, ioFailed(err)
		}
	}
}

func discardAll(r Stream) error {
	buf := make([]byte, 32*1024)
	for {
		_, err := r.Read(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ioFailed(err)
		}
	}
}

// parseToBound is the one-line-delay boundary scan: the end-of-line
// sequence immediately preceding a boundary line
// belongs to the boundary, not the payload, so each line's terminator
// is held back and only written once the line AFTER it is confirmed not
// to be the boundary itself.
func parseToBound(bnd *boundary, r Stream, w Stream) (TermState, error) {
	var heldEOL string
	for {
		line, err := r.ReadLine()
		if len(line) > 0 {
			stripped, eol := stripEOL(line)
			switch string(stripped) {
			case bnd.delim:
				return TermDelim, nil
			case bnd.close:
				return TermClose, nil
			}
			if heldEOL != "" {
				if _, werr := w.Write([]byte(heldEOL)); werr != nil {
					return TermEOF, ioFailed(werr)
				}
			}
			if _, werr := w.Write(stripped); werr != nil {
				return TermEOF, ioFailed(werr)
			}
			heldEOL = eol
		}
		if err == io.EOF {
			return TermEOF, unexpectedEOF(WhereInBoundary)
		}
		if err != nil {
			return TermEOF, ioFailed(err)
		}
	}
}

// newStagingStream allocates a temp file wrapped as a Stream, for
// decoupling boundary scanning from decoding and for staging a nested
// message/rfc822 body ahead of its reparse. The returned cleanup
// unlinks the file; callers must defer it on every path.
func newStagingStream() (*FileStream, func(), error) {
	f, err := tempFile("mimetree-stage-*.tmp")
	if err != nil {
		return nil, nil, err
	}
	fs := NewFileStream(f)
	cleanup := func() {
		fs.Close()
		removeFile(f.Name())
	}
	return fs, cleanup, nil
}

// rewindStream flushes and seeks a staging stream back to its start so
// it can be handed to a codec or reparse as a fresh reader.
func rewindStream(s Stream) error {
	if err := s.Flush(); err != nil {
		return err
	}
	_, err := s.Seek(0, io.SeekStart)
	return err
}

func tempFile(pattern string) (*os.File, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, ioFailed(err)
	}
	return f, nil
}

func removeFile(path string) {
	_ = os.Remove(path)
}
