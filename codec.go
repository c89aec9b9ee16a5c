package mimetree

import (
	"io"
	"strings"
)

// Codec decodes and encodes a single content-transfer-encoding. Both
// operations consume their reader until end-of-input and must not read
// past the data they were given — the parser guarantees this by staging
// encoded leaf bodies through a bounded temp sink before handing them to
// a codec.
type Codec interface {
	Decode(r Stream, w Stream) error
	Encode(r Stream, w Stream) error
}

// WarningDecoder is implemented by codecs that can recover locally from
// a malformed-but-salvageable input instead of failing outright. The
// parser prefers this over Decode when present, routing warn through
// ParserConfig.Logger rather than losing it. uuencode's missing "end"
// line is the only current use.
type WarningDecoder interface {
	DecodeWarn(r Stream, w Stream, warn func(string)) error
}

var codecRegistry = map[string]Codec{}

// RegisterCodec adds (or replaces) the codec for a lowercased
// content-transfer-encoding name. Built-in codecs are registered by an
// init() in this package; callers may register additional ones the same
// way.
func RegisterCodec(encoding string, c Codec) {
	codecRegistry[strings.ToLower(encoding)] = c
}

// LookupCodec returns the codec registered for encoding (case
// insensitive), and whether one was found.
func LookupCodec(encoding string) (Codec, bool) {
	c, ok := codecRegistry[strings.ToLower(encoding)]
	return c, ok
}

func init() {
	RegisterCodec("7bit", lineNormalizingCodec{})
	RegisterCodec("8bit", lineNormalizingCodec{})
	RegisterCodec("binary", binaryCodec{})
	RegisterCodec("base64", base64Codec{})
	RegisterCodec("quoted-printable", quotedPrintableCodec{})
	RegisterCodec("x-uu", uuencodeCodec{})
	RegisterCodec("x-uuencode", uuencodeCodec{})
}

// copyAll drains r with Read (not ReadLine) into w, used by codecs that
// don't need line structure.
func copyAll(r Stream, w Stream) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return ioFailed(werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ioFailed(err)
		}
	}
}
