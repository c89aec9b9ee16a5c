package mimetree

import (
	"bytes"
	"io"
	"regexp"
)

const uuencodeChunkSize = 45

var beginLineRE = regexp.MustCompile(`^begin\s*(\d*)\s*(\S*)`)

// uuencodeCodec implements "x-uu" / "x-uuencode". Decode tolerates two
// quirks: lines containing any lowercase letter are treated as
// continuation text and skipped, and a line whose declared length byte
// is inconsistent with its actual payload length is skipped rather than
// rejected outright. These heuristics are kept quirk-compatible rather
// than "fixed" — see DESIGN.md's Open Questions notes.
type uuencodeCodec struct{}

// UUBeginInfo is the mode and filename captured from a uuencode
// stream's "begin" line. Neither is applied to anything — no chmod, no
// filesystem write — they are returned purely for callers that want to
// inspect them.
type UUBeginInfo struct {
	Mode     string
	Filename string
}

func (uuencodeCodec) Decode(r Stream, w Stream) error {
	_, err := decodeUU(r, w, nil)
	return err
}

// DecodeWarn implements WarningDecoder: a missing "end" line is
// recovered locally (return what was decoded) rather than failing, and
// is reported to warn instead of being silently swallowed.
func (uuencodeCodec) DecodeWarn(r Stream, w Stream, warn func(string)) error {
	_, err := decodeUU(r, w, warn)
	return err
}

// DecodeUU is like Decode but also reports the (ignored) begin-line
// mode/filename metadata to the caller.
func DecodeUU(r Stream, w Stream) (UUBeginInfo, error) {
	return decodeUU(r, w, nil)
}

func decodeUU(r Stream, w Stream, warn func(string)) (UUBeginInfo, error) {
	var info UUBeginInfo

	// Skip lines until one matches the begin pattern.
	for {
		line, err := r.ReadLine()
		stripped, _ := stripEOL(line)
		if m := beginLineRE.FindSubmatch(stripped); m != nil {
			info.Mode = string(m[1])
			info.Filename = string(m[2])
			break
		}
		if err == io.EOF {
			return info, newErr(ErrNoBegin)
		}
		if err != nil {
			return info, ioFailed(err)
		}
	}

	for {
		line, err := r.ReadLine()
		if len(line) > 0 {
			stripped, _ := stripEOL(line)
			if bytes.HasPrefix(stripped, []byte("end")) {
				return info, nil
			}
			if hasLowercase(stripped) {
				// Skip: continuation text / signature heuristic.
			} else if data, ok := decodeUULine(stripped); ok {
				if _, werr := w.Write(data); werr != nil {
					return info, ioFailed(werr)
				}
			}
			// Lines whose declared length is inconsistent with their
			// payload length are silently skipped.
		}
		if err == io.EOF {
			if warn != nil {
				warn("uuencode stream ended before an \"end\" line")
			}
			return info, nil // NoEnd is a warning, not fatal; return what was decoded.
		}
		if err != nil {
			return info, ioFailed(err)
		}
	}
}

func hasLowercase(line []byte) bool {
	for _, c := range line {
		if c >= 'a' && c <= 'z' {
			return true
		}
	}
	return false
}

// decodeUULine decodes one uuencoded line (already EOL-stripped). ok is
// false if the line's declared length byte is inconsistent with its
// actual payload length.
func decodeUULine(line []byte) (data []byte, ok bool) {
	if len(line) == 0 {
		return nil, false
	}
	n := int(line[0]-32) & 0o77
	payload := line[1:]
	expectedGroups := (n + 2) / 3
	actualGroups := len(payload) / 4
	if expectedGroups != actualGroups {
		return nil, false
	}

	out := make([]byte, 0, actualGroups*3)
	for i := 0; i < actualGroups; i++ {
		quad := payload[i*4 : i*4+4]
		v0 := int(quad[0]-32) & 0o77
		v1 := int(quad[1]-32) & 0o77
		v2 := int(quad[2]-32) & 0o77
		v3 := int(quad[3]-32) & 0o77
		out = append(out,
			byte(v0<<2|v1>>4),
			byte((v1&0x0f)<<4|v2>>2),
			byte((v2&0x03)<<6|v3),
		)
	}
	if n > len(out) {
		n = len(out)
	}
	return out[:n], true
}

func (uuencodeCodec) Encode(r Stream, w Stream) error {
	return EncodeUUFile(r, w, "")
}

// EncodeUUFile writes a "begin 644 <filename>" header, the uuencoded
// payload in 45-byte-chunk lines, and a trailing "end" line. filename is
// taken from the leaf's content-disposition.filename by the caller; it
// is carried verbatim and never interpreted as a filesystem path.
func EncodeUUFile(r Stream, w Stream, filename string) error {
	if _, err := w.Write([]byte("begin 644 " + filename + "\n")); err != nil {
		return ioFailed(err)
	}

	chunk := make([]byte, uuencodeChunkSize)
	for {
		n, err := io.ReadFull(readerFunc(r.Read), chunk)
		if n > 0 {
			if werr := writeUULine(w, chunk[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return ioFailed(err)
		}
	}

	if _, err := w.Write([]byte("end\n")); err != nil {
		return ioFailed(err)
	}
	return nil
}

func writeUULine(w Stream, data []byte) error {
	line := make([]byte, 0, 1+((len(data)+2)/3)*4+1)
	line = append(line, uuEncodeChar(len(data)))

	for i := 0; i < len(data); i += 3 {
		var b0, b1, b2 byte
		b0 = data[i]
		if i+1 < len(data) {
			b1 = data[i+1]
		}
		if i+2 < len(data) {
			b2 = data[i+2]
		}
		line = append(line,
			uuEncodeChar(int(b0>>2)),
			uuEncodeChar(int((b0&0x03)<<4|b1>>4)),
			uuEncodeChar(int((b1&0x0f)<<2|b2>>6)),
			uuEncodeChar(int(b2&0x3f)),
		)
	}
	line = append(line, '\n')
	_, err := w.Write(line)
	if err != nil {
		return ioFailed(err)
	}
	return nil
}

func uuEncodeChar(v int) byte {
	v &= 0x3f
	if v == 0 {
		return '`'
	}
	return byte(v + 32)
}
