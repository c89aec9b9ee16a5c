package mimetree

import "io"

const qpLineWidth = 76

// quotedPrintableCodec decodes "=HH" hex escapes and treats a trailing
// "=" before a line break as a soft line break (the break itself is
// dropped). Hex digits are accepted in either case. Encoding escapes
// bytes outside printable ASCII, "=", and trailing line whitespace, and
// inserts soft breaks before any output line would exceed qpLineWidth.
type quotedPrintableCodec struct{}

func (quotedPrintableCodec) Decode(r Stream, w Stream) error {
	for {
		line, err := r.ReadLine()
		if len(line) > 0 {
			stripped, eol := stripEOL(line)
			softBreak, derr := decodeQPLine(stripped, w)
			if derr != nil {
				return derr
			}
			if !softBreak && eol != "" {
				if _, werr := w.Write([]byte(eol)); werr != nil {
					return ioFailed(werr)
				}
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

// decodeQPLine decodes one already-EOL-stripped line, returning whether
// the line ended in a soft-break "=" (in which case the caller must not
// emit a hard line break).
func decodeQPLine(line []byte, w Stream) (bool, error) {
	out := make([]byte, 0, len(line))
	i := 0
	for i < len(line) {
		c := line[i]
		if c != '=' {
			out = append(out, c)
			i++
			continue
		}
		// '=' at the very end of the line: soft break, drop it.
		if i == len(line)-1 {
			if len(out) > 0 {
				if _, err := w.Write(out); err != nil {
					return false, ioFailed(err)
				}
			}
			return true, nil
		}
		if i+2 < len(line) {
			hi, ok1 := hexVal(line[i+1])
			lo, ok2 := hexVal(line[i+2])
			if ok1 && ok2 {
				out = append(out, byte(hi<<4|lo))
				i += 3
				continue
			}
		}
		// Not a valid escape: pass the '=' through literally.
		out = append(out, c)
		i++
	}
	if len(out) > 0 {
		if _, err := w.Write(out); err != nil {
			return false, ioFailed(err)
		}
	}
	return false, nil
}

func hexVal(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	default:
		return 0, false
	}
}

func (quotedPrintableCodec) Encode(r Stream, w Stream) error {
	for {
		line, err := r.ReadLine()
		if len(line) > 0 {
			stripped, eol := stripEOL(line)
			if werr := encodeQPLine(stripped, w); werr != nil {
				return werr
			}
			if eol != "" {
				if _, werr := w.Write([]byte("\n")); werr != nil {
					return ioFailed(werr)
				}
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

func encodeQPLine(line []byte, w Stream) error {
	col := 0
	writeTok := func(tok []byte) error {
		if col+len(tok) > qpLineWidth-1 {
			if _, err := w.Write([]byte("=\n")); err != nil {
				return ioFailed(err)
			}
			col = 0
		}
		if _, err := w.Write(tok); err != nil {
			return ioFailed(err)
		}
		col += len(tok)
		return nil
	}

	for i, c := range line {
		trailing := i == len(line)-1 && (c == ' ' || c == '\t')
		if c == '=' || trailing || !isQPPrintable(c) {
			if err := writeTok(qpEscape(c)); err != nil {
				return err
			}
			continue
		}
		if err := writeTok([]byte{c}); err != nil {
			return err
		}
	}
	return nil
}

func isQPPrintable(c byte) bool {
	return (c >= 0x21 && c <= 0x7e) || c == ' ' || c == '\t'
}

var qpHexDigits = "0123456789ABCDEF"

func qpEscape(c byte) []byte {
	return []byte{'=', qpHexDigits[c>>4], qpHexDigits[c&0x0f]}
}
