package mimetree

import "io"

const base64LineWidth = 76

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64DecodeTable [256]int8

func init() {
	for i := range base64DecodeTable {
		base64DecodeTable[i] = -1
	}
	for i, c := range base64Alphabet {
		base64DecodeTable[c] = int8(i)
	}
}

// base64Codec implements the standard RFC-1521 alphabet. Decode ignores
// whitespace and any byte outside the alphabet, and stops at the first
// "=" padding character. Encode groups every 3 input bytes into 4
// output characters, wrapping at base64LineWidth with "\n".
type base64Codec struct{}

func (base64Codec) Decode(r Stream, w Stream) error {
	var group [4]byte
	n := 0
	buf := make([]byte, 32*1024)
	for {
		got, err := r.Read(buf)
		for i := 0; i < got; i++ {
			c := buf[i]
			if c == '=' {
				if n > 0 {
					if werr := flushBase64Group(w, group[:n]); werr != nil {
						return werr
					}
				}
				return nil
			}
			v := base64DecodeTable[c]
			if v < 0 {
				continue // whitespace or any other non-alphabet byte is ignored
			}
			group[n] = byte(v)
			n++
			if n == 4 {
				if werr := flushBase64Group(w, group[:4]); werr != nil {
					return werr
				}
				n = 0
			}
		}
		if err == io.EOF {
			if n > 0 {
				return flushBase64Group(w, group[:n])
			}
			return nil
		}
		if err != nil {
			return ioFailed(err)
		}
	}
}

// flushBase64Group writes the decoded bytes for a (possibly partial,
// from truncated input) group of base64 6-bit values.
func flushBase64Group(w Stream, sextets []byte) error {
	var out []byte
	switch len(sextets) {
	case 4:
		out = []byte{
			sextets[0]<<2 | sextets[1]>>4,
			sextets[1]<<4 | sextets[2]>>2,
			sextets[2]<<6 | sextets[3],
		}
	case 3:
		out = []byte{
			sextets[0]<<2 | sextets[1]>>4,
			sextets[1]<<4 | sextets[2]>>2,
		}
	case 2:
		out = []byte{
			sextets[0]<<2 | sextets[1]>>4,
		}
	default:
		return nil
	}
	_, err := w.Write(out)
	if err != nil {
		return ioFailed(err)
	}
	return nil
}

func (base64Codec) Encode(r Stream, w Stream) error {
	lw := &lineWrapWriter{w: w, maxLineLen: base64LineWidth}
	var group [3]byte
	n := 0
	buf := make([]byte, 32*1024)
	for {
		got, err := r.Read(buf)
		for i := 0; i < got; i++ {
			group[n] = buf[i]
			n++
			if n == 3 {
				if werr := encodeBase64Group(lw, group[:3]); werr != nil {
					return werr
				}
				n = 0
			}
		}
		if err == io.EOF {
			if n > 0 {
				if werr := encodeBase64Group(lw, group[:n]); werr != nil {
					return werr
				}
			}
			return lw.flushFinal()
		}
		if err != nil {
			return ioFailed(err)
		}
	}
}

func encodeBase64Group(lw *lineWrapWriter, octets []byte) error {
	var quartet [4]byte
	switch len(octets) {
	case 3:
		quartet[0] = base64Alphabet[octets[0]>>2]
		quartet[1] = base64Alphabet[(octets[0]<<4|octets[1]>>4)&0x3f]
		quartet[2] = base64Alphabet[(octets[1]<<2|octets[2]>>6)&0x3f]
		quartet[3] = base64Alphabet[octets[2]&0x3f]
	case 2:
		quartet[0] = base64Alphabet[octets[0]>>2]
		quartet[1] = base64Alphabet[(octets[0]<<4|octets[1]>>4)&0x3f]
		quartet[2] = base64Alphabet[(octets[1]<<2)&0x3f]
		quartet[3] = '='
	case 1:
		quartet[0] = base64Alphabet[octets[0]>>2]
		quartet[1] = base64Alphabet[(octets[0]<<4)&0x3f]
		quartet[2] = '='
		quartet[3] = '='
	default:
		return nil
	}
	_, err := lw.Write(quartet[:])
	return err
}

// lineWrapWriter inserts "\n" every maxLineLen bytes written. Used by the
// base64 encoder; the uuencode and quoted-printable encoders lay out
// their own lines.
type lineWrapWriter struct {
	w          Stream
	curLineLen int
	maxLineLen int
	wroteAny   bool
}

func (lw *lineWrapWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p)+lw.curLineLen > lw.maxLineLen {
		toWrite := lw.maxLineLen - lw.curLineLen
		if _, err := lw.w.Write(p[:toWrite]); err != nil {
			return total, ioFailed(err)
		}
		if _, err := lw.w.Write([]byte("\n")); err != nil {
			return total, ioFailed(err)
		}
		p = p[toWrite:]
		total += toWrite
		lw.curLineLen = 0
		lw.wroteAny = true
	}
	if len(p) > 0 {
		if _, err := lw.w.Write(p); err != nil {
			return total, ioFailed(err)
		}
		lw.wroteAny = true
	}
	lw.curLineLen += len(p)
	return total + len(p), nil
}

// flushFinal terminates the final (possibly partial) line.
func (lw *lineWrapWriter) flushFinal() error {
	if lw.curLineLen > 0 {
		if _, err := lw.w.Write([]byte("\n")); err != nil {
			return ioFailed(err)
		}
		lw.curLineLen = 0
	}
	return nil
}
