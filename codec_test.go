package mimetree

import (
	"bytes"
	"testing"
)

func runCodecRoundTrip(t *testing.T, c Codec, data []byte) []byte {
	t.Helper()

	var encoded bytes.Buffer
	encSrc := NewMemoryStream(data)
	encDst := &writeOnlyStream{w: &encoded}
	if err := c.Encode(encSrc, encDst); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded bytes.Buffer
	decSrc := NewMemoryStream(encoded.Bytes())
	decDst := &writeOnlyStream{w: &decoded}
	if err := c.Decode(decSrc, decDst); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return decoded.Bytes()
}

// decode(encode(X)) == X for base64 over arbitrary bytes, including
// sizes that aren't multiples of 3.
func TestBase64RoundTrip(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, 1, 2, 3, 4, 100, 419, 1000} {
		data := pseudoRandomBytes(n+7, n)
		got := runCodecRoundTrip(t, base64Codec{}, data)
		if !bytes.Equal(got, data) {
			t.Fatalf("n=%d: round-trip mismatch: got %d bytes, want %d", n, len(got), len(data))
		}
	}
}

// base64 encoding wraps at 76 columns.
func TestBase64EncodeWrapsAt76(t *testing.T) {
	t.Parallel()
	data := pseudoRandomBytes(99, 300)
	var out bytes.Buffer
	if err := (base64Codec{}).Encode(NewMemoryStream(data), &writeOnlyStream{w: &out}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, line := range bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n")) {
		if len(line) > 76 {
			t.Fatalf("line length %d exceeds 76: %q", len(line), line)
		}
	}
}

// base64 decode tolerates whitespace and non-alphabet noise, stopping
// at "=" padding.
func TestBase64DecodeToleratesWhitespaceAndPadding(t *testing.T) {
	t.Parallel()
	// "hello" base64-encoded is "aGVsbG8=", scattered with whitespace and
	// a stray non-alphabet character.
	input := []byte("aGVs\n bG8= extra-garbage-after-padding")
	var out bytes.Buffer
	if err := (base64Codec{}).Decode(NewMemoryStream(input), &writeOnlyStream{w: &out}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := out.String(); got != "hello" {
		t.Fatalf("decoded = %q, want %q", got, "hello")
	}
}

// binary round-trips everything, byte for byte.
func TestBinaryRoundTrip(t *testing.T) {
	t.Parallel()
	data := pseudoRandomBytes(3, 513)
	got := runCodecRoundTrip(t, binaryCodec{}, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("round-trip mismatch")
	}
}

// 7bit/8bit round-trip line-oriented ASCII with \n terminators; this is
// the one encoding where decode normalizes line endings, so the
// fixture avoids bare \r.
func Test7Bit8BitRoundTripLineOriented(t *testing.T) {
	t.Parallel()
	data := []byte("first line\nsecond line\nthird line\n")
	for _, enc := range []string{"7bit", "8bit"} {
		c, _ := LookupCodec(enc)
		got := runCodecRoundTrip(t, c, data)
		if !bytes.Equal(got, data) {
			t.Fatalf("%s round-trip: got %q, want %q", enc, got, data)
		}
	}
}

// 7bit/8bit decode normalizes \r\n to \n.
func Test7BitDecodeNormalizesCRLF(t *testing.T) {
	t.Parallel()
	c, _ := LookupCodec("7bit")
	var out bytes.Buffer
	in := NewMemoryStream([]byte("one\r\ntwo\r\nthree"))
	if err := c.Decode(in, &writeOnlyStream{w: &out}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, want := out.String(), "one\ntwo\nthree"; got != want {
		t.Fatalf("decoded = %q, want %q", got, want)
	}
}

// Quoted-printable soft line break, at the codec level directly.
func TestQuotedPrintableSoftBreak(t *testing.T) {
	t.Parallel()
	c := quotedPrintableCodec{}
	in := NewMemoryStream([]byte("A very long line that exceeds the column limit and must wrap=\nhere.\n"))
	var out bytes.Buffer
	if err := c.Decode(in, &writeOnlyStream{w: &out}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := "A very long line that exceeds the column limit and must wraphere.\n"
	if got := out.String(); got != want {
		t.Fatalf("decoded = %q, want %q", got, want)
	}
}

func TestQuotedPrintableHexEscapesAndLowercase(t *testing.T) {
	t.Parallel()
	c := quotedPrintableCodec{}
	in := NewMemoryStream([]byte("caf=c3=a9 and =3D and =3d\n"))
	var out bytes.Buffer
	if err := c.Decode(in, &writeOnlyStream{w: &out}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := "caf\xc3\xa9 and = and =\n"
	if got := out.String(); got != want {
		t.Fatalf("decoded = %q, want %q", got, want)
	}
}

func TestQuotedPrintableEncodeWrapsAt76(t *testing.T) {
	t.Parallel()
	c := quotedPrintableCodec{}
	line := bytes.Repeat([]byte("x"), 200)
	var out bytes.Buffer
	if err := c.Encode(NewMemoryStream(append(line, '\n')), &writeOnlyStream{w: &out}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, l := range bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n")) {
		l = bytes.TrimSuffix(l, []byte("="))
		if len(l) > 76 {
			t.Fatalf("line length %d exceeds 76: %q", len(l), l)
		}
	}
}

// Encode a random payload, decode what comes back, expect the
// original bytes with no errors, and confirm the begin line carries
// the requested filename.
func TestUUEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	data := pseudoRandomBytes(42, 1000)

	var encoded bytes.Buffer
	if err := EncodeUUFile(NewMemoryStream(data), &writeOnlyStream{w: &encoded}, "x.bin"); err != nil {
		t.Fatalf("EncodeUUFile: %v", err)
	}

	firstLine := encoded.Bytes()[:bytes.IndexByte(encoded.Bytes(), '\n')]
	if got, want := string(firstLine), "begin 644 x.bin"; got != want {
		t.Fatalf("begin line = %q, want %q", got, want)
	}

	var decoded bytes.Buffer
	info, err := DecodeUU(NewMemoryStream(encoded.Bytes()), &writeOnlyStream{w: &decoded})
	if err != nil {
		t.Fatalf("DecodeUU: %v", err)
	}
	if info.Filename != "x.bin" {
		t.Fatalf("Filename = %q, want %q", info.Filename, "x.bin")
	}
	if !bytes.Equal(decoded.Bytes(), data) {
		t.Fatalf("round-trip mismatch: got %d bytes, want %d", decoded.Len(), len(data))
	}
}

func TestUUDecodeNoBegin(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	_, err := DecodeUU(NewMemoryStream([]byte("not a uuencoded stream\njust text\n")), &writeOnlyStream{w: &out})
	if !IsKind(err, ErrNoBegin) {
		t.Fatalf("err = %v, want NoBegin", err)
	}
}

// Missing "end" line is recovered locally: whatever was decoded so far
// is returned, with a warning rather than an error.
func TestUUDecodeMissingEndIsRecovered(t *testing.T) {
	t.Parallel()
	data := pseudoRandomBytes(5, 45) // exactly one 45-byte uuencode line
	var encoded bytes.Buffer
	if err := EncodeUUFile(NewMemoryStream(data), &writeOnlyStream{w: &encoded}, ""); err != nil {
		t.Fatalf("EncodeUUFile: %v", err)
	}
	// Strip the trailing "end\n" line to simulate a truncated stream.
	withoutEnd := bytes.TrimSuffix(encoded.Bytes(), []byte("end\n"))

	var warned []string
	var out bytes.Buffer
	info, err := decodeUU(NewMemoryStream(withoutEnd), &writeOnlyStream{w: &out}, func(msg string) {
		warned = append(warned, msg)
	})
	if err != nil {
		t.Fatalf("decodeUU: %v", err)
	}
	if len(warned) == 0 {
		t.Fatalf("expected a warning for the missing end line")
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Fatalf("decoded %d bytes, want %d", out.Len(), len(data))
	}
	_ = info
}

// The uuencode decoder's "skip any line containing a lowercase letter"
// heuristic is preserved exactly, even though it means a
// well-formed-looking payload line gets dropped.
func TestUUDecodeSkipsLowercaseLines(t *testing.T) {
	t.Parallel()
	raw := "begin 644 f\n" +
		"has a lowercase letter so this is skipped\n" +
		"end\n"
	var out bytes.Buffer
	_, err := DecodeUU(NewMemoryStream([]byte(raw)), &writeOnlyStream{w: &out})
	if err != nil {
		t.Fatalf("DecodeUU: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing decoded, got %d bytes", out.Len())
	}
}
