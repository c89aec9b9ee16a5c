package mimetree

import "testing"

func parseHeaderOnly(t *testing.T, raw string) Header {
	t.Helper()
	h, err := DefaultHeaderParser(NewMemoryStream([]byte(raw)))
	if err != nil {
		t.Fatalf("DefaultHeaderParser: %v", err)
	}
	return h
}

func TestDefaultHeaderParserBasics(t *testing.T) {
	t.Parallel()
	h := parseHeaderOnly(t, "Content-Type: text/plain; charset=utf-8\n"+
		"Content-Transfer-Encoding: Base64\n\n")

	typ, sub := h.MimeType()
	if typ != "text" || sub != "plain" {
		t.Fatalf("MimeType = %s/%s, want text/plain", typ, sub)
	}
	if enc := h.MimeEncoding(); enc != "base64" {
		t.Fatalf("MimeEncoding = %q, want lowercased %q", enc, "base64")
	}
}

func TestDefaultHeaderParserDefaultEncodingBinary(t *testing.T) {
	t.Parallel()
	h := parseHeaderOnly(t, "Content-Type: application/octet-stream\n\n")
	if enc := h.MimeEncoding(); enc != "binary" {
		t.Fatalf("MimeEncoding = %q, want %q (default)", enc, "binary")
	}
}

func TestDefaultHeaderParserStopsExactlyAtBlankLine(t *testing.T) {
	t.Parallel()
	// The point of this test is the byte position DefaultHeaderParser
	// leaves the stream at: it must not consume a single byte of body.
	s := NewMemoryStream([]byte("Content-Type: text/plain\n\nTHE BODY\n"))
	if _, err := DefaultHeaderParser(s); err != nil {
		t.Fatalf("DefaultHeaderParser: %v", err)
	}
	rest := make([]byte, 64)
	n, err := s.Read(rest)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := string(rest[:n]); got != "THE BODY\n" {
		t.Fatalf("remaining stream = %q, want %q", got, "THE BODY\n")
	}
}

func TestDefaultHeaderParserFoldedContinuation(t *testing.T) {
	t.Parallel()
	h := parseHeaderOnly(t, "Subject: a very long subject\n that wraps\n\n")
	val, ok := h.Get("Subject", 0)
	if !ok {
		t.Fatalf("Subject not found")
	}
	if want := "a very long subject that wraps"; val != want {
		t.Fatalf("Subject = %q, want %q", val, want)
	}
}

func TestDefaultHeaderParserMultipartBoundary(t *testing.T) {
	t.Parallel()
	h := parseHeaderOnly(t, "Content-Type: multipart/mixed; boundary=\"abc123\"\n\n")
	b, ok := h.MultipartBoundary()
	if !ok || b != "abc123" {
		t.Fatalf("MultipartBoundary = (%q, %v), want (%q, true)", b, ok, "abc123")
	}
}

func TestDefaultHeaderParserRecommendedFilename(t *testing.T) {
	t.Parallel()
	h := parseHeaderOnly(t, "Content-Type: image/gif\n"+
		"Content-Disposition: attachment; filename=\"pic.gif\"\n\n")
	fn, ok := h.RecommendedFilename()
	if !ok || fn != "pic.gif" {
		t.Fatalf("RecommendedFilename = (%q, %v), want (%q, true)", fn, ok, "pic.gif")
	}
}

func TestDefaultHeaderParserMalformedLineIsBadHeader(t *testing.T) {
	t.Parallel()
	_, err := DefaultHeaderParser(NewMemoryStream([]byte("this has no colon\n\n")))
	if !IsKind(err, ErrBadHeader) {
		t.Fatalf("err = %v, want BadHeader", err)
	}
}

func TestDefaultHeaderParserNoBlankLineIsBadHeader(t *testing.T) {
	t.Parallel()
	_, err := DefaultHeaderParser(NewMemoryStream([]byte("Content-Type: text/plain\n")))
	if !IsKind(err, ErrBadHeader) {
		t.Fatalf("err = %v, want BadHeader", err)
	}
}
