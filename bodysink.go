package mimetree

import (
	"bytes"
	"io"
	"os"
)

// BodySink is a write-then-read destination for a leaf part's decoded
// body. Once closed for writing, its content is immutable for the rest
// of its lifetime; reopening for read always yields the same bytes.
type BodySink interface {
	// OpenWrite returns a writer; the sink truncates any prior content.
	OpenWrite() (io.WriteCloser, error)
	// OpenRead returns a reader over the sink's current content. Valid
	// only after the writer from OpenWrite has been closed.
	OpenRead() (io.ReadCloser, error)
	// SetBinary documents whether the sink holds binary or text content.
	// It never transforms the bytes already written.
	SetBinary(bool)
	Binary() bool
	// Path returns the backing file path, or ("", false) for a
	// memory-backed sink.
	Path() (string, bool)
	// Size returns the number of bytes currently held.
	Size() int64
}

// MemorySink is a BodySink backed by an in-memory buffer.
type MemorySink struct {
	buf    bytes.Buffer
	binary bool
}

// NewMemorySink returns an empty, ready-to-write MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) OpenWrite() (io.WriteCloser, error) {
	s.buf.Reset()
	return nopWriteCloser{&s.buf}, nil
}

func (s *MemorySink) OpenRead() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
}

func (s *MemorySink) SetBinary(b bool) { s.binary = b }
func (s *MemorySink) Binary() bool     { return s.binary }
func (s *MemorySink) Path() (string, bool) { return "", false }
func (s *MemorySink) Size() int64      { return int64(s.buf.Len()) }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// FileSink is a BodySink backed by a file on disk. Close on the writer
// only closes the file; when the sink is ephemeral, Remove unlinks it.
type FileSink struct {
	path      string
	binary    bool
	ephemeral bool
	size      int64
}

// NewFileSink creates a FileSink backed by path, truncating any
// existing file there on the next OpenWrite.
func NewFileSink(path string, ephemeral bool) *FileSink {
	return &FileSink{path: path, ephemeral: ephemeral}
}

// NewTempFileSink allocates a new temp file in dir (os.TempDir() if
// empty) and returns an ephemeral FileSink over it. The parser itself
// stages encoded leaf bodies through newStagingStream, not through this.
func NewTempFileSink(dir, pattern string) (*FileSink, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, ioFailed(err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, ioFailed(err)
	}
	return NewFileSink(path, true), nil
}

func (s *FileSink) OpenWrite() (io.WriteCloser, error) {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, ioFailed(err)
	}
	s.size = 0
	return &fileSinkWriter{f: f, sink: s}, nil
}

func (s *FileSink) OpenRead() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, ioFailed(err)
	}
	return f, nil
}

func (s *FileSink) SetBinary(b bool)     { s.binary = b }
func (s *FileSink) Binary() bool         { return s.binary }
func (s *FileSink) Path() (string, bool) { return s.path, true }
func (s *FileSink) Size() int64          { return s.size }

// Remove deletes the backing file if this sink is ephemeral. Safe to
// call multiple times; idempotent on a missing file.
func (s *FileSink) Remove() error {
	if !s.ephemeral {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return ioFailed(err)
	}
	return nil
}

type fileSinkWriter struct {
	f    *os.File
	sink *FileSink
}

func (w *fileSinkWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.sink.size += int64(n)
	return n, err
}

func (w *fileSinkWriter) Close() error {
	return w.f.Close()
}

// writeOnlyStream adapts an io.Writer to Stream so a codec's Decode/
// Encode (which both take Stream on either side) can write into a
// BodySink's io.WriteCloser. Reads are never valid on this side of a
// leaf decode, so they report end-of-input rather than panicking.
type writeOnlyStream struct {
	w io.Writer
}

func (s *writeOnlyStream) ReadLine() ([]byte, error)    { return nil, io.EOF }
func (s *writeOnlyStream) Read([]byte) (int, error)     { return 0, io.EOF }
func (s *writeOnlyStream) ReadExact(int) ([]byte, error) { return nil, io.ErrUnexpectedEOF }
func (s *writeOnlyStream) Write(p []byte) (int, error)  { return s.w.Write(p) }
func (s *writeOnlyStream) Flush() error                 { return nil }
func (s *writeOnlyStream) Seek(int64, int) (int64, error) {
	return 0, ioFailed(errNotSeekable)
}
func (s *writeOnlyStream) Tell() (int64, error) { return 0, ioFailed(errNotSeekable) }
func (s *writeOnlyStream) Close() error         { return nil }

// scopedTempSink allocates an ephemeral FileSink, hands it to fn, and
// guarantees the backing file is removed on every return path.
func scopedTempSink(fn func(sink *FileSink) error) error {
	sink, err := NewTempFileSink("", "mimetree-*.stage")
	if err != nil {
		return err
	}
	defer sink.Remove()
	return fn(sink)
}
