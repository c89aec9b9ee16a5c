package mimetree

// binaryCodec copies bytes verbatim in both directions.
type binaryCodec struct{}

func (binaryCodec) Decode(r Stream, w Stream) error { return copyAll(r, w) }
func (binaryCodec) Encode(r Stream, w Stream) error { return copyAll(r, w) }
