package ifdyarchive

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// newFlateCompressor returns a zip compressor for DEFLATE at level.
func newFlateCompressor(level int) func(io.Writer) (io.WriteCloser, error) {
	return func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	}
}

// newFlateDecompressor is the zip decompressor for DEFLATE entries.
func newFlateDecompressor(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}
