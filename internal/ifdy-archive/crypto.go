package ifdyarchive

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
)

// maxPrealloc bounds the plaintext buffer reserved up front from the
// length stored in an untrusted header.
const maxPrealloc = 64 << 20

// newCBC builds an AES-CBC mode for key and iv in the given direction.
func newCBC(key []byte, iv [ivLen]byte, encrypt bool) (cipher.BlockMode, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if encrypt {
		return cipher.NewCBCEncrypter(block, iv[:]), nil
	}
	return cipher.NewCBCDecrypter(block, iv[:]), nil
}

// paddedLen rounds n up to the next multiple of the AES block size.
func paddedLen(n uint64) uint64 {
	return (n + aes.BlockSize - 1) / aes.BlockSize * aes.BlockSize
}

// cbcChunkWriter buffers plaintext and encrypts it in chunkLen pieces,
// keeping the CBC chain across chunks. Close pads the tail with spaces.
// The pad cannot be stripped by looking at it; readers cut the plaintext
// to the length stored in the header instead.
type cbcChunkWriter struct {
	w        io.Writer
	mode     cipher.BlockMode
	buf      []byte
	done     int64
	total    int64
	progress ProgressFunc
}

func newCBCChunkWriter(w io.Writer, mode cipher.BlockMode, total int64, progress ProgressFunc) *cbcChunkWriter {
	return &cbcChunkWriter{w: w, mode: mode, total: total, progress: progress}
}

// Write buffers p and flushes every complete chunk.
func (c *cbcChunkWriter) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	for len(c.buf) >= chunkLen {
		if err := c.flush(c.buf[:chunkLen]); err != nil {
			return 0, err
		}
		c.buf = c.buf[chunkLen:]
	}
	return len(p), nil
}

// Close pads and flushes the final short chunk, if any.
func (c *cbcChunkWriter) Close() error {
	if len(c.buf) == 0 {
		return nil
	}
	// Space-pad the tail to a whole block.
	tail := make([]byte, paddedLen(uint64(len(c.buf))))
	copy(tail, c.buf)
	for i := len(c.buf); i < len(tail); i++ {
		tail[i] = padByte
	}
	c.buf = nil
	return c.flush(tail)
}

func (c *cbcChunkWriter) flush(chunk []byte) error {
	enc := make([]byte, len(chunk))
	c.mode.CryptBlocks(enc, chunk)
	if _, err := c.w.Write(enc); err != nil {
		return err
	}
	c.done += int64(len(enc))
	if c.progress != nil {
		c.progress(c.done, c.total)
	}
	return nil
}

// decryptChunks reads the rest of r in chunkLen pieces, decrypts them and
// returns exactly length bytes of plaintext.
func decryptChunks(r io.Reader, mode cipher.BlockMode, length uint64, progress ProgressFunc) ([]byte, error) {
	// Reserve the plaintext up front, bounded for hostile headers.
	var plain bytes.Buffer
	plain.Grow(int(min(paddedLen(length), maxPrealloc)))

	chunk := make([]byte, chunkLen)
	for {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			// A torn final block means the file was cut short.
			if n%mode.BlockSize() != 0 {
				return nil, fmt.Errorf("%w: ciphertext is not a multiple of %d bytes", ErrDecode, mode.BlockSize())
			}
			mode.CryptBlocks(chunk[:n], chunk[:n])
			plain.Write(chunk[:n])
			if progress != nil {
				progress(int64(min(uint64(plain.Len()), length)), int64(length))
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading ciphertext: %w", ErrIO, err)
		}
	}

	// Cut the space padding off at the stored length.
	if uint64(plain.Len()) < length {
		return nil, fmt.Errorf("%w: ciphertext holds %d bytes, header claims %d", ErrDecode, plain.Len(), length)
	}
	return plain.Bytes()[:length], nil
}
