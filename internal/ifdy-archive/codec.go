package ifdyarchive

import (
	"crypto/rand"
	"fmt"
	"io"
)

// newHeader prepares a header for a payload of length bytes with a fresh
// IV. RND1 headers get salt when given (it must be 160 bytes) or a new
// random one. Legacy headers keep no salt; the caller derives the key from
// the externally resolved salt.
func newHeader(version FormatVersion, salt []byte, length int) (*Header, error) {
	h := &Header{Version: version, PayloadLength: uint64(length)}
	if _, err := io.ReadFull(rand.Reader, h.IV[:]); err != nil {
		return nil, err
	}
	if version != FormatRND1 {
		return h, nil
	}

	if salt == nil {
		h.Salt = make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, h.Salt); err != nil {
			return nil, err
		}
		return h, nil
	}
	if len(salt) != saltLen {
		return nil, fmt.Errorf("%w: got %d", ErrSaltLength, len(salt))
	}
	h.Salt = append([]byte(nil), salt...)
	return h, nil
}

// encodeContainer writes hdr followed by the CBC ciphertext of payload.
// key must already be derived from the salt that hdr describes.
func encodeContainer(w io.Writer, hdr *Header, key, payload []byte, progress ProgressFunc) error {
	head, err := hdr.MarshalBinary()
	if err != nil {
		return err
	}
	mode, err := newCBC(key, hdr.IV, true)
	if err != nil {
		return err
	}

	// Emit the plaintext header.
	if _, err := w.Write(head); err != nil {
		return err
	}

	// Encrypt the payload chunk by chunk; Close pads the last block.
	cw := newCBCChunkWriter(w, mode, int64(paddedLen(hdr.PayloadLength)), progress)
	if _, err := cw.Write(payload); err != nil {
		return err
	}
	return cw.Close()
}

// saltResolver supplies the salt for containers without an embedded one.
type saltResolver func() ([]byte, error)

// decodeContainer reads a container and returns its header and the exact
// payload bytes.
func decodeContainer(r io.ReadSeeker, passphrase []byte, resolve saltResolver, progress ProgressFunc) (*Header, []byte, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}

	// Legacy headers carry no salt; look it up only now.
	salt := hdr.Salt
	if salt == nil {
		if salt, err = resolve(); err != nil {
			return nil, nil, err
		}
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return nil, nil, err
	}
	mode, err := newCBC(key, hdr.IV, false)
	if err != nil {
		return nil, nil, err
	}

	// Everything after the header is ciphertext.
	payload, err := decryptChunks(r, mode, hdr.PayloadLength, progress)
	if err != nil {
		return nil, nil, err
	}
	return hdr, payload, nil
}
