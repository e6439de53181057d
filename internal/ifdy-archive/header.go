package ifdyarchive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header is the plaintext prefix of a container. Salt is nil for legacy
// containers, whose salt lives outside the file.
type Header struct {
	Version       FormatVersion
	Salt          []byte
	PayloadLength uint64
	IV            [ivLen]byte
}

// MarshalBinary encodes the header for its format version.
func (h *Header) MarshalBinary() ([]byte, error) {
	switch h.Version {
	case FormatRND1:
		if len(h.Salt) != saltLen {
			return nil, fmt.Errorf("%w: got %d", ErrSaltLength, len(h.Salt))
		}
		out := make([]byte, 0, len(VersionTag)+saltLen+lengthLen+ivLen)
		out = append(out, VersionTag...)
		out = append(out, h.Salt...)
		return h.appendTail(out), nil
	case FormatLegacy:
		return h.appendTail(make([]byte, 0, lengthLen+ivLen)), nil
	default:
		return nil, fmt.Errorf("cannot write header version %s", h.Version)
	}
}

// appendTail appends the fields shared by every version: length and IV.
func (h *Header) appendTail(out []byte) []byte {
	out = binary.LittleEndian.AppendUint64(out, h.PayloadLength)
	return append(out, h.IV[:]...)
}

// ReadHeader parses a header from the start of r and leaves r positioned
// at the first ciphertext byte. A container that does not begin with the
// version tag is rewound and parsed as legacy.
func ReadHeader(r io.ReadSeeker) (*Header, error) {
	tag := make([]byte, len(VersionTag))
	if _, err := io.ReadFull(r, tag); err != nil {
		return nil, headerError("version tag", err)
	}

	if string(tag) == VersionTag {
		return readRND1Header(r)
	}
	if _, err := r.Seek(-int64(len(tag)), io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("%w: rewinding legacy header: %w", ErrIO, err)
	}
	return readLegacyHeader(r)
}

// readRND1Header parses everything after the version tag.
func readRND1Header(r io.Reader) (*Header, error) {
	h := &Header{Version: FormatRND1, Salt: make([]byte, saltLen)}
	if _, err := io.ReadFull(r, h.Salt); err != nil {
		return nil, headerError("salt", err)
	}
	if err := h.readTail(r); err != nil {
		return nil, err
	}
	return h, nil
}

func readLegacyHeader(r io.Reader) (*Header, error) {
	h := &Header{Version: FormatLegacy}
	if err := h.readTail(r); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) readTail(r io.Reader) error {
	var length [lengthLen]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return headerError("payload length", err)
	}
	h.PayloadLength = binary.LittleEndian.Uint64(length[:])
	if _, err := io.ReadFull(r, h.IV[:]); err != nil {
		return headerError("iv", err)
	}
	return nil
}

// headerError classifies a short header as undecodable and anything else
// as an I/O failure.
func headerError(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: header truncated at %s", ErrDecode, field)
	}
	return fmt.Errorf("%w: reading %s: %w", ErrIO, field, err)
}
