package ifdyarchive

import (
	"crypto/sha1"

	"golang.org/x/crypto/pbkdf2"
)

// DeriveKey stretches passphrase with salt into an AES-256 key using
// PBKDF2-HMAC-SHA1. The iteration count is fixed by the format; changing
// it would make every existing archive unreadable.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return nil, ErrMissingSalt
	}
	return pbkdf2.Key(passphrase, salt, pbkdf2Iter, keyLen, sha1.New), nil
}
