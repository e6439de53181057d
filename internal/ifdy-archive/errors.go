package ifdyarchive

import "errors"

// Errors surfaced by archive operations. Wrong passphrases and corrupted
// files both surface as ErrDecode; the format has no integrity check that
// could tell them apart.
var (
	ErrMissingSalt    = errors.New("no salt available")
	ErrDecode         = errors.New("archive unreadable with supplied passphrase and salt")
	ErrIO             = errors.New("archive i/o failure")
	ErrSaltLength     = errors.New("embedded salt must be 160 bytes")
	ErrReservedPath   = errors.New("path is reserved for the search index")
	ErrInvalidPath    = errors.New("entry path cannot be extracted")
	ErrDuplicateEntry = errors.New("duplicate entry path")
)
