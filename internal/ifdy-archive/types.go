package ifdyarchive

import "fmt"

// Constants of the container format and its environment.
const (
	// VersionTag opens every RND1 container. Legacy containers have no tag.
	VersionTag = "RND1"

	// EnvPass names the default passphrase environment variable.
	EnvPass = "IFDYARC_PASS"

	// SaltFileName is looked up next to an archive when its header does
	// not embed a salt.
	SaltFileName = "salt.txt"

	// UserSaltFileName is the per-user fallback salt, relative to $HOME.
	UserSaltFileName = ".saltzaes.txt"

	// IndexPrefix is reserved for search index segments inside the payload.
	IndexPrefix = "/index/"

	// DefaultResultLimit caps Handle.Search results.
	DefaultResultLimit = 10
)

const (
	saltLen    = 160
	ivLen      = 16
	keyLen     = 32
	lengthLen  = 8
	chunkLen   = 64 * 1024
	pbkdf2Iter = 1000
	padByte    = ' '
)

// FormatVersion identifies the container header layout.
type FormatVersion int

const (
	// FormatLegacy containers start with the payload length and rely on an
	// external salt.
	FormatLegacy FormatVersion = 0
	// FormatRND1 containers carry the version tag and a 160-byte salt.
	FormatRND1 FormatVersion = 1
)

func (v FormatVersion) String() string {
	switch v {
	case FormatLegacy:
		return "legacy"
	case FormatRND1:
		return VersionTag
	default:
		return fmt.Sprintf("unknown(%d)", int(v))
	}
}

// ProgressFunc receives the bytes processed so far and the total for the
// current encrypt or decrypt pass.
type ProgressFunc func(done, total int64)
