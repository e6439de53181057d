package ifdyarchive

import (
	"fmt"
	"os"

	"github.com/indigoparadox/ifdyutil/internal/search"
	"github.com/sirupsen/logrus"
)

// OpenOptions tune Open.
type OpenOptions struct {
	// Salt is used for legacy containers before the salt files are tried.
	// RND1 containers always use their embedded salt.
	Salt []byte

	// UserSaltFile overrides ~/.saltzaes.txt.
	UserSaltFile string

	Logger   logrus.FieldLogger
	Progress ProgressFunc
}

// Handle is an opened archive. The whole decrypted payload is held in
// memory; the archive file itself is closed once Open returns.
type Handle struct {
	path    string
	header  Header
	payload *payloadArchive
	index   *search.Index
	logger  logrus.FieldLogger
}

// Result is one search hit with the live contents of its entry.
type Result struct {
	Filename string
	Contents []byte
}

// Open decrypts the archive at path and parses its payload.
func Open(path string, passphrase []byte, opts OpenOptions) (*Handle, error) {
	logger := loggerOrDefault(opts.Logger).WithField("archive", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	resolve := func() ([]byte, error) {
		logger.Warn("Archive has no valid version")
		return resolveSalt(path, opts.Salt, opts.UserSaltFile, logger)
	}
	hdr, data, err := decodeContainer(f, passphrase, resolve, opts.Progress)
	if err != nil {
		return nil, err
	}
	if hdr.Version == FormatRND1 {
		logger.Info("Salt in header")
	}

	payload, err := openPayload(data)
	if err != nil {
		logger.WithError(err).Error("Unable to open archive")
		return nil, err
	}
	return &Handle{
		path:    path,
		header:  *hdr,
		payload: payload,
		logger:  logger,
	}, nil
}

// Path returns the archive file the handle was opened from.
func (h *Handle) Path() string {
	return h.path
}

// Version returns the container format of the opened archive.
func (h *Handle) Version() FormatVersion {
	return h.header.Version
}

// PayloadLength returns the decrypted payload size recorded in the header.
func (h *Handle) PayloadLength() uint64 {
	return h.header.PayloadLength
}

// Entries lists every payload member, index segments included.
func (h *Handle) Entries() []EntryInfo {
	return h.payload.Entries()
}

// Read returns the contents of one entry.
func (h *Handle) Read(path string) ([]byte, error) {
	return h.payload.Read(path)
}

// Search runs phrase against the archive's index and returns at most
// DefaultResultLimit results.
func (h *Handle) Search(phrase string) ([]Result, error) {
	return h.SearchLimit(phrase, DefaultResultLimit)
}

// SearchLimit is Search with an explicit result limit; zero or less
// returns every match.
func (h *Handle) SearchLimit(phrase string, limit int) ([]Result, error) {
	query, err := search.Parse(phrase)
	if err != nil {
		return nil, err
	}
	if err := h.ensureIndex(); err != nil {
		return nil, err
	}

	hits := h.index.Search(query, limit)
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		contents, err := h.payload.Read("/" + hit.Path)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Filename: hit.Path, Contents: contents})
	}
	h.logger.WithFields(logrus.Fields{"query": query.String(), "results": len(results)}).Debug("Search finished")
	return results, nil
}

// ensureIndex loads the search index on first use.
func (h *Handle) ensureIndex() error {
	if h.index != nil {
		return nil
	}
	index, err := loadIndex(h.payload)
	if err != nil {
		return err
	}
	h.index = index
	return nil
}

// Close zeroes the decrypted payload. The handle must not be used
// afterwards.
func (h *Handle) Close() {
	h.payload.wipe()
	h.index = nil
}
