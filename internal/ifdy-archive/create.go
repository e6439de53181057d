package ifdyarchive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/indigoparadox/ifdyutil/internal/search"
	"github.com/sirupsen/logrus"
)

// CreateOptions tune Create. The zero value writes an RND1 container with
// a fresh salt and a zstd-compressed search index.
type CreateOptions struct {
	// Salt is embedded in RND1 containers and must then be 160 bytes.
	// Legacy containers use it as the first salt source.
	Salt []byte

	// Legacy writes a container without version tag or embedded salt. The
	// salt is resolved like on read: Salt, salt.txt next to the archive,
	// then UserSaltFile.
	Legacy bool

	// UserSaltFile overrides ~/.saltzaes.txt.
	UserSaltFile string

	// NoIndex skips building the search index.
	NoIndex bool

	// CompressionLevel is the DEFLATE level for user entries; zero selects
	// the default.
	CompressionLevel int

	// SegmentCompression names the index segment compression: "zstd"
	// (default), "lz4" or "none".
	SegmentCompression string

	// MaxSegmentDocs splits the index into segments of at most this many
	// documents; zero keeps a single segment.
	MaxSegmentDocs int

	Logger   logrus.FieldLogger
	Progress ProgressFunc
}

// Create writes items to a new encrypted archive at path, replacing any
// existing file only once the new one is complete.
func Create(path string, passphrase []byte, items []Item, opts CreateOptions) error {
	logger := loggerOrDefault(opts.Logger).WithField("archive", path)

	// Validate the user entries.
	entries, err := userEntries(items)
	if err != nil {
		return err
	}

	// Index them and append the segments.
	if !opts.NoIndex {
		compression, err := search.ParseCompression(opts.SegmentCompression)
		if err != nil {
			return err
		}
		segments, err := buildIndexSegments(entries, indexOptions{
			compression:    compression,
			maxSegmentDocs: opts.MaxSegmentDocs,
		}, logger)
		if err != nil {
			return err
		}
		entries = append(entries, segments...)
	}

	// Pack everything into the zip payload.
	payload, err := buildPayload(entries, opts.CompressionLevel, time.Now(), logger)
	if err != nil {
		return err
	}

	// Pick the header variant and the salt the key is derived from.
	version := FormatRND1
	salt := opts.Salt
	if opts.Legacy {
		version = FormatLegacy
		if salt, err = resolveSalt(path, opts.Salt, opts.UserSaltFile, logger); err != nil {
			return err
		}
	}
	hdr, err := newHeader(version, salt, len(payload))
	if err != nil {
		return err
	}
	if hdr.Salt != nil {
		salt = hdr.Salt
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return err
	}

	// Write through a temp file so a failed run leaves the old archive.
	err = writeFileAtomic(path, func(w io.Writer) error {
		return encodeContainer(w, hdr, key, payload, opts.Progress)
	})
	if err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	logger.WithFields(logrus.Fields{
		"version": hdr.Version.String(),
		"entries": len(entries),
		"payload": len(payload),
	}).Info("Archive created")
	return nil
}

// writeFileAtomic writes through a temporary file in the destination
// directory and renames it over path after a successful sync.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = write(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return err
	}
	return syncDir(dir)
}

func loggerOrDefault(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}
