package ifdyarchive

import (
	"sort"
	"strings"

	"github.com/indigoparadox/ifdyutil/internal/search"
	"github.com/sirupsen/logrus"
)

// indexOptions configure the index written next to the user entries.
type indexOptions struct {
	compression    search.Compression
	maxSegmentDocs int
}

// buildIndexSegments indexes the user entries and returns the committed
// segments as index entries, sorted by name. Documents are keyed by the
// entry path without its leading separator.
func buildIndexSegments(entries []Entry, options indexOptions, logger logrus.FieldLogger) ([]Entry, error) {
	writer := search.NewWriter(search.WriterOptions{
		MaxSegmentDocs: options.maxSegmentDocs,
		Compression:    options.compression,
	})
	for _, entry := range entries {
		logger.WithField("path", entry.path).Info("Indexing")
		if err := writer.AddDocument(strings.TrimPrefix(entry.path, "/"), string(entry.data)); err != nil {
			return nil, err
		}
	}

	blobs, err := writer.Commit()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(blobs))
	for name := range blobs {
		names = append(names, name)
	}
	sort.Strings(names)

	segments := make([]Entry, len(names))
	for i, name := range names {
		segments[i] = newSegmentEntry(name, blobs[name])
	}
	return segments, nil
}

// loadIndex opens the search index stored in a payload.
func loadIndex(p *payloadArchive) (*search.Index, error) {
	blobs, err := p.segments()
	if err != nil {
		return nil, err
	}
	return search.Open(blobs)
}
