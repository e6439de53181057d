package search

import (
	"bytes"
	"fmt"
)

// Index is a loaded, read-only index. Document numbers are global across
// segments and follow insertion order.
type Index struct {
	generation    int
	paths         []string
	lengths       []int
	postings      map[string][]posting
	averageLength float64
}

// Open loads an index from its segment blobs, keyed by blob name. When
// several generations are present the newest table of contents wins.
func Open(blobs map[string][]byte) (*Index, error) {
	var (
		tocBlob    []byte
		generation int
	)
	for name, blob := range blobs {
		if g, ok := parseTOCName(name); ok && g > generation {
			generation, tocBlob = g, blob
		}
	}
	if tocBlob == nil {
		return nil, ErrNoIndex
	}

	var toc tableOfContents
	// Other indexers reuse the same table of contents name; anything
	// that is not our CBOR is reported as a foreign format.
	if err := decMode.Unmarshal(tocBlob, &toc); err != nil {
		return nil, fmt.Errorf("%w: %w: table of contents: %w", ErrUnsupportedIndex, ErrCorruptIndex, err)
	}
	if toc.Revision != tocRevision {
		return nil, fmt.Errorf("%w: %w: revision %d", ErrUnsupportedIndex, ErrCorruptIndex, toc.Revision)
	}
	if !toc.Schema.Equal(DefaultSchema()) {
		return nil, fmt.Errorf("%w: schema mismatch", ErrCorruptIndex)
	}

	index := &Index{generation: toc.Generation, postings: make(map[string][]posting)}
	var totalLength int
	for _, info := range toc.Segments {
		segment, err := loadSegment(blobs, info)
		if err != nil {
			return nil, err
		}

		offset := len(index.paths)
		index.paths = append(index.paths, segment.Paths...)
		index.lengths = append(index.lengths, segment.Lengths...)
		for _, length := range segment.Lengths {
			totalLength += length
		}
		for term, list := range segment.Postings {
			for _, p := range list {
				if p.Document < 0 || p.Document >= len(segment.Paths) {
					return nil, fmt.Errorf("%w: %s: posting for document %d out of range", ErrCorruptIndex, info.Name, p.Document)
				}
				index.postings[term] = append(index.postings[term], posting{Document: offset + p.Document, Positions: p.Positions})
			}
		}
	}
	if len(index.paths) > 0 {
		index.averageLength = float64(totalLength) / float64(len(index.paths))
	}
	return index, nil
}

func loadSegment(blobs map[string][]byte, info segmentInfo) (segmentData, error) {
	var segment segmentData

	blob, ok := blobs[info.Name]
	if !ok {
		return segment, fmt.Errorf("%w: missing segment %s", ErrCorruptIndex, info.Name)
	}
	if !bytes.Equal(digest(blob), info.Digest) {
		return segment, fmt.Errorf("%w: digest mismatch for %s", ErrCorruptIndex, info.Name)
	}
	raw, err := decompressBlob(blob, info.Compression, info.Size)
	if err != nil {
		return segment, fmt.Errorf("%w: %s: %w", ErrCorruptIndex, info.Name, err)
	}
	if err := decMode.Unmarshal(raw, &segment); err != nil {
		return segment, fmt.Errorf("%w: %s: %w", ErrCorruptIndex, info.Name, err)
	}
	if len(segment.Paths) != info.Documents || len(segment.Lengths) != info.Documents {
		return segment, fmt.Errorf("%w: %s: expected %d documents", ErrCorruptIndex, info.Name, info.Documents)
	}
	return segment, nil
}

// Generation returns the generation of the loaded table of contents.
func (index *Index) Generation() int {
	return index.generation
}

// DocumentCount returns the number of indexed documents.
func (index *Index) DocumentCount() int {
	return len(index.paths)
}

// Path returns the stored path of a document.
func (index *Index) Path(document int) string {
	return index.paths[document]
}
