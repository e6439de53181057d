package search

import (
	"errors"
	"fmt"
)

// WriterOptions tune how a commit is split and compressed.
type WriterOptions struct {
	// MaxSegmentDocs caps the documents per segment. Zero puts every
	// document in one segment.
	MaxSegmentDocs int

	// Compression is applied to each segment blob.
	Compression Compression
}

// Writer accumulates documents for a single commit. An index is always
// built from scratch; there is no way to extend a committed one.
type Writer struct {
	options   WriterOptions
	documents []document
	paths     map[string]struct{}
	committed bool
}

type document struct {
	path   string
	tokens []Token
}

// NewWriter returns an empty writer.
func NewWriter(options WriterOptions) *Writer {
	return &Writer{options: options, paths: make(map[string]struct{})}
}

// AddDocument analyzes content and queues it under path.
func (w *Writer) AddDocument(path, content string) error {
	if w.committed {
		return errors.New("search: writer already committed")
	}
	if _, exists := w.paths[path]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateDocument, path)
	}
	w.paths[path] = struct{}{}
	w.documents = append(w.documents, document{path: path, tokens: Analyze(content)})
	return nil
}

// Len returns the number of queued documents.
func (w *Writer) Len() int {
	return len(w.documents)
}

// Commit encodes the queued documents into named segment blobs. A writer
// with no documents still commits a valid, empty index.
func (w *Writer) Commit() (map[string][]byte, error) {
	if w.committed {
		return nil, errors.New("search: writer already committed")
	}
	w.committed = true

	toc := tableOfContents{
		Revision:   tocRevision,
		Generation: 1,
		Schema:     DefaultSchema(),
	}
	blobs := make(map[string][]byte)

	for n, batch := range w.batches() {
		raw, err := encMode.Marshal(buildSegment(batch))
		if err != nil {
			return nil, fmt.Errorf("encoding segment %d: %w", n, err)
		}
		stored, tag, err := compressBlob(raw, w.options.Compression)
		if err != nil {
			return nil, fmt.Errorf("compressing segment %d: %w", n, err)
		}

		name := segmentName(n)
		blobs[name] = stored
		toc.Segments = append(toc.Segments, segmentInfo{
			Name:        name,
			Documents:   len(batch),
			Compression: tag,
			Size:        len(raw),
			Digest:      digest(stored),
		})
	}

	encoded, err := encMode.Marshal(toc)
	if err != nil {
		return nil, fmt.Errorf("encoding table of contents: %w", err)
	}
	blobs[tocName(toc.Generation)] = encoded
	return blobs, nil
}

// batches splits the queued documents by MaxSegmentDocs.
func (w *Writer) batches() [][]document {
	size := w.options.MaxSegmentDocs
	if size <= 0 || size > len(w.documents) {
		size = len(w.documents)
	}
	var batches [][]document
	for start := 0; start < len(w.documents); start += size {
		end := min(start+size, len(w.documents))
		batches = append(batches, w.documents[start:end])
	}
	return batches
}

func buildSegment(documents []document) segmentData {
	segment := segmentData{
		Paths:    make([]string, len(documents)),
		Lengths:  make([]int, len(documents)),
		Postings: make(map[string][]posting),
	}
	for i, doc := range documents {
		segment.Paths[i] = doc.path
		segment.Lengths[i] = len(doc.tokens)

		positions := make(map[string][]int)
		var order []string
		for _, token := range doc.tokens {
			if _, seen := positions[token.Text]; !seen {
				order = append(order, token.Text)
			}
			positions[token.Text] = append(positions[token.Text], token.Position)
		}
		for _, term := range order {
			segment.Postings[term] = append(segment.Postings[term], posting{Document: i, Positions: positions[term]})
		}
	}
	return segment
}
