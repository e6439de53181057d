// Package search is a small full-text index engine for archive entries.
//
// An index is built once with a Writer and committed to a set of named
// segment blobs: one table of contents ("_MAIN_<generation>.toc") and one
// or more segments ("MAIN_<n>.seg"). The blobs are plain bytes so the
// caller decides where they live; the archive stores them as reserved
// entries next to the documents they describe.
//
// The schema is fixed to two fields. "path" identifies a document and is
// stored verbatim. "content" is tokenized for searching but never stored,
// so a hit only carries the path and callers read the content from
// wherever the document lives.
//
// Queries use a single-field grammar: whitespace separated terms are
// combined with AND, "quoted phrases" must appear adjacently, and a
// leading '-' excludes a term or phrase. Hits are ranked with Okapi BM25.
// Equal scores keep document insertion order; that tie-break is a property
// of this engine only and is not part of the archive format.
package search
