package ifdyarchive

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Item is one user file to archive. PathRel is stored verbatim with a
// leading separator; one is added when missing.
type Item struct {
	PathRel  string
	Contents []byte
}

type entryKind uint8

const (
	entryUser entryKind = iota
	entrySegment
)

// Entry is one member of the payload archive. User files and search index
// segments share the container but are distinct kinds, so a user path can
// never be mistaken for, or overwrite, an index segment.
type Entry struct {
	kind entryKind
	path string
	data []byte
}

// newUserEntry validates an item and turns it into a user entry. The path
// is kept as given apart from the added leading separator; it is cleaned
// only to check it.
func newUserEntry(item Item) (Entry, error) {
	p := item.PathRel
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	clean := path.Clean(p)

	// The raw and the cleaned spelling are both checked against the index
	// prefix.
	for _, candidate := range []string{p, clean} {
		if candidate+"/" == IndexPrefix || strings.HasPrefix(candidate, IndexPrefix) {
			return Entry{}, fmt.Errorf("%w: %s", ErrReservedPath, item.PathRel)
		}
	}

	switch {
	case clean == "/" || strings.HasSuffix(p, "/"):
		return Entry{}, fmt.Errorf("%w: %q names no file", ErrInvalidPath, item.PathRel)
	case !filepath.IsLocal(filepath.FromSlash(strings.TrimLeft(p, "/"))):
		return Entry{}, fmt.Errorf("%w: %q leaves the archive root", ErrInvalidPath, item.PathRel)
	}
	return Entry{kind: entryUser, path: p, data: item.Contents}, nil
}

// newSegmentEntry wraps a named index segment blob.
func newSegmentEntry(name string, blob []byte) Entry {
	return Entry{kind: entrySegment, path: IndexPrefix + name, data: blob}
}

// classifyName maps a stored member name back to its entry kind.
func classifyName(name string) entryKind {
	if strings.HasPrefix(name, IndexPrefix) {
		return entrySegment
	}
	return entryUser
}

// Path returns the stored member name.
func (e Entry) Path() string {
	return e.path
}

// IsIndexSegment reports whether the entry belongs to the search index.
func (e Entry) IsIndexSegment() bool {
	return e.kind == entrySegment
}

// userEntries converts items, rejecting duplicate paths.
func userEntries(items []Item) ([]Entry, error) {
	seen := make(map[string]struct{}, len(items))
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entry, err := newUserEntry(item)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[entry.path]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.path)
		}
		seen[entry.path] = struct{}{}
		entries = append(entries, entry)
	}
	return entries, nil
}
