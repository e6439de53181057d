package ifdyarchive

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// formatLocalTime formats a timestamp in local time as "YYYY-MM-DD HH:MM".
func formatLocalTime(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02 15:04")
}

// List prints an ls-like line per entry whose path matches one of the
// optional prefixes. Index segments are marked with 'i', user entries
// with '-'.
func (h *Handle) List(w io.Writer, prefixes []string) error {
	for _, info := range h.Entries() {
		if !matchesPrefix(info.Path, prefixes) {
			continue
		}
		typeCh := '-'
		if info.IndexSegment {
			typeCh = 'i'
		}
		if _, err := fmt.Fprintf(w, "%c %10d %s %s\n", typeCh, info.Size, formatLocalTime(info.Modified), info.Path); err != nil {
			return err
		}
	}
	return nil
}

// matchesPrefix reports whether path starts with any of the prefixes, with
// or without the leading separator. No prefixes match everything.
func matchesPrefix(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	bare := strings.TrimPrefix(path, "/")
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) || strings.HasPrefix(bare, p) {
			return true
		}
	}
	return false
}
