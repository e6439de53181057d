package ifdyarchive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ensureParents creates intermediate directories for a path (mkdir -p).
func ensureParents(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Extract writes the archive's entries below dest, creating dest when it
// does not exist. A nil files list extracts every entry, index segments
// included; otherwise only entries whose path equals one of files, with or
// without the leading separator, are written.
func (h *Handle) Extract(dest string, files []string) error {
	var wanted map[string]bool
	if files != nil {
		wanted = make(map[string]bool, len(files))
		for _, name := range files {
			wanted["/"+strings.TrimPrefix(name, "/")] = true
		}
	}
	return h.payload.extractAll(dest, wanted, h.logger)
}

// extractAll writes members to dest. A nil wanted set selects all of them.
func (p *payloadArchive) extractAll(dest string, wanted map[string]bool, logger logrus.FieldLogger) error {
	// Create the destination on first use; any other stat failure is fatal.
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		logger.WithField("path", dest).Info("Created directory")
	} else if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	for _, f := range p.files {
		if wanted != nil && !wanted["/"+strings.TrimPrefix(f.Name, "/")] {
			continue
		}
		outPath, err := memberPath(dest, f.Name)
		if err != nil {
			return err
		}
		if strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(outPath, 0o755); err != nil {
				return fmt.Errorf("%w: %w", ErrIO, err)
			}
			continue
		}
		data, err := readMember(f)
		if err != nil {
			return err
		}
		if err := ensureParents(outPath); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	return nil
}

// memberPath joins dest with a member name, refusing names that would
// land outside dest.
func memberPath(dest, name string) (string, error) {
	rel := filepath.FromSlash(strings.TrimLeft(name, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: entry %q escapes the destination", ErrDecode, name)
	}
	return filepath.Join(dest, rel), nil
}
