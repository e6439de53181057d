package ifdyarchive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/sirupsen/logrus"
)

// EntryInfo describes one payload member for listings.
type EntryInfo struct {
	Path         string
	Size         uint64
	Modified     time.Time
	IndexSegment bool
}

// buildPayload packs entries into a zip container. User entries are
// deflated at level (zero selects the default level); index segments are
// already compressed and are stored.
func buildPayload(entries []Entry, level int, modified time.Time, logger logrus.FieldLogger) ([]byte, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, newFlateCompressor(level))

	var total int
	for _, entry := range entries {
		logger.WithField("path", entry.path).Info("Storing")
		method := zip.Deflate
		if entry.IsIndexSegment() {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.path,
			Method:   method,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("storing %s: %w", entry.path, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, fmt.Errorf("storing %s: %w", entry.path, err)
		}
		total += len(entry.data)
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	logger.WithField("bytes", total).Info("Stored payload")
	return buf.Bytes(), nil
}

// payloadArchive is an opened, in-memory payload.
type payloadArchive struct {
	data   []byte
	files  []*zip.File
	byName map[string]*zip.File
}

// openPayload parses decrypted payload bytes. Anything that is not a zip
// container means the passphrase, the salt or the file is wrong.
func openPayload(data []byte) (*payloadArchive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	// Member names start with a separator, which the zip reader reports as
	// insecure. Extraction checks every path itself.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	zr.RegisterDecompressor(zip.Deflate, newFlateDecompressor)

	p := &payloadArchive{data: data, byName: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if _, dup := p.byName[f.Name]; dup {
			continue
		}
		p.byName[f.Name] = f
		p.files = append(p.files, f)
	}
	return p, nil
}

// Entries lists the members in stored order.
func (p *payloadArchive) Entries() []EntryInfo {
	infos := make([]EntryInfo, len(p.files))
	for i, f := range p.files {
		infos[i] = EntryInfo{
			Path:         f.Name,
			Size:         f.UncompressedSize64,
			Modified:     f.Modified,
			IndexSegment: classifyName(f.Name) == entrySegment,
		}
	}
	return infos
}

// lookup finds a member by name, with or without its leading separator.
func (p *payloadArchive) lookup(name string) (*zip.File, bool) {
	if f, ok := p.byName[name]; ok {
		return f, true
	}
	if !strings.HasPrefix(name, "/") {
		f, ok := p.byName["/"+name]
		return f, ok
	}
	f, ok := p.byName[strings.TrimPrefix(name, "/")]
	return f, ok
}

// Read returns the contents of one member.
func (p *payloadArchive) Read(name string) ([]byte, error) {
	f, ok := p.lookup(name)
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", name, fs.ErrNotExist)
	}
	return readMember(f)
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrDecode, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrDecode, f.Name, err)
	}
	return data, nil
}

// segments returns the index segment blobs keyed by segment name.
func (p *payloadArchive) segments() (map[string][]byte, error) {
	blobs := make(map[string][]byte)
	for _, f := range p.files {
		if classifyName(f.Name) != entrySegment {
			continue
		}
		data, err := readMember(f)
		if err != nil {
			return nil, err
		}
		blobs[strings.TrimPrefix(f.Name, IndexPrefix)] = data
	}
	return blobs, nil
}

// wipe zeroes the decrypted payload bytes.
func (p *payloadArchive) wipe() {
	for i := range p.data {
		p.data[i] = 0
	}
}
