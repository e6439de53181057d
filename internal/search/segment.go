package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Errors returned while building, loading or querying an index.
var (
	ErrNoIndex           = errors.New("no search index")
	ErrCorruptIndex      = errors.New("corrupt search index")
	ErrUnsupportedIndex  = errors.New("unsupported search index format")
	ErrDuplicateDocument = errors.New("duplicate document path")
	ErrQuery             = errors.New("malformed search phrase")
)

// tocRevision is bumped when the segment layout changes incompatibly.
const tocRevision = 1

const (
	tocPrefix     = "_MAIN_"
	tocSuffix     = ".toc"
	segmentPrefix = "MAIN_"
	segmentSuffix = ".seg"
)

// tableOfContents names the segments of one committed generation.
type tableOfContents struct {
	Revision   int           `cbor:"revision"`
	Generation int           `cbor:"generation"`
	Schema     Schema        `cbor:"schema"`
	Segments   []segmentInfo `cbor:"segments"`
}

type segmentInfo struct {
	Name        string      `cbor:"name"`
	Documents   int         `cbor:"documents"`
	Compression Compression `cbor:"compression"`
	Size        int         `cbor:"size"`
	Digest      []byte      `cbor:"digest"`
}

// segmentData is the decoded body of one segment. Document numbers in
// postings are local to the segment.
type segmentData struct {
	Paths    []string             `cbor:"paths"`
	Lengths  []int                `cbor:"lengths"`
	Postings map[string][]posting `cbor:"postings"`
}

type posting struct {
	Document  int   `cbor:"d"`
	Positions []int `cbor:"p"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding keeps identical input producing
	// identical segment bytes and digests.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("search: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("search: CBOR decoder initialization failed: " + err.Error())
	}
}

func tocName(generation int) string {
	return tocPrefix + strconv.Itoa(generation) + tocSuffix
}

func segmentName(n int) string {
	return fmt.Sprintf("%s%04d%s", segmentPrefix, n, segmentSuffix)
}

// parseTOCName returns the generation encoded in a TOC blob name.
func parseTOCName(name string) (int, bool) {
	if !strings.HasPrefix(name, tocPrefix) || !strings.HasSuffix(name, tocSuffix) {
		return 0, false
	}
	generation, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, tocPrefix), tocSuffix))
	if err != nil || generation < 1 {
		return 0, false
	}
	return generation, true
}

func digest(blob []byte) []byte {
	sum := blake3.Sum256(blob)
	return sum[:]
}
