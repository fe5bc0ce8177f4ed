package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"

	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

// CompressedExt marks snappy-compressed inputs.
const CompressedExt = ".sz"

// dumpExts are the extensions treated as legacy text dumps.
var dumpExts = map[string]bool{".txt": true, ".dump": true, ".log": true}

// Format names an input encoding.
type Format int

const (
	FormatDocument Format = iota // YAML or JSON Document
	FormatDump                   // legacy array/switch text dump
)

// DetectFormat derives the format from a path, ignoring a trailing
// CompressedExt.
func DetectFormat(path string) Format {
	path = strings.TrimSuffix(strings.ToLower(path), CompressedExt)
	if dumpExts[filepath.Ext(path)] {
		return FormatDump
	}
	return FormatDocument
}

// MaxDecodedBytes bounds what a snappy block may expand to when read from
// a file or object.
const MaxDecodedBytes = 1 << 30

// ErrTooLarge is returned when a compressed input declares a decoded size
// above the allowed limit.
var ErrTooLarge = errors.New("decoded input too large")

// Decompress decodes a snappy block, refusing inputs whose declared decoded
// length exceeds limit before allocating for them.
func Decompress(data []byte, limit int64) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, err
	}
	if int64(n) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, n, limit)
	}
	return snappy.Decode(nil, data)
}

func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), CompressedExt)
}

// openSource returns a reader over the decoded contents of a local file or
// an s3:// object. Plain local files are read straight from the mapping;
// compressed ones are decoded into memory since snappy blocks are not
// streamable. The caller must call done.
func openSource(path string) (r io.Reader, done func(), err error) {
	if IsObjectURI(path) {
		data, err := readObject(context.Background(), path)
		if err != nil {
			return nil, nil, err
		}
		if compressed(path) {
			if data, err = Decompress(data, MaxDecodedBytes); err != nil {
				return nil, nil, fmt.Errorf("decompress %s: %w", path, err)
			}
		}
		return bytes.NewReader(data), func() {}, nil
	}

	mapped, err := mmap.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !compressed(path) {
		return io.NewSectionReader(mapped, 0, int64(mapped.Len())), func() { _ = mapped.Close() }, nil
	}
	defer func() { _ = mapped.Close() }()

	raw := make([]byte, mapped.Len())
	if len(raw) > 0 {
		if _, err := mapped.ReadAt(raw, 0); err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	data, err := Decompress(raw, MaxDecodedBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return bytes.NewReader(data), func() {}, nil
}

// Open reads and parses a fabric description. Legacy dumps are parsed with
// opts; documents ignore them.
func Open(path string, opts DumpOptions) (*Document, error) {
	r, done, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer done()
	if DetectFormat(path) == FormatDump {
		return ParseDump(r, opts)
	}
	return Decode(r)
}

// Load is Open followed by Document.Records.
func Load(path string, opts DumpOptions) (snapshot.Records, error) {
	doc, err := Open(path, opts)
	if err != nil {
		return snapshot.Records{}, err
	}
	return doc.Records(), nil
}

// WriteFile stores doc as YAML in a local file or an s3:// object,
// snappy-compressed when path ends in CompressedExt.
func WriteFile(path string, doc *Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	data := buf.Bytes()
	if compressed(path) {
		data = snappy.Encode(nil, data)
	}
	if IsObjectURI(path) {
		return writeObject(context.Background(), path, data)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
