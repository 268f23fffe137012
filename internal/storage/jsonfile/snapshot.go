// Package jsonfile writes the film list as an indented JSON document that is
// replaced on every run, optionally mirroring it to a blob store.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/film-scraper/internal/film"
)

const (
	indent      = "    "
	contentType = "application/json; charset=utf-8"
)

// Config locates the document and its optional mirror object.
type Config struct {
	Path string
	// MirrorObject is the object name used when a mirror is attached.
	MirrorObject string
}

// Writer implements film.SnapshotWriter.
type Writer struct {
	path   string
	object string
	mirror film.BlobStore
	logger *zap.Logger
}

// New returns a Writer for cfg.Path. mirror may be nil.
func New(cfg Config, mirror film.BlobStore, logger *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	object := cfg.MirrorObject
	if object == "" {
		object = filepath.Base(cfg.Path)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{path: cfg.Path, object: object, mirror: mirror, logger: logger}, nil
}

// Encode renders records the way they are stored on disk: a JSON array with
// four-space indentation and non-ASCII text left unescaped.
func Encode(records []film.Record) ([]byte, error) {
	if records == nil {
		records = []film.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode films: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSnapshot replaces the document with records and returns the bytes
// written. The local file is written before the mirror upload.
func (w *Writer) WriteSnapshot(ctx context.Context, records []film.Record) ([]byte, error) {
	data, err := Encode(records)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(w.path, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", w.path, err)
	}
	w.logger.Info("snapshot written", zap.String("path", w.path), zap.Int("films", len(records)))

	if w.mirror == nil {
		return data, nil
	}
	uri, err := w.mirror.PutObject(ctx, w.object, contentType, bytes.NewReader(data))
	if err != nil {
		return data, fmt.Errorf("mirror snapshot: %w", err)
	}
	w.logger.Info("snapshot mirrored", zap.String("uri", uri))
	return data, nil
}

// ReadSnapshot loads a document previously written by WriteSnapshot.
func ReadSnapshot(path string) ([]film.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var records []film.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return records, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it over
// path, so readers see either the old or the new document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpName, path)
}
