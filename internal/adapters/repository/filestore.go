package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

const (
	defaultFileMode fs.FileMode = 0o644
	defaultIndent               = "  "
)

// FileStore keeps the document in one JSON file. Save writes a sibling temp
// file and renames it over the target, so a reader sees either the previous
// document or the new one.
type FileStore struct {
	path   string
	mode   fs.FileMode
	indent string
	logger logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by path. The file is not touched.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		mode:   defaultFileMode,
		indent: defaultIndent,
		logger: logger.Get().Named("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the data file location.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the data file.
func (s *FileStore) Load(ctx context.Context) (model.Document, error) {
	const op = "load"
	start := time.Now()
	defer observe(op, start)

	if err := ctx.Err(); err != nil {
		return model.Document{}, s.fail(op, fmt.Errorf("%w: %w", ErrStorage, err))
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Document{}, s.fail(op, fmt.Errorf("%w: %w: %s", ErrStorage, ErrMissing, s.path))
		}
		return model.Document{}, s.fail(op, fmt.Errorf("%w: read %s: %w", ErrStorage, s.path, err))
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, s.fail(op, fmt.Errorf("%w: %w: %s: %w", ErrStorage, ErrCorrupt, s.path, err))
	}
	return doc, nil
}

// Save encodes doc and atomically replaces the data file.
func (s *FileStore) Save(ctx context.Context, doc model.Document) error {
	const op = "save"
	start := time.Now()
	defer observe(op, start)

	if err := ctx.Err(); err != nil {
		return s.fail(op, fmt.Errorf("%w: %w", ErrStorage, err))
	}

	var (
		data []byte
		err  error
	)
	if s.indent == "" {
		data, err = json.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", s.indent)
	}
	if err != nil {
		return s.fail(op, fmt.Errorf("%w: encode: %w", ErrStorage, err))
	}

	if err := s.replace(data); err != nil {
		return s.fail(op, fmt.Errorf("%w: write %s: %w", ErrStorage, s.path, err))
	}
	return nil
}

// Ensure writes an empty document when the data file does not exist yet.
func (s *FileStore) Ensure(ctx context.Context) (created bool, err error) {
	_, statErr := os.Stat(s.path)
	switch {
	case statErr == nil:
		return false, nil
	case !errors.Is(statErr, fs.ErrNotExist):
		return false, s.fail("ensure", fmt.Errorf("%w: stat %s: %w", ErrStorage, s.path, statErr))
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return false, s.fail("ensure", fmt.Errorf("%w: mkdir: %w", ErrStorage, err))
	}
	if err := s.Save(ctx, model.NewDocument()); err != nil {
		return false, err
	}
	s.logger.Info(ctx, "initialized empty data file", logger.String("path", s.path))
	return true, nil
}

func (s *FileStore) replace(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, s.mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func (s *FileStore) fail(op string, err error) error {
	metrics.RecordStorageError(op)
	s.logger.Error(context.Background(), "document store failure",
		logger.String("op", op),
		logger.String("path", s.path),
		logger.Error(err),
	)
	return err
}

func observe(op string, start time.Time) {
	metrics.RecordStorageLatency(op, float64(time.Since(start).Microseconds())/1000)
}
