package repository

import (
	"io/fs"

	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithFileMode sets the permission bits of the data file.
func WithFileMode(mode fs.FileMode) Option {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// WithIndent sets the indentation used when writing; empty writes compact JSON.
func WithIndent(indent string) Option {
	return func(s *FileStore) {
		s.indent = indent
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}
