package service

import (
	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDataFile sets the JSON document location.
func WithDataFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataFile = path
		}
	}
}

// WithStore replaces the file store, mainly for tests.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithJudges sets the judges allowed to submit scores.
func WithJudges(ids ...string) Option {
	return func(s *Service) {
		if len(ids) > 0 {
			s.judges = ids
		}
	}
}

// WithSubscriberBuffer sets how many events a viewer may lag behind
// before it is disconnected.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subscriberBuffer = n
		}
	}
}

// WithSerializedWrites runs every mutation on one writer goroutine.
func WithSerializedWrites(enabled bool) Option {
	return func(s *Service) {
		s.serializeWrites = enabled
	}
}

// WithInitDataFile creates an empty data file on start when none exists.
func WithInitDataFile(enabled bool) Option {
	return func(s *Service) {
		s.initDataFile = enabled
	}
}
