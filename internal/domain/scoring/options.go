package scoring

import (
	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithJudges replaces the set of judges allowed to submit scores.
// Empty identifiers are ignored; an empty list keeps the defaults.
func WithJudges(ids ...string) Option {
	return func(s *Service) {
		set := make(map[string]struct{}, len(ids))
		order := make([]string, 0, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, dup := set[id]; dup {
				continue
			}
			set[id] = struct{}{}
			order = append(order, id)
		}
		if len(order) > 0 {
			s.judges = set
			s.judgeOrder = order
		}
	}
}

// WithExecutor routes every load-mutate-save-broadcast cycle through exec.
// With a single-writer executor, concurrent mutations no longer lose updates.
func WithExecutor(exec Executor) Option {
	return func(s *Service) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
