package engine

import (
	"time"

	"github.com/viant/stepflow/runtime/resolver"
	"go.uber.org/zap"
)

// Option customises the engine.
type Option func(*Service)

// WithLogger injects a structured logger; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResolver overrides the template resolver.
func WithResolver(service *resolver.Service) Option {
	return func(s *Service) {
		if service != nil {
			s.resolver = service
		}
	}
}

// WithCompensator installs the rollback collaborator invoked by the
// rollback error policy.
func WithCompensator(compensator Compensator) Option {
	return func(s *Service) {
		s.compensator = compensator
	}
}

// WithMaxParallel bounds concurrent children of a parallel group.
func WithMaxParallel(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxParallel = limit
		}
	}
}

// WithDefaultTimeout sets the per-attempt timeout used by steps that do not
// declare their own.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.defaultTimeout = timeout
		}
	}
}
