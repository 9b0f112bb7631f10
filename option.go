package gatekeeper

import (
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/store"
)

// Option customises the service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithStore sets the backing store shared by all components.
func WithStore(storage store.Service) Option {
	return func(s *Service) { s.store = storage }
}

// WithGateOptions appends options forwarded to the gate service, e.g. a
// broker-backed event queue.
func WithGateOptions(options ...gate.Option) Option {
	return func(s *Service) { s.gateOptions = append(s.gateOptions, options...) }
}
