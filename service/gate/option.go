package gate

import (
	"time"

	"github.com/agentops/gatekeeper/service/messaging"
)

// Option customises the gate service.
type Option func(*service)

// WithTimeout sets the default approval timeout applied to new gates and to
// WaitForApproval calls that pass zero.
func WithTimeout(timeout time.Duration) Option {
	return func(s *service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithPollInterval sets the wait loop's re-check cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(s *service) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithResponseTTL sets the retention of stored decision records.
func WithResponseTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.responseTTL = ttl
		}
	}
}

// WithQueue replaces the default in-memory event queue, e.g. with a broker
// backed implementation shared across processes.
func WithQueue(queue messaging.Queue[Event]) Option {
	return func(s *service) { s.events = queue }
}
