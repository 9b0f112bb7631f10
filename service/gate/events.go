package gate

import (
	"github.com/agentops/gatekeeper/model/approval"
)

// Standard event topics published on the gate's queue.
const (
	TopicRequestCreated  = "gate.request.created"
	TopicRequestExpired  = "gate.request.expired"
	TopicDecisionCreated = "gate.decision.created"
)

// Event is the envelope published for every gate lifecycle transition.
// Events are a best-effort fan-out for dashboards and notifiers; consumers
// must treat the store as authoritative.
type Event struct {
	Topic    string             `json:"topic"`
	Request  *approval.Request  `json:"request,omitempty"`
	Response *approval.Response `json:"response,omitempty"`
}
