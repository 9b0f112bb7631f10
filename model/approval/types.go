package approval

import (
	"time"
)

// Status represents the lifecycle state of an approval request.
// Pending is the only initial state; Approved, Rejected and Expired are
// terminal and no transition out of a terminal state is permitted.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// RiskLevel is an ordinal classification of how consequential an action is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the ordinal position of the level (LOW < MEDIUM < HIGH <
// CRITICAL). Unknown levels rank below LOW so that comparisons against them
// never accidentally clear a threshold.
func (r RiskLevel) Rank() int {
	if v, ok := riskRank[r]; ok {
		return v
	}
	return -1
}

// AtLeast reports whether r >= other in the ordinal ordering.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// RequestType categorises the automated action awaiting approval.
type RequestType string

const (
	TypeContentGeneration RequestType = "content_generation"
	TypeExternalPost      RequestType = "external_post"
	TypeDataDeletion      RequestType = "data_deletion"
	TypeHighCostOperation RequestType = "high_cost_operation"
	TypeSensitiveAccess   RequestType = "sensitive_access"
	TypeSystemChange      RequestType = "system_change"
)

// PreviewLimit caps the stored output preview.
const PreviewLimit = 1000

// Request represents one instance of a pending-or-decided human-approval
// request. Immutable after creation except for the status/response fields,
// which are mutated only through approve/reject/timeout transitions.
type Request struct {
	GateID           string                 `json:"gate_id"`
	WorkspaceID      string                 `json:"workspace_id"`
	UserID           string                 `json:"user_id"`
	RequestType      RequestType            `json:"request_type"`
	OutputPreview    string                 `json:"output_preview"`
	RiskLevel        RiskLevel              `json:"risk_level"`
	Reason           string                 `json:"reason"`
	CreatedAt        time.Time              `json:"created_at"`
	ExpiresAt        time.Time              `json:"expires_at"`
	Status           Status                 `json:"status"`
	ResponseFeedback string                 `json:"response_feedback,omitempty"`
	RespondedAt      *time.Time             `json:"responded_at,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// Response records a human decision for a gate. Stored separately from the
// request under its own, shorter retention.
type Response struct {
	GateID         string    `json:"gate_id"`
	Approved       bool      `json:"approved"`
	Feedback       string    `json:"feedback,omitempty"`
	ModifiedOutput string    `json:"modified_output,omitempty"`
	RespondedBy    string    `json:"responded_by,omitempty"`
	RespondedAt    time.Time `json:"responded_at"`
}

// EscalationInfo describes a hand-off of a pending gate to another approver.
// The type is part of the stored-record contract but no component in this
// core produces or consumes it yet; it is an extension point for a future
// escalation workflow.
type EscalationInfo struct {
	GateID           string    `json:"gate_id"`
	EscalatedTo      string    `json:"escalated_to"`
	Reason           string    `json:"reason"`
	EscalatedAt      time.Time `json:"escalated_at"`
	OriginalApprover string    `json:"original_approver,omitempty"`
}

// TruncatePreview trims output to the stored preview limit.
func TruncatePreview(output string) string {
	if len(output) <= PreviewLimit {
		return output
	}
	return output[:PreviewLimit]
}
