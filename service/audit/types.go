package audit

import (
	"time"
)

// Entry is one append-only audit record. Details embeds the decision reason
// and request context so an entry is self-contained even after the gate
// record itself expired.
type Entry struct {
	GateID    string                 `json:"gate_id"`
	Action    string                 `json:"action"`
	UserID    string                 `json:"user_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`

	// Checksum chains this entry to the previous one; see checksum.go.
	Checksum string `json:"checksum,omitempty"`
}

// Decision carries the inputs of LogDecision.
type Decision struct {
	GateID    string
	Decision  string // e.g. "approved", "rejected", "auto_approved", "timeout"
	Reason    string
	UserID    string
	IPAddress string
	UserAgent string
}

// Filter narrows a trail query; zero fields match everything.
type Filter struct {
	From   time.Time
	To     time.Time
	GateID string
	UserID string
}

// Match reports whether the entry passes the filter.
func (f *Filter) Match(e *Entry) bool {
	if f == nil {
		return true
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	if f.GateID != "" && e.GateID != f.GateID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	return true
}

// Report summarises approval-process health over a reporting window.
type Report struct {
	WorkspaceID        string    `json:"workspace_id"`
	PeriodStart        time.Time `json:"period_start"`
	PeriodEnd          time.Time `json:"period_end"`
	TotalDecisions     int       `json:"total_decisions"`
	Approvals          int       `json:"approvals"`
	AutoApprovals      int       `json:"auto_approvals"`
	Rejections         int       `json:"rejections"`
	Escalations        int       `json:"escalations"`
	Timeouts           int       `json:"timeouts"`
	AutoApprovalRate   float64   `json:"auto_approval_rate"`
	EscalationRate     float64   `json:"escalation_rate"`
	TimeoutRate        float64   `json:"timeout_rate"`
	AvgResponseSeconds float64   `json:"avg_response_seconds"`
	ResponseTimeScore  float64   `json:"response_time_score"`
	ComplianceScore    float64   `json:"compliance_score"`
	Grade              string    `json:"grade"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// gradeThreshold maps a minimum score to a letter grade; evaluated in order.
type gradeThreshold struct {
	min   float64
	grade string
}

var gradeThresholds = []gradeThreshold{
	{95, "A+"},
	{90, "A"},
	{85, "B+"},
	{80, "B"},
	{75, "C+"},
	{70, "C"},
	{65, "D+"},
	{60, "D"},
}

// GradeFor maps a compliance score to its letter grade.
func GradeFor(score float64) string {
	for _, t := range gradeThresholds {
		if score >= t.min {
			return t.grade
		}
	}
	return "F"
}
