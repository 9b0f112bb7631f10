package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/service/messaging"
)

// ErrTimeout is returned by WaitForApproval when no decision arrives before
// the deadline. It is distinct from a rejection: the gate transitions to
// Expired, not Rejected.
var ErrTimeout = errors.New("gate: approval wait timed out")

// Key builders for the shared store. The scheme is part of the stored-data
// contract and must not change: other services (audit, override) and any
// interoperating system address the same keys.
func RequestKey(gateID string) string { return "approval_gate:" + gateID }

func PendingKey(workspaceID string) string { return "approval_pending:" + workspaceID }

func ResponseKey(gateID string) string { return "approval_response:" + gateID }

// RequestInput carries the caller-supplied fields of a new approval request.
type RequestInput struct {
	WorkspaceID string
	UserID      string
	Output      string
	RiskLevel   approval.RiskLevel
	Reason      string
	RequestType approval.RequestType
	Metadata    map[string]interface{}
}

// Validate reports the first missing mandatory field.
func (i *RequestInput) Validate() error {
	if i == nil {
		return errors.New("nil request input")
	}
	if i.WorkspaceID == "" {
		return fmt.Errorf("workspaceID is required")
	}
	if i.UserID == "" {
		return fmt.Errorf("userID is required")
	}
	if i.RequestType == "" {
		return fmt.Errorf("requestType is required")
	}
	return nil
}

// Service owns the approval request/response lifecycle.
type Service interface {
	// RequestApproval creates a pending gate and returns its id.
	RequestApproval(ctx context.Context, input *RequestInput) (string, error)

	// CheckStatus returns the gate's current status. A missing record reads
	// as Expired: the store's TTL already removed it.
	CheckStatus(ctx context.Context, gateID string) (approval.Status, error)

	// WaitForApproval blocks until the gate is decided, the supplied timeout
	// elapses (ErrTimeout, after explicitly expiring the gate) or ctx is
	// cancelled. A zero timeout uses the service default. Cancellation via
	// ctx abandons the wait without transitioning the gate.
	WaitForApproval(ctx context.Context, gateID string, timeout time.Duration) (*approval.Response, error)

	// Approve records a positive decision. It returns false when the gate is
	// missing or already terminal; such a call is not actionable rather than
	// an error.
	Approve(ctx context.Context, gateID, feedback, respondedBy string) (bool, error)

	// Reject records a negative decision, optionally with a corrected output.
	Reject(ctx context.Context, gateID, feedback, modifiedOutput, respondedBy string) (bool, error)

	// PendingApprovals lists a workspace's undecided gates. Queue membership
	// is best-effort, so each request's status is re-checked before
	// inclusion.
	PendingApprovals(ctx context.Context, workspaceID string) ([]*approval.Request, error)

	// Queue exposes the lifecycle event fan-out.
	Queue() messaging.Queue[Event]
}
