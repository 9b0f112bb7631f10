package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/store/memory"
)

func newInput(workspaceID string) *gate.RequestInput {
	return &gate.RequestInput{
		WorkspaceID: workspaceID,
		UserID:      "u1",
		Output:      "draft post body",
		RiskLevel:   approval.RiskHigh,
		Reason:      "external post",
		RequestType: approval.TypeExternalPost,
	}
}

func TestRequestAndStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New())

	gateID, err := svc.RequestApproval(ctx, newInput("ws1"))
	assert.NoError(t, err)
	assert.NotEmpty(t, gateID)

	status, err := svc.CheckStatus(ctx, gateID)
	assert.NoError(t, err)
	assert.EqualValues(t, approval.StatusPending, status)

	// Unknown gates read as expired, not as an error.
	status, err = svc.CheckStatus(ctx, "nonexistent")
	assert.NoError(t, err)
	assert.EqualValues(t, approval.StatusExpired, status)

	ok, err := svc.Approve(ctx, gateID, "looks fine", "reviewer-1")
	assert.NoError(t, err)
	assert.True(t, ok)

	status, err = svc.CheckStatus(ctx, gateID)
	assert.NoError(t, err)
	assert.EqualValues(t, approval.StatusApproved, status)
}

func TestApproveIsNotRepeatable(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New())

	gateID, _ := svc.RequestApproval(ctx, newInput("ws1"))

	ok, err := svc.Approve(ctx, gateID, "", "r1")
	assert.NoError(t, err)
	assert.True(t, ok)

	// The gate is terminal; a second decision is not actionable.
	ok, err = svc.Approve(ctx, gateID, "", "r2")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Reject(ctx, gateID, "", "", "r2")
	assert.NoError(t, err)
	assert.False(t, ok)

	status, _ := svc.CheckStatus(ctx, gateID)
	assert.EqualValues(t, approval.StatusApproved, status)
}

func TestDecideMissingGate(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New())

	ok, err := svc.Approve(ctx, "ghost", "", "r1")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingApprovals(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New())

	first, _ := svc.RequestApproval(ctx, newInput("ws1"))
	second, _ := svc.RequestApproval(ctx, newInput("ws1"))
	other, _ := svc.RequestApproval(ctx, newInput("ws2"))

	pending, err := svc.PendingApprovals(ctx, "ws1")
	assert.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.GateID)
	}
	assert.ElementsMatch(t, []string{first, second}, ids)

	ok, err := svc.Approve(ctx, first, "", "r1")
	assert.NoError(t, err)
	assert.True(t, ok)

	pending, err = svc.PendingApprovals(ctx, "ws1")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.EqualValues(t, second, pending[0].GateID)

	pending, err = svc.PendingApprovals(ctx, "ws2")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.EqualValues(t, other, pending[0].GateID)
}

func TestWaitForApproval(t *testing.T) {
	type testCase struct {
		name        string
		approve     bool
		feedback    string
		decideDelay time.Duration
		timeout     time.Duration
		expectError bool
	}

	tests := []testCase{{
		name:        "approved before timeout",
		approve:     true,
		feedback:    "ship it",
		decideDelay: 20 * time.Millisecond,
		timeout:     2 * time.Second,
	}, {
		name:        "rejected before timeout",
		approve:     false,
		feedback:    "tone is off",
		decideDelay: 20 * time.Millisecond,
		timeout:     2 * time.Second,
	}, {
		name:        "timeout waiting for decision",
		timeout:     80 * time.Millisecond,
		decideDelay: 0, // never decided
		expectError: true,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			svc := gate.New(memory.New(), gate.WithPollInterval(10*time.Millisecond))

			gateID, err := svc.RequestApproval(ctx, newInput("ws1"))
			assert.NoError(t, err)

			if tc.decideDelay > 0 {
				go func() {
					time.Sleep(tc.decideDelay)
					if tc.approve {
						_, _ = svc.Approve(ctx, gateID, tc.feedback, "reviewer-1")
					} else {
						_, _ = svc.Reject(ctx, gateID, tc.feedback, "", "reviewer-1")
					}
				}()
			}

			response, err := svc.WaitForApproval(ctx, gateID, tc.timeout)
			if tc.expectError {
				assert.ErrorIs(t, err, gate.ErrTimeout)
				// The timeout handler explicitly expired the gate.
				status, sErr := svc.CheckStatus(ctx, gateID)
				assert.NoError(t, sErr)
				assert.EqualValues(t, approval.StatusExpired, status)
				pending, pErr := svc.PendingApprovals(ctx, "ws1")
				assert.NoError(t, pErr)
				assert.Empty(t, pending)
				return
			}
			assert.NoError(t, err)
			assert.EqualValues(t, tc.approve, response.Approved)
			assert.EqualValues(t, tc.feedback, response.Feedback)
			assert.EqualValues(t, "reviewer-1", response.RespondedBy)
		})
	}
}

func TestWaitCancellationDoesNotTransition(t *testing.T) {
	svc := gate.New(memory.New(), gate.WithPollInterval(10*time.Millisecond))

	gateID, err := svc.RequestApproval(context.Background(), newInput("ws1"))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err = svc.WaitForApproval(ctx, gateID, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	// Abandoning the wait leaves the gate pending for another reviewer.
	status, sErr := svc.CheckStatus(context.Background(), gateID)
	assert.NoError(t, sErr)
	assert.EqualValues(t, approval.StatusPending, status)
}

func TestRejectStoresModifiedOutput(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New(), gate.WithPollInterval(10*time.Millisecond))

	gateID, _ := svc.RequestApproval(ctx, newInput("ws1"))
	ok, err := svc.Reject(ctx, gateID, "fixed typos", "corrected body", "reviewer-2")
	assert.NoError(t, err)
	assert.True(t, ok)

	response, err := svc.WaitForApproval(ctx, gateID, time.Second)
	assert.NoError(t, err)
	assert.False(t, response.Approved)
	assert.EqualValues(t, "corrected body", response.ModifiedOutput)
}

func TestDecisionEventPublished(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New())

	gateID, _ := svc.RequestApproval(ctx, newInput("ws1"))

	msg, err := svc.Queue().Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, gate.TopicRequestCreated, msg.T().Topic)
	assert.EqualValues(t, gateID, msg.T().Request.GateID)
	assert.NoError(t, msg.Ack())

	_, _ = svc.Approve(ctx, gateID, "", "r1")
	msg, err = svc.Queue().Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, gate.TopicDecisionCreated, msg.T().Topic)
	assert.True(t, msg.T().Response.Approved)
	assert.NoError(t, msg.Ack())
}

func TestAutoDecider(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := gate.New(memory.New(), gate.WithPollInterval(10*time.Millisecond))

	gateID, _ := svc.RequestApproval(ctx, newInput("ws1"))

	stop := gate.AutoApprove(ctx, svc, "ws1", 10*time.Millisecond)
	defer stop()

	response, err := svc.WaitForApproval(ctx, gateID, 2*time.Second)
	assert.NoError(t, err)
	assert.True(t, response.Approved)
}

func TestRequestInputValidation(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New())

	_, err := svc.RequestApproval(ctx, nil)
	assert.Error(t, err)

	_, err = svc.RequestApproval(ctx, &gate.RequestInput{UserID: "u1", RequestType: approval.TypeExternalPost})
	assert.Error(t, err)
}

func TestPreviewTruncated(t *testing.T) {
	ctx := context.Background()
	svc := gate.New(memory.New())

	input := newInput("ws1")
	long := make([]byte, approval.PreviewLimit*2)
	for i := range long {
		long[i] = 'a'
	}
	input.Output = string(long)

	gateID, err := svc.RequestApproval(ctx, input)
	assert.NoError(t, err)

	pending, err := svc.PendingApprovals(ctx, "ws1")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.EqualValues(t, gateID, pending[0].GateID)
	assert.Len(t, pending[0].OutputPreview, approval.PreviewLimit)
}
