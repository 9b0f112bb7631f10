package gatekeeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentops/gatekeeper"
	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/policy"
	"github.com/agentops/gatekeeper/service/audit"
	"github.com/agentops/gatekeeper/service/feedback"
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/override"
)

func TestPolicyForUsesWorkspaceOverrides(t *testing.T) {
	config := gatekeeper.DefaultConfig()
	config.Workspaces = map[string]gatekeeper.WorkspaceConfig{
		"ws-strict": {
			ApprovalCostThresholds: map[policy.Tier]float64{
				policy.TierBasic: 0.10,
			},
		},
	}
	svc := gatekeeper.New(gatekeeper.WithConfig(config))
	ctx := context.Background()

	// No rule matches low-risk content generation, so the tier threshold
	// decides. The strict workspace lowered basic to 0.10.
	strict := svc.PolicyFor("ws-strict")
	assert.True(t, strict.RequiresApproval(ctx, approval.TypeContentGeneration, approval.RiskLow, 0.20, policy.TierBasic))

	// Unknown workspaces fall back to the default engine (basic: 0.25).
	fallback := svc.PolicyFor("ws-unknown")
	assert.False(t, fallback.RequiresApproval(ctx, approval.TypeContentGeneration, approval.RiskLow, 0.20, policy.TierBasic))
	assert.Same(t, fallback, svc.PolicyFor("ws-other"))
}

func TestConfigValidate(t *testing.T) {
	var testCases = []struct {
		description string
		mutate      func(*gatekeeper.Config)
		valid       bool
	}{
		{
			description: "defaults are valid",
			mutate:      func(*gatekeeper.Config) {},
			valid:       true,
		},
		{
			description: "zero timeout",
			mutate:      func(c *gatekeeper.Config) { c.ApprovalTimeoutSeconds = 0 },
		},
		{
			description: "negative poll interval",
			mutate:      func(c *gatekeeper.Config) { c.PollIntervalSeconds = -1 },
		},
		{
			description: "rule override without request type",
			mutate: func(c *gatekeeper.Config) {
				c.Workspaces = map[string]gatekeeper.WorkspaceConfig{
					"ws1": {ApprovalRuleOverrides: []policy.Rule{{RequiresApproval: true}}},
				}
			},
		},
	}

	for _, testCase := range testCases {
		config := gatekeeper.DefaultConfig()
		testCase.mutate(config)
		err := config.Validate()
		if testCase.valid {
			assert.NoError(t, err, testCase.description)
			continue
		}
		assert.Error(t, err, testCase.description)
	}
}

// TestApprovalFlow drives one request through the bundled services: gate,
// audit trail, feedback and a post-decision override, all over the shared
// in-memory store.
func TestApprovalFlow(t *testing.T) {
	ctx := context.Background()
	svc := gatekeeper.New()

	gateID, err := svc.Gate().RequestApproval(ctx, &gate.RequestInput{
		WorkspaceID: "ws1",
		UserID:      "author-1",
		Output:      "draft announcement",
		RiskLevel:   approval.RiskHigh,
		Reason:      "external posting always needs sign-off",
		RequestType: approval.TypeExternalPost,
	})
	assert.NoError(t, err)

	pending, err := svc.Gate().PendingApprovals(ctx, "ws1")
	assert.NoError(t, err)
	if assert.Len(t, pending, 1) {
		assert.Equal(t, gateID, pending[0].GateID)
	}

	ok, err := svc.Gate().Approve(ctx, gateID, "ship it", "reviewer-1")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Audit().LogDecision(ctx, &audit.Decision{
		GateID:   gateID,
		Decision: "approved",
		Reason:   "reviewed by human",
		UserID:   "reviewer-1",
	})
	assert.NoError(t, err)
	assert.True(t, ok)

	entries, err := svc.Audit().Trail(ctx, "ws1", nil)
	assert.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, gateID, entries[0].GateID)
	}
	intact, _, err := svc.Audit().Verify(ctx, "ws1")
	assert.NoError(t, err)
	assert.True(t, intact)

	// Solicit and record reviewer feedback.
	request, err := svc.Feedback().RequestFeedback(ctx, gateID, nil)
	assert.NoError(t, err)
	assert.Equal(t, feedback.StatusPending, request.Status)

	rating := 4
	ok, err = svc.Feedback().Record(ctx, &feedback.RecordInput{
		GateID:   gateID,
		Rating:   &rating,
		Comments: "tighten the second paragraph",
	})
	assert.NoError(t, err)
	assert.True(t, ok)

	// A late human correction rewrites the decided output.
	ok, err = svc.Override().Apply(ctx, &override.Input{
		GateID:         gateID,
		ModifiedOutput: "final announcement",
		Reason:         "brand voice",
		OverrideBy:     "editor-1",
	})
	assert.NoError(t, err)
	assert.True(t, ok)

	response, err := svc.Gate().WaitForApproval(ctx, gateID, time.Second)
	assert.NoError(t, err)
	assert.True(t, response.Approved)
	assert.Equal(t, "final announcement", response.ModifiedOutput)
}

func TestWaitForApprovalAfterDecision(t *testing.T) {
	ctx := context.Background()
	svc := gatekeeper.New()

	gateID, err := svc.Gate().RequestApproval(ctx, &gate.RequestInput{
		WorkspaceID: "ws1",
		UserID:      "author-1",
		Output:      "rejected draft",
		RiskLevel:   approval.RiskMedium,
		Reason:      "sensitive data access",
		RequestType: approval.TypeSensitiveAccess,
	})
	assert.NoError(t, err)

	ok, err := svc.Gate().Reject(ctx, gateID, "contains account numbers", "redacted draft", "reviewer-2")
	assert.NoError(t, err)
	assert.True(t, ok)

	response, err := svc.Gate().WaitForApproval(ctx, gateID, time.Second)
	assert.NoError(t, err)
	assert.False(t, response.Approved)
	assert.Equal(t, "redacted draft", response.ModifiedOutput)
	assert.Equal(t, "reviewer-2", response.RespondedBy)
}
