package feedback_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/service/feedback"
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/store/memory"
)

func rating(v int) *int { return &v }

func newGate(t *testing.T, svc gate.Service, workspaceID string) string {
	t.Helper()
	gateID, err := svc.RequestApproval(context.Background(), &gate.RequestInput{
		WorkspaceID: workspaceID,
		UserID:      "u1",
		Output:      "draft",
		RiskLevel:   approval.RiskMedium,
		RequestType: approval.TypeContentGeneration,
	})
	assert.NoError(t, err)
	return gateID
}

func TestRequestFeedbackDefaults(t *testing.T) {
	ctx := context.Background()
	collector := feedback.New(memory.New())

	request, err := collector.RequestFeedback(ctx, "g1", nil)
	assert.NoError(t, err)
	assert.EqualValues(t, feedback.StatusPending, request.Status)
	assert.EqualValues(t, feedback.DefaultQuestions, request.Questions)

	request, err = collector.RequestFeedback(ctx, "g2", []string{"Any concerns?"})
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"Any concerns?"}, request.Questions)

	_, err = collector.RequestFeedback(ctx, "", nil)
	assert.Error(t, err)
}

func TestRecordCompletesRequest(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	gates := gate.New(storage)
	collector := feedback.New(storage)

	gateID := newGate(t, gates, "ws1")
	_, err := collector.RequestFeedback(ctx, gateID, nil)
	assert.NoError(t, err)

	ok, err := collector.Record(ctx, &feedback.RecordInput{
		GateID:   gateID,
		Rating:   rating(4),
		Comments: "solid draft",
	})
	assert.NoError(t, err)
	assert.True(t, ok)

	data, err := storage.Get(ctx, feedback.RequestKey(gateID))
	assert.NoError(t, err)
	request := &feedback.Request{}
	assert.NoError(t, approval.Decode(data, request))
	assert.EqualValues(t, feedback.StatusCompleted, request.Status)
}

func TestRecordValidatesRating(t *testing.T) {
	ctx := context.Background()
	collector := feedback.New(memory.New())

	_, err := collector.Record(ctx, &feedback.RecordInput{GateID: "g1", Rating: rating(0)})
	assert.Error(t, err)
	_, err = collector.Record(ctx, &feedback.RecordInput{GateID: "g1", Rating: rating(6)})
	assert.Error(t, err)
	_, err = collector.Record(ctx, &feedback.RecordInput{Rating: rating(3)})
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	gates := gate.New(storage)
	collector := feedback.New(storage)

	first := newGate(t, gates, "ws1")
	second := newGate(t, gates, "ws1")
	other := newGate(t, gates, "ws2")

	_, err := collector.Record(ctx, &feedback.RecordInput{GateID: first, Rating: rating(5), Comments: "great"})
	assert.NoError(t, err)
	_, err = collector.Record(ctx, &feedback.RecordInput{GateID: second, Rating: rating(3), Corrections: []string{"fix title"}})
	assert.NoError(t, err)
	_, err = collector.Record(ctx, &feedback.RecordInput{GateID: other, Rating: rating(1)})
	assert.NoError(t, err)

	summary, err := collector.Summary(ctx, "ws1", 30)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, summary.FeedbackCount)
	assert.EqualValues(t, 2, summary.RatingCount)
	assert.InDelta(t, 4.0, summary.AverageRating, 1e-9)
	assert.EqualValues(t, 1, summary.CommentCount)
	assert.EqualValues(t, 1, summary.Corrections)

	empty, err := collector.Summary(ctx, "ws3", 30)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, empty.FeedbackCount)
}

func TestPendingCorrections(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	gates := gate.New(storage)
	collector := feedback.New(storage)

	gateID := newGate(t, gates, "ws1")
	ok, err := collector.ApplyCorrections(ctx, gateID, []string{"shorten intro", "fix cta"})
	assert.NoError(t, err)
	assert.True(t, ok)

	pending, err := collector.PendingCorrections(ctx, "ws1")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.EqualValues(t, gateID, pending[0].GateID)
	assert.EqualValues(t, []string{"shorten intro", "fix cta"}, pending[0].Corrections)

	_, err = collector.ApplyCorrections(ctx, gateID, nil)
	assert.Error(t, err)
}
