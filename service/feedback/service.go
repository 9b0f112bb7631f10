package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentops/gatekeeper/internal/clock"
	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/store"
	"github.com/agentops/gatekeeper/tracing"
)

const (
	// RequestTTL bounds how long a feedback solicitation stays open.
	RequestTTL = 7 * 24 * time.Hour

	// DataTTL is the retention of recorded feedback.
	DataTTL = 30 * 24 * time.Hour
)

// Key builders, part of the stored-data contract.
func DataKey(gateID string) string { return "approval_feedback:" + gateID }

func RequestKey(gateID string) string { return "approval_feedback:request:" + gateID }

func CorrectionsKey(gateID string) string { return "approval_feedback:corrections:" + gateID }

// Workspace index keys let Summary and PendingCorrections enumerate per-gate
// records without a store-wide scan.
func indexKey(workspaceID string) string { return "approval_feedback:index:" + workspaceID }

func correctionsIndexKey(workspaceID string) string {
	return "approval_feedback:corrections:index:" + workspaceID
}

// RecordInput carries the fields of one feedback submission.
type RecordInput struct {
	GateID            string
	Rating            *int
	Comments          string
	Corrections       []string
	QuestionResponses map[string]string
}

// Service collects structured feedback keyed by gate id.
type Service struct {
	store store.Service
}

// New creates a feedback collector on the supplied store.
func New(storage store.Service) *Service {
	return &Service{store: storage}
}

// RequestFeedback stores a pending feedback solicitation for the gate,
// using the default question set when none is supplied.
func (s *Service) RequestFeedback(ctx context.Context, gateID string, questions []string) (request *Request, err error) {
	ctx, span := tracing.StartSpan(ctx, "feedback.RequestFeedback", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if gateID == "" {
		return nil, fmt.Errorf("feedback: gate id is required")
	}
	if len(questions) == 0 {
		questions = append([]string(nil), DefaultQuestions...)
	}
	request = &Request{
		GateID:    gateID,
		Questions: questions,
		Status:    StatusPending,
		CreatedAt: clock.Now(),
	}
	data, err := approval.Encode(request)
	if err != nil {
		return nil, err
	}
	if err = s.store.Set(ctx, RequestKey(gateID), data, RequestTTL); err != nil {
		return nil, fmt.Errorf("feedback: failed to store request for gate %s: %w", gateID, err)
	}
	return request, nil
}

// Record stores the submitted feedback and flips the matching solicitation
// to completed. Returns false when the input is unusable; infrastructure
// failures surface as errors.
func (s *Service) Record(ctx context.Context, input *RecordInput) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "feedback.Record", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if input == nil || input.GateID == "" {
		return false, fmt.Errorf("feedback: gate id is required")
	}
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return false, fmt.Errorf("feedback: rating %d out of range 1-5", *input.Rating)
	}
	record := &Data{
		GateID:            input.GateID,
		Rating:            input.Rating,
		Comments:          input.Comments,
		Corrections:       input.Corrections,
		QuestionResponses: input.QuestionResponses,
		Timestamp:         clock.Now(),
	}
	data, err := approval.Encode(record)
	if err != nil {
		return false, err
	}
	if err = s.store.Set(ctx, DataKey(input.GateID), data, DataTTL); err != nil {
		return false, fmt.Errorf("feedback: failed to store feedback for gate %s: %w", input.GateID, err)
	}

	// Flip the solicitation, if one is still open.
	if reqData, rErr := s.store.Get(ctx, RequestKey(input.GateID)); rErr == nil {
		request := &Request{}
		if dErr := approval.Decode(reqData, request); dErr == nil && request.Status == StatusPending {
			request.Status = StatusCompleted
			if updated, eErr := approval.Encode(request); eErr == nil {
				_ = s.store.Set(ctx, RequestKey(input.GateID), updated, RequestTTL)
			}
		}
	} else if !errors.Is(rErr, store.ErrNotFound) {
		return false, fmt.Errorf("feedback: gate %s: %w", input.GateID, rErr)
	}

	s.index(ctx, input.GateID, indexKey, DataTTL)
	return true, nil
}

// index appends the gate id to the workspace index resolved from the gate
// record. Best effort: when the gate already expired the feedback is kept
// but cannot be attributed to a workspace aggregate.
func (s *Service) index(ctx context.Context, gateID string, keyFn func(string) string, ttl time.Duration) {
	data, err := s.store.Get(ctx, gate.RequestKey(gateID))
	if err != nil {
		return
	}
	request := &approval.Request{}
	if err := approval.Decode(data, request); err != nil {
		return
	}
	key := keyFn(request.WorkspaceID)
	_ = s.store.RPush(ctx, key, []byte(gateID))
	_ = s.store.Expire(ctx, key, ttl)
}

// ApplyCorrections stores a pending-corrections record for a later human
// review step to apply. The application logic itself lives outside this
// core.
func (s *Service) ApplyCorrections(ctx context.Context, gateID string, corrections []string) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "feedback.ApplyCorrections", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if gateID == "" || len(corrections) == 0 {
		return false, fmt.Errorf("feedback: gate id and corrections are required")
	}
	record := &Corrections{
		GateID:      gateID,
		Corrections: corrections,
		Status:      StatusPending,
		CreatedAt:   clock.Now(),
	}
	data, err := approval.Encode(record)
	if err != nil {
		return false, err
	}
	if err = s.store.Set(ctx, CorrectionsKey(gateID), data, RequestTTL); err != nil {
		return false, fmt.Errorf("feedback: failed to store corrections for gate %s: %w", gateID, err)
	}
	s.index(ctx, gateID, correctionsIndexKey, RequestTTL)
	return true, nil
}

// Summary aggregates rating and comment statistics for a workspace over a
// trailing window of days.
func (s *Service) Summary(ctx context.Context, workspaceID string, days int) (summary *Summary, err error) {
	ctx, span := tracing.StartSpan(ctx, "feedback.Summary", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if days <= 0 {
		days = 30
	}
	cutoff := clock.Now().AddDate(0, 0, -days)
	summary = &Summary{WorkspaceID: workspaceID, Days: days, GeneratedAt: clock.Now()}

	ids, err := s.store.LRange(ctx, indexKey(workspaceID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("feedback: failed to read index for %s: %w", workspaceID, err)
	}
	var ratingTotal int
	seen := map[string]bool{}
	for _, id := range ids {
		gateID := string(id)
		if seen[gateID] {
			continue
		}
		seen[gateID] = true
		data, gErr := s.store.Get(ctx, DataKey(gateID))
		if errors.Is(gErr, store.ErrNotFound) {
			continue
		}
		if gErr != nil {
			return nil, fmt.Errorf("feedback: gate %s: %w", gateID, gErr)
		}
		record := &Data{}
		if dErr := approval.Decode(data, record); dErr != nil {
			return nil, fmt.Errorf("feedback: gate %s: %w", gateID, dErr)
		}
		if record.Timestamp.Before(cutoff) {
			continue
		}
		summary.FeedbackCount++
		if record.Rating != nil {
			summary.RatingCount++
			ratingTotal += *record.Rating
		}
		if record.Comments != "" {
			summary.CommentCount++
		}
		summary.Corrections += len(record.Corrections)
	}
	if summary.RatingCount > 0 {
		summary.AverageRating = float64(ratingTotal) / float64(summary.RatingCount)
	}
	return summary, nil
}

// PendingCorrections lists correction records for the workspace that are
// still awaiting application.
func (s *Service) PendingCorrections(ctx context.Context, workspaceID string) (pending []*Corrections, err error) {
	ctx, span := tracing.StartSpan(ctx, "feedback.PendingCorrections", "INTERNAL")
	defer tracing.EndSpan(span, err)

	ids, err := s.store.LRange(ctx, correctionsIndexKey(workspaceID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("feedback: failed to read corrections index for %s: %w", workspaceID, err)
	}
	pending = make([]*Corrections, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		gateID := string(id)
		if seen[gateID] {
			continue
		}
		seen[gateID] = true
		data, gErr := s.store.Get(ctx, CorrectionsKey(gateID))
		if errors.Is(gErr, store.ErrNotFound) {
			continue
		}
		if gErr != nil {
			return nil, fmt.Errorf("feedback: gate %s: %w", gateID, gErr)
		}
		record := &Corrections{}
		if dErr := approval.Decode(data, record); dErr != nil {
			return nil, fmt.Errorf("feedback: gate %s: %w", gateID, dErr)
		}
		if record.Status == StatusPending {
			pending = append(pending, record)
		}
	}
	return pending, nil
}
