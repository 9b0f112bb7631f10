package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentops/gatekeeper/internal/clock"
	"github.com/agentops/gatekeeper/internal/idgen"
	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/service/messaging"
	qmem "github.com/agentops/gatekeeper/service/messaging/memory"
	"github.com/agentops/gatekeeper/service/store"
	"github.com/agentops/gatekeeper/tracing"
)

const (
	// DefaultTimeout bounds how long a gate stays pending.
	DefaultTimeout = time.Hour

	// DefaultPollInterval is the wait loop's re-check cadence.
	DefaultPollInterval = 2 * time.Second

	// ResponseTTL is the retention of decision records, deliberately longer
	// than the request itself so reviewers can audit recent outcomes.
	ResponseTTL = 7 * 24 * time.Hour
)

type service struct {
	store        store.Service
	timeout      time.Duration
	pollInterval time.Duration
	responseTTL  time.Duration
	events       messaging.Queue[Event]
}

// New creates a gate service on the supplied store.
func New(storage store.Service, options ...Option) Service {
	ret := &service{
		store:        storage,
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		responseTTL:  ResponseTTL,
	}
	for _, option := range options {
		option(ret)
	}
	if ret.events == nil {
		ret.events = qmem.NewQueue[Event](qmem.DefaultConfig())
	}
	return ret
}

var _ Service = (*service)(nil)

func (s *service) RequestApproval(ctx context.Context, input *RequestInput) (gateID string, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.RequestApproval", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if err = input.Validate(); err != nil {
		return "", err
	}
	now := clock.Now()
	request := &approval.Request{
		GateID:        idgen.New(),
		WorkspaceID:   input.WorkspaceID,
		UserID:        input.UserID,
		RequestType:   input.RequestType,
		OutputPreview: approval.TruncatePreview(input.Output),
		RiskLevel:     input.RiskLevel,
		Reason:        input.Reason,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.timeout),
		Status:        approval.StatusPending,
		Metadata:      input.Metadata,
	}
	data, err := approval.Encode(request)
	if err != nil {
		return "", err
	}
	if err = s.store.Set(ctx, RequestKey(request.GateID), data, s.timeout); err != nil {
		return "", fmt.Errorf("failed to persist gate %s: %w", request.GateID, err)
	}
	pendingKey := PendingKey(input.WorkspaceID)
	if err = s.store.RPush(ctx, pendingKey, []byte(request.GateID)); err != nil {
		return "", fmt.Errorf("failed to enqueue gate %s: %w", request.GateID, err)
	}
	// The queue must not outlive the request's own TTL.
	if err = s.store.Expire(ctx, pendingKey, s.timeout); err != nil {
		return "", fmt.Errorf("failed to refresh pending queue for %s: %w", input.WorkspaceID, err)
	}
	span.WithAttributes(map[string]string{"gate_id": request.GateID, "workspace_id": input.WorkspaceID})
	_ = s.events.Publish(ctx, &Event{Topic: TopicRequestCreated, Request: request})
	return request.GateID, nil
}

// loadRequest reads and decodes a gate record, passing store.ErrNotFound
// through untouched so callers can map absence to expiry.
func (s *service) loadRequest(ctx context.Context, gateID string) (*approval.Request, error) {
	data, err := s.store.Get(ctx, RequestKey(gateID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load gate %s: %w", gateID, err)
	}
	request := &approval.Request{}
	if err := approval.Decode(data, request); err != nil {
		return nil, fmt.Errorf("gate %s: %w", gateID, err)
	}
	return request, nil
}

func (s *service) CheckStatus(ctx context.Context, gateID string) (approval.Status, error) {
	request, err := s.loadRequest(ctx, gateID)
	if errors.Is(err, store.ErrNotFound) {
		// The TTL already removed the record; absence reads as expiry.
		return approval.StatusExpired, nil
	}
	if err != nil {
		return "", err
	}
	return request.Status, nil
}

func (s *service) WaitForApproval(ctx context.Context, gateID string, timeout time.Duration) (response *approval.Response, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.WaitForApproval", "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"gate_id": gateID})

	if timeout <= 0 {
		timeout = s.timeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, sErr := s.CheckStatus(ctx, gateID)
		if sErr != nil {
			return nil, sErr
		}
		switch status {
		case approval.StatusApproved, approval.StatusRejected:
			return s.loadResponse(ctx, gateID, status)
		case approval.StatusExpired:
			return nil, fmt.Errorf("gate %s: %w", gateID, ErrTimeout)
		}
		select {
		case <-ctx.Done():
			// Abandoning the wait must not transition the gate; an explicit
			// decision or the timeout handler remain the only writers.
			return nil, ctx.Err()
		case <-deadline.C:
			s.expire(ctx, gateID)
			return nil, fmt.Errorf("gate %s: %w", gateID, ErrTimeout)
		case <-ticker.C:
		}
	}
}

// loadResponse fetches the stored decision; when the response record is gone
// (retention lapsed between the status read and this one) a minimal response
// is reconstructed from the request so callers still learn the outcome.
func (s *service) loadResponse(ctx context.Context, gateID string, status approval.Status) (*approval.Response, error) {
	data, err := s.store.Get(ctx, ResponseKey(gateID))
	if errors.Is(err, store.ErrNotFound) {
		response := &approval.Response{GateID: gateID, Approved: status == approval.StatusApproved}
		if request, rErr := s.loadRequest(ctx, gateID); rErr == nil {
			response.Feedback = request.ResponseFeedback
			if request.RespondedAt != nil {
				response.RespondedAt = *request.RespondedAt
			}
		}
		return response, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load response for gate %s: %w", gateID, err)
	}
	response := &approval.Response{}
	if err := approval.Decode(data, response); err != nil {
		return nil, fmt.Errorf("gate %s: %w", gateID, err)
	}
	return response, nil
}

// expire writes the Expired terminal state on a still-pending gate and drops
// it from the pending queue. Best effort: the TTL removes the record anyway.
func (s *service) expire(ctx context.Context, gateID string) {
	request, err := s.loadRequest(ctx, gateID)
	if err != nil || request.Status != approval.StatusPending {
		return
	}
	request.Status = approval.StatusExpired
	if data, err := approval.Encode(request); err == nil {
		_ = s.store.Set(ctx, RequestKey(gateID), data, s.remaining(request))
	}
	_, _ = s.store.LRem(ctx, PendingKey(request.WorkspaceID), 0, []byte(gateID))
	_ = s.events.Publish(ctx, &Event{Topic: TopicRequestExpired, Request: request})
}

// remaining returns the TTL that keeps a mutated request record alive until
// its original expiry, never recomputing ExpiresAt itself.
func (s *service) remaining(request *approval.Request) time.Duration {
	ttl := request.ExpiresAt.Sub(clock.Now())
	if ttl <= 0 {
		ttl = time.Minute
	}
	return ttl
}

func (s *service) Approve(ctx context.Context, gateID, feedback, respondedBy string) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.Approve", "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"gate_id": gateID})
	return s.recordResponse(ctx, gateID, true, feedback, "", respondedBy)
}

func (s *service) Reject(ctx context.Context, gateID, feedback, modifiedOutput, respondedBy string) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.Reject", "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"gate_id": gateID})
	return s.recordResponse(ctx, gateID, false, feedback, modifiedOutput, respondedBy)
}

// recordResponse funnels both decisions: it mutates the request record,
// writes the separate response record and drops the gate from the pending
// queue. A missing or already-terminal gate is not actionable and yields
// (false, nil) rather than an error.
func (s *service) recordResponse(ctx context.Context, gateID string, approved bool, feedback, modifiedOutput, respondedBy string) (bool, error) {
	request, err := s.loadRequest(ctx, gateID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if request.Status.Terminal() {
		return false, nil
	}

	now := clock.Now()
	if approved {
		request.Status = approval.StatusApproved
	} else {
		request.Status = approval.StatusRejected
	}
	request.ResponseFeedback = feedback
	request.RespondedAt = &now

	data, err := approval.Encode(request)
	if err != nil {
		return false, err
	}
	if err = s.store.Set(ctx, RequestKey(gateID), data, s.remaining(request)); err != nil {
		return false, fmt.Errorf("failed to update gate %s: %w", gateID, err)
	}

	response := &approval.Response{
		GateID:         gateID,
		Approved:       approved,
		Feedback:       feedback,
		ModifiedOutput: modifiedOutput,
		RespondedBy:    respondedBy,
		RespondedAt:    now,
	}
	respData, err := approval.Encode(response)
	if err != nil {
		return false, err
	}
	if err = s.store.Set(ctx, ResponseKey(gateID), respData, s.responseTTL); err != nil {
		return false, fmt.Errorf("failed to persist response for gate %s: %w", gateID, err)
	}
	if _, err = s.store.LRem(ctx, PendingKey(request.WorkspaceID), 0, []byte(gateID)); err != nil {
		return false, fmt.Errorf("failed to dequeue gate %s: %w", gateID, err)
	}
	_ = s.events.Publish(ctx, &Event{Topic: TopicDecisionCreated, Request: request, Response: response})
	return true, nil
}

func (s *service) PendingApprovals(ctx context.Context, workspaceID string) (pending []*approval.Request, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.PendingApprovals", "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"workspace_id": workspaceID})

	ids, err := s.store.LRange(ctx, PendingKey(workspaceID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending queue for %s: %w", workspaceID, err)
	}
	pending = make([]*approval.Request, 0, len(ids))
	for _, id := range ids {
		request, rErr := s.loadRequest(ctx, string(id))
		if errors.Is(rErr, store.ErrNotFound) {
			continue // queue membership is best-effort; the record expired
		}
		if rErr != nil {
			return nil, rErr
		}
		if request.Status == approval.StatusPending {
			pending = append(pending, request)
		}
	}
	return pending, nil
}

func (s *service) Queue() messaging.Queue[Event] {
	return s.events
}
