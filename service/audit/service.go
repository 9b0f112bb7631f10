package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentops/gatekeeper/internal/clock"
	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/store"
	"github.com/agentops/gatekeeper/tracing"
)

const (
	// MaxEntries caps each workspace trail to its most recent entries.
	MaxEntries = 10000

	// RetentionYears is the default logical retention of a trail.
	RetentionYears = 7

	// ReportTTL is how long a generated compliance report stays cached.
	ReportTTL = 30 * 24 * time.Hour

	// targetResponseSeconds rewards sub-30-minute average turnaround.
	targetResponseSeconds = 1800
)

// Key builders, part of the stored-data contract.
func TrailKey(workspaceID string) string { return "approval_audit:" + workspaceID }

func ReportKey(workspaceID, date string) string {
	return "audit_report:" + workspaceID + ":" + date
}

// Service is the compliance trail of approval decisions.
type Service struct {
	store     store.Service
	retention time.Duration
}

// New creates an audit service on the supplied store.
func New(storage store.Service) *Service {
	return &Service{
		store:     storage,
		retention: time.Duration(RetentionYears) * 365 * 24 * time.Hour,
	}
}

// LogDecision appends one decision entry to the workspace trail. The
// workspace is resolved from the gate record; when the gate already expired
// the entry lands under "unknown" rather than being dropped, because a
// compliance trail must never lose a decision.
func (s *Service) LogDecision(ctx context.Context, decision *Decision) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "audit.LogDecision", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if decision == nil || decision.GateID == "" {
		return false, fmt.Errorf("audit: gate id is required")
	}
	workspaceID := "unknown"
	details := map[string]interface{}{
		"reason": decision.Reason,
	}
	if data, gErr := s.store.Get(ctx, gate.RequestKey(decision.GateID)); gErr == nil {
		request := &approval.Request{}
		if dErr := approval.Decode(data, request); dErr != nil {
			return false, fmt.Errorf("audit: gate %s: %w", decision.GateID, dErr)
		}
		workspaceID = request.WorkspaceID
		if request.RespondedAt != nil {
			details["response_time_seconds"] = request.RespondedAt.Sub(request.CreatedAt).Seconds()
		}
	} else if !errors.Is(gErr, store.ErrNotFound) {
		return false, fmt.Errorf("audit: gate %s: %w", decision.GateID, gErr)
	}
	details["workspace_id"] = workspaceID
	if decision.IPAddress != "" {
		details["ip_address"] = decision.IPAddress
	}
	if decision.UserAgent != "" {
		details["user_agent"] = decision.UserAgent
	}

	entry := &Entry{
		GateID:    decision.GateID,
		Action:    decision.Decision,
		UserID:    decision.UserID,
		Timestamp: clock.Now(),
		Details:   details,
		IPAddress: decision.IPAddress,
		UserAgent: decision.UserAgent,
	}

	key := TrailKey(workspaceID)
	prev := ""
	if head, hErr := s.store.LRange(ctx, key, 0, 0); hErr == nil && len(head) == 1 {
		previous := &Entry{}
		if dErr := approval.Decode(head[0], previous); dErr == nil {
			prev = previous.Checksum
		}
	}
	entry.Checksum = checksum(prev, entry)

	data, err := approval.Encode(entry)
	if err != nil {
		return false, err
	}
	if err = s.store.LPush(ctx, key, data); err != nil {
		return false, fmt.Errorf("audit: failed to append entry for gate %s: %w", decision.GateID, err)
	}
	if err = s.store.LTrim(ctx, key, 0, MaxEntries-1); err != nil {
		return false, fmt.Errorf("audit: failed to trim trail %s: %w", workspaceID, err)
	}
	if err = s.store.Expire(ctx, key, s.retention); err != nil {
		return false, fmt.Errorf("audit: failed to set retention on %s: %w", workspaceID, err)
	}
	span.WithAttributes(map[string]string{"gate_id": decision.GateID, "workspace_id": workspaceID})
	return true, nil
}

// load reads and decodes the entire trail. A corrupt entry aborts the read:
// a compliance trail that silently skips records is worse than one that
// fails loudly.
func (s *Service) load(ctx context.Context, workspaceID string) ([]*Entry, error) {
	items, err := s.store.LRange(ctx, TrailKey(workspaceID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to read trail %s: %w", workspaceID, err)
	}
	entries := make([]*Entry, 0, len(items))
	for _, item := range items {
		entry := &Entry{}
		if err := approval.Decode(item, entry); err != nil {
			return nil, fmt.Errorf("audit: trail %s: %w", workspaceID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Trail returns the filtered workspace trail, newest first. The full-list
// scan is acceptable only because the trail is capped at MaxEntries.
func (s *Service) Trail(ctx context.Context, workspaceID string, filter *Filter) (entries []*Entry, err error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Trail", "INTERNAL")
	defer tracing.EndSpan(span, err)

	all, err := s.load(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	entries = make([]*Entry, 0, len(all))
	for _, entry := range all {
		if filter.Match(entry) {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// Verify walks the checksum chain of a workspace trail and returns false
// with the offending entry when any stored record was altered in place.
func (s *Service) Verify(ctx context.Context, workspaceID string) (bool, *Entry, error) {
	entries, err := s.load(ctx, workspaceID)
	if err != nil {
		return false, nil, err
	}
	if i := verifyChain(entries); i >= 0 {
		return false, entries[i], nil
	}
	return true, nil, nil
}

// classify buckets an action string. "auto" qualified actions take
// precedence because "auto_approved" also contains "approve".
func classify(action string) string {
	lower := strings.ToLower(action)
	switch {
	case strings.Contains(lower, "auto"):
		return "auto"
	case strings.Contains(lower, "approve"):
		return "approve"
	case strings.Contains(lower, "reject"):
		return "reject"
	case strings.Contains(lower, "escalat"):
		return "escalate"
	case strings.Contains(lower, "timeout"):
		return "timeout"
	}
	return "other"
}

// ComplianceReport scores the approval process over [start, end]. Reports
// are cached for ReportTTL under the period-end date, so repeated dashboard
// loads do not rescan the trail.
func (s *Service) ComplianceReport(ctx context.Context, workspaceID string, start, end time.Time) (report *Report, err error) {
	ctx, span := tracing.StartSpan(ctx, "audit.ComplianceReport", "INTERNAL")
	defer tracing.EndSpan(span, err)

	cacheKey := ReportKey(workspaceID, end.Format("2006-01-02"))
	if data, cErr := s.store.Get(ctx, cacheKey); cErr == nil {
		cached := &Report{}
		if dErr := approval.Decode(data, cached); dErr == nil && cached.PeriodStart.Equal(start) {
			return cached, nil
		}
	}

	entries, err := s.Trail(ctx, workspaceID, &Filter{From: start, To: end})
	if err != nil {
		return nil, err
	}

	report = &Report{
		WorkspaceID: workspaceID,
		PeriodStart: start,
		PeriodEnd:   end,
		GeneratedAt: clock.Now(),
	}
	var responseTotal float64
	var responseCount int
	for _, entry := range entries {
		switch classify(entry.Action) {
		case "approve":
			report.Approvals++
		case "auto":
			report.AutoApprovals++
		case "reject":
			report.Rejections++
		case "escalate":
			report.Escalations++
		case "timeout":
			report.Timeouts++
		}
		if entry.Details != nil {
			if v, ok := entry.Details["response_time_seconds"].(float64); ok && v > 0 {
				responseTotal += v
				responseCount++
			}
		}
	}
	report.TotalDecisions = len(entries)

	if report.TotalDecisions > 0 {
		total := float64(report.TotalDecisions)
		report.AutoApprovalRate = float64(report.AutoApprovals) / total
		report.EscalationRate = float64(report.Escalations) / total
		report.TimeoutRate = float64(report.Timeouts) / total
	}
	report.ResponseTimeScore = 1.0
	if responseCount > 0 {
		report.AvgResponseSeconds = responseTotal / float64(responseCount)
		if report.AvgResponseSeconds > 0 {
			report.ResponseTimeScore = targetResponseSeconds / report.AvgResponseSeconds
			if report.ResponseTimeScore > 1 {
				report.ResponseTimeScore = 1
			}
		}
	}
	report.ComplianceScore = 100 * (report.AutoApprovalRate*0.2 +
		(1-report.EscalationRate)*0.3 +
		(1-report.TimeoutRate)*0.3 +
		report.ResponseTimeScore*0.2)
	report.Grade = GradeFor(report.ComplianceScore)

	if data, eErr := approval.Encode(report); eErr == nil {
		if sErr := s.store.Set(ctx, cacheKey, data, ReportTTL); sErr != nil {
			return nil, fmt.Errorf("audit: failed to cache report %s: %w", cacheKey, sErr)
		}
	}
	return report, nil
}

// Cleanup drops entries older than the cutoff and rewrites the trail. The
// read-all/rewrite-all shape is deliberate: the store offers no range
// delete, and the list is capped.
func (s *Service) Cleanup(ctx context.Context, workspaceID string, retentionYears int) (removed int, err error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Cleanup", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if retentionYears <= 0 {
		retentionYears = RetentionYears
	}
	entries, err := s.load(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	cutoff := clock.Now().AddDate(-retentionYears, 0, 0)
	kept := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, entry)
		} else {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	key := TrailKey(workspaceID)
	if err = s.store.Delete(ctx, key); err != nil {
		return 0, fmt.Errorf("audit: failed to rewrite trail %s: %w", workspaceID, err)
	}
	for i := len(kept) - 1; i >= 0; i-- { // re-push oldest first to preserve order
		data, eErr := approval.Encode(kept[i])
		if eErr != nil {
			return 0, eErr
		}
		if err = s.store.LPush(ctx, key, data); err != nil {
			return 0, fmt.Errorf("audit: failed to rewrite trail %s: %w", workspaceID, err)
		}
	}
	if len(kept) > 0 {
		if err = s.store.Expire(ctx, key, s.retention); err != nil {
			return 0, fmt.Errorf("audit: failed to set retention on %s: %w", workspaceID, err)
		}
	}
	return removed, nil
}
