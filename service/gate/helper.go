package gate

import (
	"context"
	"time"

	"github.com/agentops/gatekeeper/model/approval"
)

// DecisionFunc decides what to do with a pending request.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DecisionFunc func(r *approval.Request) (approved bool, reason string)

// AutoDecider starts a goroutine that polls a workspace's pending gates and
// applies fn to every request. It returns stop() – call it (or cancel ctx)
// to exit. Intended for tests and unattended environments; production
// deployments gate on real humans.
func AutoDecider(ctx context.Context, svc Service, workspaceID string, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				requests, _ := svc.PendingApprovals(ctx, workspaceID)
				for _, r := range requests {
					ok, reason := fn(r)
					if ok {
						_, _ = svc.Approve(ctx, r.GateID, reason, "auto")
					} else {
						_, _ = svc.Reject(ctx, r.GateID, reason, "", "auto")
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending requests in the workspace.
func AutoApprove(ctx context.Context, svc Service, workspaceID string, interval time.Duration) func() {
	return AutoDecider(ctx, svc, workspaceID,
		func(*approval.Request) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically rejects all pending requests with the given reason.
func AutoReject(ctx context.Context, svc Service, workspaceID string, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, svc, workspaceID,
		func(*approval.Request) (bool, string) { return false, reason }, interval)
}
