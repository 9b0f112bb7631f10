package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentops/gatekeeper/model/approval"
)

// Tier identifies a requester's subscription tier; each tier carries a
// default cost threshold above which actions are gated.
type Tier string

const (
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
	TierUnlimited  Tier = "unlimited"
)

// Rule gates one request type. Rules are evaluated in list order and the
// first rule whose type matches and whose minimum risk level is cleared wins.
type Rule struct {
	RequestType      approval.RequestType `json:"request_type" yaml:"request_type"`
	MinRiskLevel     approval.RiskLevel   `json:"min_risk_level" yaml:"min_risk_level"`
	MaxCost          *float64             `json:"max_cost,omitempty" yaml:"max_cost,omitempty"`
	RequiresApproval bool                 `json:"requires_approval" yaml:"requires_approval"`
	Description      string               `json:"description,omitempty" yaml:"description,omitempty"`
}

func costPtr(v float64) *float64 { return &v }

// DefaultRules returns the built-in rule table. Workspace overrides are
// appended after these, so a workspace can only add gates, not weaken the
// defaults.
func DefaultRules() []Rule {
	return []Rule{
		{RequestType: approval.TypeContentGeneration, MinRiskLevel: approval.RiskHigh, MaxCost: costPtr(0.50), RequiresApproval: true, Description: "high-risk content generation"},
		{RequestType: approval.TypeExternalPost, MinRiskLevel: approval.RiskLow, RequiresApproval: true, Description: "external posting always needs sign-off"},
		{RequestType: approval.TypeDataDeletion, MinRiskLevel: approval.RiskLow, RequiresApproval: true, Description: "data deletion always needs sign-off"},
		{RequestType: approval.TypeHighCostOperation, MinRiskLevel: approval.RiskMedium, MaxCost: costPtr(1.00), RequiresApproval: true, Description: "costly operation"},
		{RequestType: approval.TypeSensitiveAccess, MinRiskLevel: approval.RiskMedium, RequiresApproval: true, Description: "sensitive data access"},
		{RequestType: approval.TypeSystemChange, MinRiskLevel: approval.RiskHigh, RequiresApproval: true, Description: "system configuration change"},
	}
}

// DefaultCostThresholds returns the per-tier USD thresholds used when no
// rule matches.
func DefaultCostThresholds() map[Tier]float64 {
	return map[Tier]float64{
		TierBasic:      0.25,
		TierPro:        0.50,
		TierEnterprise: 1.00,
		TierUnlimited:  5.00,
	}
}

// Engine is an immutable rule evaluator. Build one per workspace at
// construction from defaults plus overrides; instances share nothing.
type Engine struct {
	rules      []Rule
	thresholds map[Tier]float64
}

// Option customises engine construction.
type Option func(*Engine)

// WithRules appends workspace rule overrides after the built-in defaults.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = append(e.rules, rules...) }
}

// WithCostThresholds overlays per-tier cost thresholds on the defaults.
func WithCostThresholds(thresholds map[Tier]float64) Option {
	return func(e *Engine) {
		for tier, limit := range thresholds {
			e.thresholds[tier] = limit
		}
	}
}

// New creates an engine from the built-in defaults plus options.
func New(options ...Option) *Engine {
	engine := &Engine{
		rules:      DefaultRules(),
		thresholds: DefaultCostThresholds(),
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// threshold returns the cost threshold for tier; unknown tiers use the
// basic tier so that an unrecognised requester gets the tightest limit.
func (e *Engine) threshold(tier Tier) float64 {
	if limit, ok := e.thresholds[tier]; ok {
		return limit
	}
	return e.thresholds[TierBasic]
}

// match returns the first rule applicable to the action, or nil.
func (e *Engine) match(actionType approval.RequestType, risk approval.RiskLevel) *Rule {
	for i := range e.rules {
		rule := &e.rules[i]
		if rule.RequestType == actionType && risk.AtLeast(rule.MinRiskLevel) {
			return rule
		}
	}
	return nil
}

// RequiresApproval reports whether a human gate is required before the
// action may proceed. It never returns an error: evaluation failures fail
// closed, because an approval-blocking outage is safer than an auto-approved
// risky action.
func (e *Engine) RequiresApproval(_ context.Context, actionType approval.RequestType, risk approval.RiskLevel, cost float64, tier Tier) (required bool) {
	defer func() {
		if r := recover(); r != nil {
			required = true
		}
	}()
	if rule := e.match(actionType, risk); rule != nil {
		if rule.MaxCost != nil && cost > *rule.MaxCost {
			return true
		}
		return rule.RequiresApproval
	}
	if cost > e.threshold(tier) {
		return true
	}
	if risk.AtLeast(approval.RiskHigh) {
		return true
	}
	// Externally visible or destructive actions are gated unconditionally,
	// independent of risk and cost.
	if actionType == approval.TypeExternalPost || actionType == approval.TypeDataDeletion {
		return true
	}
	return false
}

// ApprovalReason builds a human-readable explanation using the same matching
// logic as RequiresApproval, joining every contributing reason with "; ".
func (e *Engine) ApprovalReason(_ context.Context, actionType approval.RequestType, risk approval.RiskLevel, cost float64, tier Tier) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			reason = "approval required: policy evaluation failed"
		}
	}()
	var reasons []string
	if rule := e.match(actionType, risk); rule != nil {
		if rule.MaxCost != nil && cost > *rule.MaxCost {
			reasons = append(reasons, fmt.Sprintf("estimated cost $%.2f exceeds rule limit $%.2f", cost, *rule.MaxCost))
		}
		if rule.RequiresApproval && rule.Description != "" {
			reasons = append(reasons, rule.Description)
		}
	} else if cost > e.threshold(tier) {
		reasons = append(reasons, fmt.Sprintf("estimated cost $%.2f exceeds %s tier threshold $%.2f", cost, tier, e.threshold(tier)))
	}
	if risk.AtLeast(approval.RiskHigh) {
		reasons = append(reasons, fmt.Sprintf("risk level %s", risk))
	}
	switch actionType {
	case approval.TypeExternalPost:
		reasons = append(reasons, "content will be posted externally")
	case approval.TypeDataDeletion:
		reasons = append(reasons, "operation deletes data irreversibly")
	}
	if len(reasons) == 0 {
		return "approval required by policy"
	}
	return strings.Join(reasons, "; ")
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithEngine embeds the engine in ctx so that callers deep in the pipeline
// can consult the workspace policy without threading it explicitly.
func WithEngine(ctx context.Context, e *Engine) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, e)
}

// FromContext extracts the engine or nil.
func FromContext(ctx context.Context) *Engine {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Engine); ok {
		return v
	}
	return nil
}
