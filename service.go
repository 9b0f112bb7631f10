package gatekeeper

import (
	"github.com/agentops/gatekeeper/policy"
	"github.com/agentops/gatekeeper/service/audit"
	"github.com/agentops/gatekeeper/service/feedback"
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/override"
	"github.com/agentops/gatekeeper/service/store"
	smemory "github.com/agentops/gatekeeper/service/store/memory"
)

// Service bundles the approval-gate subsystem behind one constructor: the
// gate lifecycle, the policy engines, the audit trail, feedback collection
// and human overrides, all sharing a single store.
type Service struct {
	config   *Config
	store    store.Service
	gate     gate.Service
	audit    *audit.Service
	feedback *feedback.Service
	override *override.Service

	defaultPolicy *policy.Engine
	policies      map[string]*policy.Engine
	gateOptions   []gate.Option
}

// New creates a service from options. Without WithStore an in-memory store
// backs everything, which suits tests and single-process embedding; use the
// redis store for anything shared.
func New(options ...Option) *Service {
	s := &Service{
		config:   DefaultConfig(),
		policies: map[string]*policy.Engine{},
	}
	for _, option := range options {
		option(s)
	}
	s.init()
	return s
}

func (s *Service) init() {
	if s.store == nil {
		s.store = smemory.New()
	}
	gateOptions := append([]gate.Option{
		gate.WithTimeout(s.config.Timeout()),
		gate.WithPollInterval(s.config.PollInterval()),
	}, s.gateOptions...)
	s.gate = gate.New(s.store, gateOptions...)
	s.audit = audit.New(s.store)
	s.feedback = feedback.New(s.store)
	s.override = override.New(s.store)

	s.defaultPolicy = policy.New()
	for workspaceID, workspace := range s.config.Workspaces {
		s.policies[workspaceID] = policy.New(
			policy.WithCostThresholds(workspace.ApprovalCostThresholds),
			policy.WithRules(workspace.ApprovalRuleOverrides...),
		)
	}
}

// Gate returns the approval-gate lifecycle service.
func (s *Service) Gate() gate.Service { return s.gate }

// Audit returns the compliance trail service.
func (s *Service) Audit() *audit.Service { return s.audit }

// Feedback returns the feedback collector.
func (s *Service) Feedback() *feedback.Service { return s.feedback }

// Override returns the human-override service.
func (s *Service) Override() *override.Service { return s.override }

// Store returns the shared backing store.
func (s *Service) Store() store.Service { return s.store }

// PolicyFor returns the workspace's policy engine, built once at
// construction from the defaults plus the workspace's configured overrides.
func (s *Service) PolicyFor(workspaceID string) *policy.Engine {
	if engine, ok := s.policies[workspaceID]; ok {
		return engine
	}
	return s.defaultPolicy
}
