package gatekeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/agentops/gatekeeper/policy"
)

// Config is a serialisable representation of the gatekeeper configuration.
// It can be populated from JSON or YAML; the zero-value is useful since all
// nested fields inherit their package defaults.
type Config struct {
	// ApprovalTimeoutSeconds bounds how long a gate stays pending.
	ApprovalTimeoutSeconds int `json:"approval_timeout_seconds" yaml:"approval_timeout_seconds"`

	// PollIntervalSeconds is the wait loop's re-check cadence.
	PollIntervalSeconds int `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`

	Store StoreConfig `json:"store" yaml:"store"`

	// Workspaces carries per-workspace policy overrides keyed by workspace id.
	Workspaces map[string]WorkspaceConfig `json:"workspaces,omitempty" yaml:"workspaces,omitempty"`
}

// StoreConfig selects and parameterises the backing store.
type StoreConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	DB   int    `json:"db,omitempty" yaml:"db,omitempty"`

	// SecretURL points at an encrypted scy resource holding the store
	// password; Key selects the decryption key, e.g. "blowfish://default".
	SecretURL string `json:"secret_url,omitempty" yaml:"secret_url,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
}

// WorkspaceConfig overrides the built-in policy for one workspace.
type WorkspaceConfig struct {
	ApprovalCostThresholds map[policy.Tier]float64 `json:"approval_cost_thresholds,omitempty" yaml:"approval_cost_thresholds,omitempty"`
	ApprovalRuleOverrides  []policy.Rule           `json:"approval_rule_overrides,omitempty" yaml:"approval_rule_overrides,omitempty"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		ApprovalTimeoutSeconds: 3600,
		PollIntervalSeconds:    2,
	}
}

// Timeout returns the approval timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ApprovalTimeoutSeconds) * time.Second
}

// PollInterval returns the wait loop cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.ApprovalTimeoutSeconds <= 0 {
		return fmt.Errorf("approval_timeout_seconds must be > 0")
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be > 0")
	}
	for workspaceID, workspace := range c.Workspaces {
		for i, rule := range workspace.ApprovalRuleOverrides {
			if rule.RequestType == "" {
				return fmt.Errorf("workspace %s: rule override %d: request_type is required", workspaceID, i)
			}
		}
	}
	return nil
}

// LoadConfig reads a YAML config document from a URL resolved through the
// abstract file storage layer (file, s3, gs, mem).
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", URL, err)
	}
	return config, nil
}
