package override

import (
	"time"
)

// Override kinds.
const (
	TypeModification = "modification"
	TypeRejection    = "rejection_with_instructions"
)

// Record is one stored override.
type Record struct {
	GateID         string                 `json:"gate_id"`
	Type           string                 `json:"type"`
	ModifiedOutput string                 `json:"modified_output,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	OverrideBy     string                 `json:"override_by,omitempty"`
	Template       string                 `json:"template,omitempty"`
	Parameters     map[string]interface{} `json:"parameters,omitempty"`

	// Diff is a unified diff of the original preview against the override,
	// kept for reviewer context.
	Diff string `json:"diff,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Template is a canned override with a fixed reason; the content
// transformation it names is supplied by a collaborator outside this core.
type Template struct {
	Type        string `json:"type"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// Templates is the fixed override-template catalog.
var Templates = map[string]Template{
	"brand_voice_fix": {
		Type:        "brand_voice_fix",
		Reason:      "adjusted to match brand voice guidelines",
		Description: "rewrites the output in the workspace's brand voice",
	},
	"fact_correction": {
		Type:        "fact_correction",
		Reason:      "corrected factual inaccuracies",
		Description: "fixes factual errors flagged by the reviewer",
	},
	"content_expansion": {
		Type:        "content_expansion",
		Reason:      "expanded content for completeness",
		Description: "adds missing detail the reviewer asked for",
	},
	"simplification": {
		Type:        "simplification",
		Reason:      "simplified for clarity",
		Description: "shortens and simplifies the output",
	},
}
