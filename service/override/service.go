package override

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/agentops/gatekeeper/internal/clock"
	"github.com/agentops/gatekeeper/model/approval"
	"github.com/agentops/gatekeeper/service/gate"
	"github.com/agentops/gatekeeper/service/store"
	"github.com/agentops/gatekeeper/tracing"
)

// RecordTTL is the retention of stored override records.
const RecordTTL = 30 * 24 * time.Hour

// Key builds the stored-record key for a gate's override.
func Key(gateID string) string { return "human_override:" + gateID }

// Input carries the fields of one override application.
type Input struct {
	GateID         string
	ModifiedOutput string
	Reason         string
	OverrideBy     string
}

// Service applies post-decision human overrides.
type Service struct {
	store       store.Service
	responseTTL time.Duration
}

// New creates an override service on the supplied store.
func New(storage store.Service) *Service {
	return &Service{store: storage, responseTTL: gate.ResponseTTL}
}

// Apply stores an override record and, when a response record already exists
// for the gate, rewrites its modified output and annotates its feedback with
// the override reason. A missing response is not an error: the override
// record alone is authoritative for later consumers.
func (s *Service) Apply(ctx context.Context, input *Input) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "override.Apply", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if input == nil || input.GateID == "" || input.ModifiedOutput == "" {
		return false, fmt.Errorf("override: gate id and modified output are required")
	}
	record := &Record{
		GateID:         input.GateID,
		Type:           TypeModification,
		ModifiedOutput: input.ModifiedOutput,
		Reason:         input.Reason,
		OverrideBy:     input.OverrideBy,
		CreatedAt:      clock.Now(),
	}
	record.Diff = s.diff(ctx, input.GateID, input.ModifiedOutput)

	if ok, err = s.save(ctx, record); !ok {
		return ok, err
	}
	err = s.amendResponse(ctx, input.GateID, func(response *approval.Response) {
		response.ModifiedOutput = input.ModifiedOutput
		if input.Reason != "" {
			response.Feedback = annotate(response.Feedback, "override: "+input.Reason)
		}
	})
	return err == nil, err
}

// RejectWithInstructions stores a rejection override and forces the existing
// response to a rejection carrying the rework instructions.
func (s *Service) RejectWithInstructions(ctx context.Context, gateID, instructions, rejectBy string) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "override.RejectWithInstructions", "INTERNAL")
	defer tracing.EndSpan(span, err)

	if gateID == "" || instructions == "" {
		return false, fmt.Errorf("override: gate id and instructions are required")
	}
	record := &Record{
		GateID:     gateID,
		Type:       TypeRejection,
		Reason:     instructions,
		OverrideBy: rejectBy,
		CreatedAt:  clock.Now(),
	}
	if ok, err = s.save(ctx, record); !ok {
		return ok, err
	}
	err = s.amendResponse(ctx, gateID, func(response *approval.Response) {
		response.Approved = false
		response.Feedback = instructions
	})
	return err == nil, err
}

// ValidatePermissions checks whether the user may override the gate.
//
// Placeholder: it always allows. A real implementation must check the
// user's role in the workspace and the gate's mutability before permitting
// an override.
func (s *Service) ValidatePermissions(_ context.Context, gateID, userID, workspaceID string) (bool, error) {
	if gateID == "" || userID == "" || workspaceID == "" {
		return false, fmt.Errorf("override: gate id, user id and workspace id are required")
	}
	return true, nil
}

// ApplyTemplate looks up a canned override template, runs the (stubbed)
// content transformation and delegates to Apply with the template's reason.
func (s *Service) ApplyTemplate(ctx context.Context, gateID, templateType string, parameters map[string]interface{}) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "override.ApplyTemplate", "INTERNAL")
	defer tracing.EndSpan(span, err)

	template, found := Templates[templateType]
	if !found {
		return false, fmt.Errorf("override: unknown template %q", templateType)
	}
	original := s.currentOutput(ctx, gateID)
	if original == "" {
		return false, nil // nothing left to transform; gate and response expired
	}
	transformed := transformContent(template, original, parameters)

	record := &Record{
		GateID:         gateID,
		Type:           TypeModification,
		ModifiedOutput: transformed,
		Reason:         template.Reason,
		Template:       template.Type,
		Parameters:     parameters,
		CreatedAt:      clock.Now(),
	}
	record.Diff = s.diff(ctx, gateID, transformed)
	if ok, err = s.save(ctx, record); !ok {
		return ok, err
	}
	err = s.amendResponse(ctx, gateID, func(response *approval.Response) {
		response.ModifiedOutput = transformed
		response.Feedback = annotate(response.Feedback, "override: "+template.Reason)
	})
	return err == nil, err
}

// transformContent is the extension point for the template's content
// rewrite. The NLP logic lives outside this core; until a collaborator is
// wired in the content passes through unchanged.
func transformContent(_ Template, content string, _ map[string]interface{}) string {
	return content
}

func (s *Service) save(ctx context.Context, record *Record) (bool, error) {
	data, err := approval.Encode(record)
	if err != nil {
		return false, err
	}
	if err = s.store.Set(ctx, Key(record.GateID), data, RecordTTL); err != nil {
		return false, fmt.Errorf("override: failed to store record for gate %s: %w", record.GateID, err)
	}
	return true, nil
}

// amendResponse applies mutate to the stored response record, if present.
func (s *Service) amendResponse(ctx context.Context, gateID string, mutate func(*approval.Response)) error {
	data, err := s.store.Get(ctx, gate.ResponseKey(gateID))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("override: gate %s: %w", gateID, err)
	}
	response := &approval.Response{}
	if err := approval.Decode(data, response); err != nil {
		return fmt.Errorf("override: gate %s: %w", gateID, err)
	}
	mutate(response)
	updated, err := approval.Encode(response)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, gate.ResponseKey(gateID), updated, s.responseTTL); err != nil {
		return fmt.Errorf("override: failed to update response for gate %s: %w", gateID, err)
	}
	return nil
}

// currentOutput returns the latest content for the gate: the response's
// modified output when present, otherwise the request's stored preview.
func (s *Service) currentOutput(ctx context.Context, gateID string) string {
	if data, err := s.store.Get(ctx, gate.ResponseKey(gateID)); err == nil {
		response := &approval.Response{}
		if dErr := approval.Decode(data, response); dErr == nil && response.ModifiedOutput != "" {
			return response.ModifiedOutput
		}
	}
	if data, err := s.store.Get(ctx, gate.RequestKey(gateID)); err == nil {
		request := &approval.Request{}
		if dErr := approval.Decode(data, request); dErr == nil {
			return request.OutputPreview
		}
	}
	return ""
}

// diff renders a unified diff of the stored preview against the override.
func (s *Service) diff(ctx context.Context, gateID, modified string) string {
	original := ""
	if data, err := s.store.Get(ctx, gate.RequestKey(gateID)); err == nil {
		request := &approval.Request{}
		if dErr := approval.Decode(data, request); dErr == nil {
			original = request.OutputPreview
		}
	}
	if original == "" {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: "original",
		ToFile:   "override",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}

func annotate(feedback, note string) string {
	if feedback == "" {
		return note
	}
	return feedback + "; " + note
}
