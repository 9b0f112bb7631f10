package feedback

import (
	"time"
)

// Request statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Request is a stored feedback solicitation for one gate.
type Request struct {
	GateID    string    `json:"gate_id"`
	Questions []string  `json:"questions"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Data is one reviewer's structured feedback on a gate.
type Data struct {
	GateID            string            `json:"gate_id"`
	Rating            *int              `json:"rating,omitempty"` // 1-5
	Comments          string            `json:"comments,omitempty"`
	Corrections       []string          `json:"corrections,omitempty"`
	QuestionResponses map[string]string `json:"question_responses,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
}

// Corrections is a stored list of pending content corrections for a gate,
// awaiting application by a later human-review step.
type Corrections struct {
	GateID      string    `json:"gate_id"`
	Corrections []string  `json:"corrections"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary aggregates feedback statistics for a workspace over a trailing
// window.
type Summary struct {
	WorkspaceID   string    `json:"workspace_id"`
	Days          int       `json:"days"`
	FeedbackCount int       `json:"feedback_count"`
	RatingCount   int       `json:"rating_count"`
	AverageRating float64   `json:"average_rating"`
	CommentCount  int       `json:"comment_count"`
	Corrections   int       `json:"corrections"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// DefaultQuestions is the question set used when the caller supplies none.
var DefaultQuestions = []string{
	"Was the output accurate?",
	"Was the tone appropriate for the audience?",
	"What would you change before publishing?",
}
