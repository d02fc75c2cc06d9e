// Package types defines the core entities of the phase queue.
package types

import (
	"fmt"
	"time"
)

// Priority bounds. Lower values execute first: 10 is urgent, 90 is
// background work that only runs when nothing else is ready.
const (
	PriorityUrgent     = 10
	PriorityDefault    = 50
	PriorityBackground = 90
)

// NoParent is the sentinel parent_issue value for fire-and-forget
// ("hopper") submissions that have no distinct parent tracking ticket.
const NoParent = 0

// Phase represents one ordered unit of work within a larger
// multi-phase specification, queued for execution as its own
// externally-tracked ticket.
type Phase struct {
	QueueID        string    `json:"queue_id"`
	ParentIssue    int       `json:"parent_issue"`
	PhaseNumber    int       `json:"phase_number"`
	IssueNumber    *int      `json:"issue_number,omitempty"`
	Status         Status    `json:"status"`
	DependsOnPhase *int      `json:"depends_on_phase,omitempty"`
	Data           PhaseData `json:"phase_data"`
	Priority       int       `json:"priority"`
	QueuePosition  int64     `json:"queue_position"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
}

// Validate checks field values before the phase is persisted
func (p *Phase) Validate() error {
	if p.PhaseNumber < 1 {
		return &ValidationError{Field: "phase_number", Reason: fmt.Sprintf("must be >= 1 (got %d)", p.PhaseNumber)}
	}
	if p.ParentIssue < 0 {
		return &ValidationError{Field: "parent_issue", Reason: fmt.Sprintf("must be >= 0 (got %d)", p.ParentIssue)}
	}
	if p.DependsOnPhase != nil {
		dep := *p.DependsOnPhase
		if dep < 1 || dep >= p.PhaseNumber {
			return &ValidationError{
				Field:  "depends_on_phase",
				Reason: fmt.Sprintf("must satisfy 0 < depends_on_phase < phase_number (got %d for phase %d)", dep, p.PhaseNumber),
			}
		}
		if p.ParentIssue == NoParent {
			return &ValidationError{
				Field:  "depends_on_phase",
				Reason: "dependencies require a parent issue; hopper submissions cannot form chains",
			}
		}
	}
	if p.Priority < PriorityUrgent || p.Priority > PriorityBackground {
		return &ValidationError{
			Field:  "priority",
			Reason: fmt.Sprintf("must be between %d and %d (got %d)", PriorityUrgent, PriorityBackground, p.Priority),
		}
	}
	if !p.Status.IsValid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("invalid status: %s", p.Status)}
	}
	return p.Data.Validate()
}

// HasParent reports whether the phase belongs to a real parent ticket
func (p *Phase) HasParent() bool {
	return p.ParentIssue != NoParent
}

// PhaseData is the structured payload describing the work a phase
// carries. WorkflowType, ExecutorID and Title are required; Body and
// DocRefs are free-form.
type PhaseData struct {
	WorkflowType string   `json:"workflow_type"`
	ExecutorID   string   `json:"executor_id"`
	Title        string   `json:"title"`
	Body         string   `json:"body,omitempty"`
	DocRefs      []string `json:"doc_refs,omitempty"`
}

// Validate checks the required payload sub-fields are non-empty
func (d *PhaseData) Validate() error {
	if d.WorkflowType == "" {
		return &ValidationError{Field: "phase_data.workflow_type", Reason: "is required"}
	}
	if d.ExecutorID == "" {
		return &ValidationError{Field: "phase_data.executor_id", Reason: "is required"}
	}
	if d.Title == "" {
		return &ValidationError{Field: "phase_data.title", Reason: "is required"}
	}
	return nil
}

// Status represents the current state of a queued phase
type Status string

const (
	// StatusQueued means the phase is waiting on a dependency.
	StatusQueued Status = "queued"
	// StatusReady means the phase is eligible to be picked for execution.
	StatusReady Status = "ready"
	// StatusRunning means an executor is working on the phase.
	StatusRunning Status = "running"
	// StatusCompleted is terminal: the phase's execution succeeded.
	StatusCompleted Status = "completed"
	// StatusBlocked is terminal: an upstream phase in the chain failed.
	StatusBlocked Status = "blocked"
	// StatusFailed is terminal: the phase's execution failed.
	StatusFailed Status = "failed"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusReady, StatusRunning, StatusCompleted, StatusBlocked, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving
// from s to next. Terminal states permit nothing.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusReady || next == StatusBlocked
	case StatusReady:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Transition is a single compare-and-set status change. From must
// match the row's current status or the whole batch is rejected.
type Transition struct {
	QueueID      string
	From         Status
	To           Status
	ErrorMessage *string
}
