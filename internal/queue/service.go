// Package queue implements the phase queue service: enqueue, cancel,
// and the state transitions that advance a parent's phase chain.
package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adwforge/phaseq/internal/storage"
	"github.com/adwforge/phaseq/internal/types"
)

// Service provides the phase queue operations over a storage backend.
// All mutations go through the backend's compare-and-set transitions,
// so concurrent callers racing on the same row get an explicit
// InvalidTransitionError rather than a lost update.
type Service struct {
	store storage.Storage
}

// NewService creates a queue service backed by the given storage
func NewService(store storage.Storage) *Service {
	return &Service{store: store}
}

// EnqueueRequest carries the caller-supplied fields for one phase
type EnqueueRequest struct {
	ParentIssue    int
	PhaseNumber    int
	Data           types.PhaseData
	DependsOnPhase *int
	Priority       int // 0 means default
}

// Enqueue validates the request and inserts one queue row. Phase 1
// (no dependency) starts ready; later phases start queued until their
// predecessor completes. No notification fires on enqueue.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	priority := req.Priority
	if priority == 0 {
		priority = types.PriorityDefault
	}

	status := types.StatusReady
	if req.DependsOnPhase != nil {
		status = types.StatusQueued
	}

	phase := &types.Phase{
		QueueID:        uuid.NewString(),
		ParentIssue:    req.ParentIssue,
		PhaseNumber:    req.PhaseNumber,
		Status:         status,
		DependsOnPhase: req.DependsOnPhase,
		Data:           req.Data,
		Priority:       priority,
	}
	if err := phase.Validate(); err != nil {
		return "", err
	}

	// A dependency must point at a phase that exists for the same
	// parent; a dangling pointer would leave the row queued forever.
	// If the predecessor already concluded, reflect that immediately
	// instead of waiting for a promotion that will never come.
	if req.DependsOnPhase != nil {
		chain, err := s.store.GetPhasesByParent(ctx, req.ParentIssue)
		if err != nil {
			return "", err
		}
		dep := findPhaseNumber(chain, *req.DependsOnPhase)
		if dep == nil {
			return "", &types.ValidationError{
				Field:  "depends_on_phase",
				Reason: fmt.Sprintf("phase %d does not exist for parent %d", *req.DependsOnPhase, req.ParentIssue),
			}
		}
		switch dep.Status {
		case types.StatusCompleted:
			phase.Status = types.StatusReady
		case types.StatusFailed, types.StatusBlocked:
			phase.Status = types.StatusBlocked
			msg := fmt.Sprintf("blocked by failure of phase %d", dep.PhaseNumber)
			phase.ErrorMessage = &msg
		}
	}

	if err := s.store.CreatePhase(ctx, phase); err != nil {
		return "", err
	}
	return phase.QueueID, nil
}

// Dequeue cancels a phase that has not started running. Returns false
// (not an error) when the phase is running, terminal, or absent.
func (s *Service) Dequeue(ctx context.Context, queueID string) (bool, error) {
	return s.store.DeletePhase(ctx, queueID)
}

// GetNextReady returns the single phase that should execute next, or
// nil when nothing is ready. Pure read: safe to poll repeatedly.
func (s *Service) GetNextReady(ctx context.Context) (*types.Phase, error) {
	ready, err := s.store.GetPhasesByStatus(ctx, types.StatusReady)
	if err != nil {
		return nil, err
	}
	if len(ready) == 0 {
		return nil, nil
	}
	return OrderCandidates(ready)[0], nil
}

// MarkRunning transitions ready → running. A phase in any other state
// is rejected with InvalidTransitionError, which is what enforces
// single execution when two pollers race on the same phase.
func (s *Service) MarkRunning(ctx context.Context, queueID string) error {
	return s.store.ApplyTransitions(ctx, []types.Transition{
		{QueueID: queueID, From: types.StatusReady, To: types.StatusRunning},
	})
}

// MarkPhaseComplete transitions running → completed and promotes the
// direct successor (if any) from queued to ready, atomically. Returns
// the queue IDs of the phases promoted.
func (s *Service) MarkPhaseComplete(ctx context.Context, queueID string) ([]string, error) {
	phase, err := s.getExisting(ctx, queueID)
	if err != nil {
		return nil, err
	}

	transitions := []types.Transition{
		{QueueID: queueID, From: types.StatusRunning, To: types.StatusCompleted},
	}

	var promoted []string
	if phase.HasParent() {
		chain, err := s.store.GetPhasesByParent(ctx, phase.ParentIssue)
		if err != nil {
			return nil, err
		}
		if succ := DirectSuccessor(chain, phase.PhaseNumber); succ != nil && succ.Status == types.StatusQueued {
			transitions = append(transitions, types.Transition{
				QueueID: succ.QueueID, From: types.StatusQueued, To: types.StatusReady,
			})
			promoted = append(promoted, succ.QueueID)
		}
	}

	if err := s.store.ApplyTransitions(ctx, transitions); err != nil {
		return nil, err
	}
	return promoted, nil
}

// MarkPhaseFailed transitions running → failed and cascade-blocks
// every transitive successor in the chain, atomically. Later phases
// must never be left indefinitely queued after an upstream failure.
// Returns the queue IDs of the phases blocked.
func (s *Service) MarkPhaseFailed(ctx context.Context, queueID string, errorMessage string) ([]string, error) {
	phase, err := s.getExisting(ctx, queueID)
	if err != nil {
		return nil, err
	}

	transitions := []types.Transition{
		{QueueID: queueID, From: types.StatusRunning, To: types.StatusFailed, ErrorMessage: &errorMessage},
	}

	var blocked []string
	if phase.HasParent() {
		chain, err := s.store.GetPhasesByParent(ctx, phase.ParentIssue)
		if err != nil {
			return nil, err
		}
		for _, succ := range CascadeBlocked(chain, phase.PhaseNumber) {
			msg := fmt.Sprintf("blocked by failure of phase %d: %s", phase.PhaseNumber, errorMessage)
			transitions = append(transitions, types.Transition{
				QueueID: succ.QueueID, From: succ.Status, To: types.StatusBlocked, ErrorMessage: &msg,
			})
			blocked = append(blocked, succ.QueueID)
		}
	}

	if err := s.store.ApplyTransitions(ctx, transitions); err != nil {
		return nil, err
	}
	return blocked, nil
}

// GetAllByParent returns a parent's phases ordered by phase number
func (s *Service) GetAllByParent(ctx context.Context, parentIssue int) ([]*types.Phase, error) {
	return s.store.GetPhasesByParent(ctx, parentIssue)
}

// GetByIssueNumber looks a phase up by its external ticket identifier.
// Returns nil (not an error) when no queue row owns that ticket.
func (s *Service) GetByIssueNumber(ctx context.Context, issueNumber int) (*types.Phase, error) {
	return s.store.GetPhaseByIssueNumber(ctx, issueNumber)
}

// Get returns a phase by queue ID, or NotFoundError
func (s *Service) Get(ctx context.Context, queueID string) (*types.Phase, error) {
	return s.getExisting(ctx, queueID)
}

// List returns every queue row in arrival order
func (s *Service) List(ctx context.Context) ([]*types.Phase, error) {
	return s.store.ListPhases(ctx)
}

// ListRunning returns every phase currently marked running
func (s *Service) ListRunning(ctx context.Context) ([]*types.Phase, error) {
	return s.store.GetPhasesByStatus(ctx, types.StatusRunning)
}

// AttachIssueNumber backfills issue_number once the external ticket
// has been created for a phase.
func (s *Service) AttachIssueNumber(ctx context.Context, queueID string, issueNumber int) error {
	return s.store.AttachIssueNumber(ctx, queueID, issueNumber)
}

// ReportResult is the outcome of ReportIssueResult
type ReportResult struct {
	// Phase is the queue row that owned the reported issue, nil when
	// the issue is not queue-managed.
	Phase *types.Phase
	// Affected lists queue IDs promoted (on success) or blocked (on
	// failure) as a consequence of the report.
	Affected []string
}

// ReportIssueResult is the inbound completion-reporting entry point,
// keyed by issue_number. Both the coordinator's poll loop and the API
// funnel through here so there is a single transition authority for
// running → completed/failed. An issue number with no matching row is
// a benign no-op: not every external ticket is queue-managed.
func (s *Service) ReportIssueResult(ctx context.Context, issueNumber int, success bool, errorMessage string) (*ReportResult, error) {
	phase, err := s.store.GetPhaseByIssueNumber(ctx, issueNumber)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return &ReportResult{}, nil
	}

	var affected []string
	if success {
		affected, err = s.MarkPhaseComplete(ctx, phase.QueueID)
	} else {
		if errorMessage == "" {
			errorMessage = "execution failed"
		}
		affected, err = s.MarkPhaseFailed(ctx, phase.QueueID, errorMessage)
	}
	if err != nil {
		return nil, err
	}
	return &ReportResult{Phase: phase, Affected: affected}, nil
}

func (s *Service) getExisting(ctx context.Context, queueID string) (*types.Phase, error) {
	phase, err := s.store.GetPhase(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, &types.NotFoundError{QueueID: queueID}
	}
	return phase, nil
}

func findPhaseNumber(chain []*types.Phase, phaseNumber int) *types.Phase {
	for _, p := range chain {
		if p.PhaseNumber == phaseNumber {
			return p
		}
	}
	return nil
}
