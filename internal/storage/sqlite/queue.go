// Package sqlite implements phase queue persistence for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adwforge/phaseq/internal/types"
)

const phaseColumns = `queue_id, parent_issue, phase_number, issue_number, status,
	depends_on_phase, phase_data, priority, queue_position, created_at, updated_at, error_message`

// CreatePhase inserts one queue row, assigning the next queue_position
// from the monotonic counter. The counter is never decremented, so
// FIFO ordering stays stable as unrelated rows come and go.
func (s *SQLiteStorage) CreatePhase(ctx context.Context, phase *types.Phase) error {
	payload, err := json.Marshal(phase.Data)
	if err != nil {
		return fmt.Errorf("failed to encode phase data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var position int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO queue_counters (name, last_position) VALUES ('phase_queue', 1)
		ON CONFLICT(name) DO UPDATE SET last_position = last_position + 1
		RETURNING last_position
	`).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to allocate queue position: %w", err)
	}

	now := time.Now().UTC()
	phase.QueuePosition = position
	phase.CreatedAt = now
	phase.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO phase_queue (queue_id, parent_issue, phase_number, issue_number, status,
			depends_on_phase, phase_data, priority, queue_position, created_at, updated_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, phase.QueueID, parentToSQL(phase.ParentIssue), phase.PhaseNumber, phase.IssueNumber,
		phase.Status, phase.DependsOnPhase, string(payload), phase.Priority,
		phase.QueuePosition, phase.CreatedAt, phase.UpdatedAt, phase.ErrorMessage)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("phase %d already queued for parent %d", phase.PhaseNumber, phase.ParentIssue)
		}
		return fmt.Errorf("failed to insert phase: %w", err)
	}

	return tx.Commit()
}

// GetPhase returns the phase with the given queue ID, or nil if absent
func (s *SQLiteStorage) GetPhase(ctx context.Context, queueID string) (*types.Phase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+phaseColumns+` FROM phase_queue WHERE queue_id = ?`, queueID)
	return scanPhase(row)
}

// GetPhaseByIssueNumber looks a phase up by its externally-visible
// ticket identifier. This keys on issue_number, never parent_issue:
// hopper phases have no parent and would otherwise match nothing.
func (s *SQLiteStorage) GetPhaseByIssueNumber(ctx context.Context, issueNumber int) (*types.Phase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+phaseColumns+` FROM phase_queue WHERE issue_number = ?`, issueNumber)
	return scanPhase(row)
}

// GetPhasesByParent returns a parent's phases ordered by phase_number
func (s *SQLiteStorage) GetPhasesByParent(ctx context.Context, parentIssue int) ([]*types.Phase, error) {
	var rows *sql.Rows
	var err error
	if parentIssue == types.NoParent {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+phaseColumns+` FROM phase_queue WHERE parent_issue IS NULL ORDER BY queue_position ASC`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+phaseColumns+` FROM phase_queue WHERE parent_issue = ? ORDER BY phase_number ASC`, parentIssue)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phases by parent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPhases(rows)
}

// GetPhasesByStatus returns all phases with the given status
func (s *SQLiteStorage) GetPhasesByStatus(ctx context.Context, status types.Status) ([]*types.Phase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+phaseColumns+` FROM phase_queue WHERE status = ? ORDER BY queue_position ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get phases by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPhases(rows)
}

// ListPhases returns every queue row in arrival order
func (s *SQLiteStorage) ListPhases(ctx context.Context) ([]*types.Phase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+phaseColumns+` FROM phase_queue ORDER BY queue_position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPhases(rows)
}

// DeletePhase removes a row only while it is still cancelable
// (queued or ready). Returns false when the row is running, terminal,
// or absent, signaling "could not cancel" without an error.
func (s *SQLiteStorage) DeletePhase(ctx context.Context, queueID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM phase_queue WHERE queue_id = ? AND status IN ('queued', 'ready')
	`, queueID)
	if err != nil {
		return false, fmt.Errorf("failed to delete phase: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return affected > 0, nil
}

// ApplyTransitions applies a batch of compare-and-set status changes
// atomically. Each UPDATE is guarded by the expected prior status; a
// guard miss rolls back the whole batch and reports why (not found vs
// invalid transition). This is the only write path for status.
func (s *SQLiteStorage) ApplyTransitions(ctx context.Context, transitions []types.Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	for _, t := range transitions {
		if !t.From.CanTransitionTo(t.To) {
			return &types.InvalidTransitionError{QueueID: t.QueueID, From: t.From, To: t.To}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, t := range transitions {
		res, err := tx.ExecContext(ctx, `
			UPDATE phase_queue
			SET status = ?, updated_at = ?, error_message = COALESCE(?, error_message)
			WHERE queue_id = ? AND status = ?
		`, t.To, now, t.ErrorMessage, t.QueueID, t.From)
		if err != nil {
			return fmt.Errorf("failed to transition %s: %w", t.QueueID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check transition result: %w", err)
		}
		if affected == 0 {
			var current types.Status
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM phase_queue WHERE queue_id = ?`, t.QueueID).Scan(&current)
			if err == sql.ErrNoRows {
				return &types.NotFoundError{QueueID: t.QueueID}
			}
			if err != nil {
				return fmt.Errorf("failed to read status of %s: %w", t.QueueID, err)
			}
			return &types.InvalidTransitionError{QueueID: t.QueueID, From: current, To: t.To}
		}
	}

	return tx.Commit()
}

// AttachIssueNumber backfills issue_number once the external ticket
// exists. Deliberately not modeled as a state transition.
func (s *SQLiteStorage) AttachIssueNumber(ctx context.Context, queueID string, issueNumber int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE phase_queue SET issue_number = ?, updated_at = ? WHERE queue_id = ?
	`, issueNumber, time.Now().UTC(), queueID)
	if err != nil {
		return fmt.Errorf("failed to attach issue number: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check attach result: %w", err)
	}
	if affected == 0 {
		return &types.NotFoundError{QueueID: queueID}
	}
	return nil
}

func parentToSQL(parentIssue int) interface{} {
	// The public API uses 0 as the "no parent" sentinel; persist it as
	// NULL so UNIQUE(parent_issue, phase_number) never collides across
	// unrelated hopper submissions.
	if parentIssue == types.NoParent {
		return nil
	}
	return parentIssue
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPhaseRow(scanner rowScanner) (*types.Phase, error) {
	var phase types.Phase
	var parentIssue sql.NullInt64
	var issueNumber sql.NullInt64
	var dependsOn sql.NullInt64
	var errorMessage sql.NullString
	var payload string

	err := scanner.Scan(
		&phase.QueueID, &parentIssue, &phase.PhaseNumber, &issueNumber, &phase.Status,
		&dependsOn, &payload, &phase.Priority, &phase.QueuePosition,
		&phase.CreatedAt, &phase.UpdatedAt, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	if parentIssue.Valid {
		phase.ParentIssue = int(parentIssue.Int64)
	} else {
		phase.ParentIssue = types.NoParent
	}
	if issueNumber.Valid {
		n := int(issueNumber.Int64)
		phase.IssueNumber = &n
	}
	if dependsOn.Valid {
		n := int(dependsOn.Int64)
		phase.DependsOnPhase = &n
	}
	if errorMessage.Valid {
		phase.ErrorMessage = &errorMessage.String
	}
	if err := json.Unmarshal([]byte(payload), &phase.Data); err != nil {
		return nil, fmt.Errorf("failed to decode phase data for %s: %w", phase.QueueID, err)
	}

	return &phase, nil
}

func scanPhase(row *sql.Row) (*types.Phase, error) {
	phase, err := scanPhaseRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan phase: %w", err)
	}
	return phase, nil
}

func scanPhases(rows *sql.Rows) ([]*types.Phase, error) {
	var phases []*types.Phase
	for rows.Next() {
		phase, err := scanPhaseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		phases = append(phases, phase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading phases: %w", err)
	}
	return phases, nil
}
