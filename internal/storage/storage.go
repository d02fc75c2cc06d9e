// Package storage defines the interface for phase queue storage backends.
package storage

import (
	"context"
	"database/sql"

	"github.com/adwforge/phaseq/internal/types"
)

// Storage defines the interface for phase queue storage backends
type Storage interface {
	// Phases
	CreatePhase(ctx context.Context, phase *types.Phase) error
	GetPhase(ctx context.Context, queueID string) (*types.Phase, error)
	GetPhaseByIssueNumber(ctx context.Context, issueNumber int) (*types.Phase, error)
	GetPhasesByParent(ctx context.Context, parentIssue int) ([]*types.Phase, error)
	GetPhasesByStatus(ctx context.Context, status types.Status) ([]*types.Phase, error)
	ListPhases(ctx context.Context) ([]*types.Phase, error)

	// DeletePhase removes a row only while its status is queued or
	// ready. Returns false if the row is running, terminal, or absent.
	DeletePhase(ctx context.Context, queueID string) (bool, error)

	// ApplyTransitions applies a batch of compare-and-set status
	// changes in a single transaction. Every transition's From must
	// match the row's current status or the whole batch rolls back.
	ApplyTransitions(ctx context.Context, transitions []types.Transition) error

	// AttachIssueNumber backfills issue_number once the external
	// ticket exists. Not a state transition.
	AttachIssueNumber(ctx context.Context, queueID string, issueNumber int) error

	// Metadata (for internal state like the schema version)
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, error)

	// Lifecycle
	Close() error

	// Database path (for daemon validation)
	Path() string

	// UnderlyingDB returns the underlying *sql.DB connection.
	// WARNING: direct access bypasses the storage layer's invariants.
	UnderlyingDB() *sql.DB
}
