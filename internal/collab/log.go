package collab

import (
	"context"

	"github.com/adwforge/phaseq/internal/coordinator"
	"github.com/adwforge/phaseq/internal/types"
)

// PushHistory is the ExecutionHistory for push-model deployments: no
// executor to poll, so every running phase stays in flight until a
// completion report arrives through the API.
type PushHistory struct{}

// CheckExecution always reports "still in flight"
func (PushHistory) CheckExecution(ctx context.Context, issueNumber int) (*coordinator.ExecutionResult, error) {
	return nil, nil
}

// LogLauncher records launch signals in the daemon log instead of
// calling an executor. Useful when the executor watches the queue API
// itself.
type LogLauncher struct {
	Log coordinator.Logger
}

// LaunchPhase logs the launch signal
func (l *LogLauncher) LaunchPhase(ctx context.Context, phase *types.Phase) error {
	l.Log.Logf("Launch signal: queue_id=%s phase=%d workflow=%s title=%q",
		phase.QueueID, phase.PhaseNumber, phase.Data.WorkflowType, phase.Data.Title)
	return nil
}

// LogCommenter records progress comments in the daemon log
type LogCommenter struct {
	Log coordinator.Logger
}

// PostComment logs the comment body
func (c *LogCommenter) PostComment(ctx context.Context, parentIssue int, body string) error {
	c.Log.Logf("Comment for parent %d: %s", parentIssue, body)
	return nil
}
