// Package coordinator bridges the phase queue to the externally-owned
// workflow execution record. A single background loop polls running
// phases, reconciles their outcome into queue state, launches newly
// ready successors, and posts progress comments. It is the only
// writer that concludes a phase (running → completed/failed).
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adwforge/phaseq/internal/queue"
	"github.com/adwforge/phaseq/internal/types"
)

// DefaultInterval is the poll interval between coordinator ticks
const DefaultInterval = 10 * time.Second

// ExecutionResult is the concluded outcome of one phase's execution
type ExecutionResult struct {
	Success bool
	Error   string
}

// ExecutionHistory is the workflow-history collaborator. CheckExecution
// answers "has the execution for this issue finished, and did it
// succeed?" — nil result means still in flight.
type ExecutionHistory interface {
	CheckExecution(ctx context.Context, issueNumber int) (*ExecutionResult, error)
}

// Launcher receives the outbound "please begin executing this phase"
// signal. The executor behind it is out of scope here.
type Launcher interface {
	LaunchPhase(ctx context.Context, phase *types.Phase) error
}

// Commenter posts human-readable progress notifications against the
// parent ticket.
type Commenter interface {
	PostComment(ctx context.Context, parentIssue int, body string) error
}

// Logger is the minimal printf-style sink the coordinator logs to
type Logger interface {
	Logf(format string, args ...interface{})
}

// Coordinator advances the queue as external executions conclude
type Coordinator struct {
	svc       *queue.Service
	history   ExecutionHistory
	launcher  Launcher
	commenter Commenter
	log       Logger
	interval  time.Duration
}

// New creates a coordinator. interval <= 0 selects DefaultInterval.
func New(svc *queue.Service, history ExecutionHistory, launcher Launcher, commenter Commenter, log Logger, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		svc:       svc,
		history:   history,
		launcher:  launcher,
		commenter: commenter,
		log:       log,
		interval:  interval,
	}
}

// Run executes ticks at the configured interval until ctx is canceled.
// Tick errors are logged and never stop the loop: the coordinator is a
// long-lived background task and must be resilient by design.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Logf("Coordinator started (interval: %v)", c.interval)

	for {
		select {
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			c.Tick(ctx)
		case <-ctx.Done():
			c.log.Logf("Coordinator stopped: %v", ctx.Err())
			return nil
		}
	}
}

// Tick reconciles every running phase once. Errors from any single
// row are caught and logged per row; one bad row never aborts the
// tick or the rows after it.
func (c *Coordinator) Tick(ctx context.Context) {
	running, err := c.svc.ListRunning(ctx)
	if err != nil {
		c.log.Logf("Tick: failed to list running phases: %v", err)
		return
	}

	for _, phase := range running {
		if err := c.reconcilePhase(ctx, phase); err != nil {
			c.log.Logf("Tick: phase %s (issue %s): %v", phase.QueueID, issueRef(phase), err)
		}
	}
}

// reconcilePhase checks one running phase against the execution record
// and applies the resulting transition.
func (c *Coordinator) reconcilePhase(ctx context.Context, phase *types.Phase) error {
	if phase.IssueNumber == nil {
		// Ticket creation has not backfilled the issue number yet;
		// nothing to poll against.
		return nil
	}

	result, err := c.history.CheckExecution(ctx, *phase.IssueNumber)
	if err != nil {
		return &CollaboratorError{Op: "check execution", IssueNumber: *phase.IssueNumber, Err: err}
	}
	if result == nil {
		return nil
	}

	if result.Success {
		return c.concludeSuccess(ctx, phase)
	}
	return c.concludeFailure(ctx, phase, result.Error)
}

func (c *Coordinator) concludeSuccess(ctx context.Context, phase *types.Phase) error {
	promoted, err := c.svc.MarkPhaseComplete(ctx, phase.QueueID)
	if err != nil {
		return err
	}
	c.log.Logf("Phase %d of parent %d completed (issue %s)", phase.PhaseNumber, phase.ParentIssue, issueRef(phase))

	for _, id := range promoted {
		next, err := c.svc.Get(ctx, id)
		if err != nil {
			c.log.Logf("Launch: failed to load promoted phase %s: %v", id, err)
			continue
		}
		if err := c.launcher.LaunchPhase(ctx, next); err != nil {
			// Launch failed: leave the phase ready so a later tick or a
			// pull-model executor can still claim it.
			c.log.Logf("Launch: phase %s: %v", id, &CollaboratorError{Op: "launch phase", IssueNumber: phase.ParentIssue, Err: err})
			continue
		}
		if err := c.svc.MarkRunning(ctx, id); err != nil {
			// Someone else claimed it between launch and the CAS; the
			// executor side owns it now.
			c.log.Logf("Launch: phase %s already claimed: %v", id, err)
			continue
		}
		c.log.Logf("Launched phase %d of parent %d", next.PhaseNumber, next.ParentIssue)
	}

	c.comment(ctx, phase, completionComment(ctx, c.svc, phase, promoted))
	return nil
}

func (c *Coordinator) concludeFailure(ctx context.Context, phase *types.Phase, execError string) error {
	if execError == "" {
		execError = "execution failed"
	}
	blocked, err := c.svc.MarkPhaseFailed(ctx, phase.QueueID, execError)
	if err != nil {
		return err
	}
	c.log.Logf("Phase %d of parent %d failed (issue %s): %s — blocked %d downstream phase(s)",
		phase.PhaseNumber, phase.ParentIssue, issueRef(phase), execError, len(blocked))

	c.comment(ctx, phase, failureComment(ctx, c.svc, phase, execError, blocked))
	return nil
}

// comment posts a progress note on the parent ticket. Hopper phases
// have no parent ticket to comment on.
func (c *Coordinator) comment(ctx context.Context, phase *types.Phase, body string) {
	if !phase.HasParent() {
		return
	}
	if err := c.commenter.PostComment(ctx, phase.ParentIssue, body); err != nil {
		c.log.Logf("Comment: parent %d: %v", phase.ParentIssue, &CollaboratorError{Op: "post comment", IssueNumber: phase.ParentIssue, Err: err})
	}
}

func completionComment(ctx context.Context, svc *queue.Service, phase *types.Phase, promoted []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase %d completed.", phase.PhaseNumber)
	for _, id := range promoted {
		if next, err := svc.Get(ctx, id); err == nil {
			fmt.Fprintf(&b, " Phase %d is now ready: %s", next.PhaseNumber, next.Data.Title)
		}
	}
	return b.String()
}

// failureComment always names every downstream phase that got blocked,
// never just the immediate successor, so a human reviewing the parent
// ticket sees the full blast radius of one failure.
func failureComment(ctx context.Context, svc *queue.Service, phase *types.Phase, execError string, blocked []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase %d failed: %s", phase.PhaseNumber, execError)
	if len(blocked) > 0 {
		var numbers []string
		for _, id := range blocked {
			if p, err := svc.Get(ctx, id); err == nil {
				numbers = append(numbers, fmt.Sprintf("%d", p.PhaseNumber))
			}
		}
		fmt.Fprintf(&b, "\nBlocked phases: %s", strings.Join(numbers, ", "))
	}
	return b.String()
}

func issueRef(phase *types.Phase) string {
	if phase.IssueNumber == nil {
		return "unassigned"
	}
	return fmt.Sprintf("#%d", *phase.IssueNumber)
}
