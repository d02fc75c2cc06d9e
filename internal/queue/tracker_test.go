package queue

import (
	"testing"

	"github.com/adwforge/phaseq/internal/types"
)

func chainPhase(id string, number int, dependsOn *int, status types.Status) *types.Phase {
	return &types.Phase{
		QueueID:        id,
		ParentIssue:    114,
		PhaseNumber:    number,
		DependsOnPhase: dependsOn,
		Status:         status,
	}
}

func intp(n int) *int { return &n }

func TestDirectSuccessor(t *testing.T) {
	chain := []*types.Phase{
		chainPhase("p1", 1, nil, types.StatusCompleted),
		chainPhase("p2", 2, intp(1), types.StatusQueued),
		chainPhase("p3", 3, intp(2), types.StatusQueued),
	}

	if succ := DirectSuccessor(chain, 1); succ == nil || succ.QueueID != "p2" {
		t.Errorf("expected p2 to depend on phase 1, got %+v", succ)
	}
	if succ := DirectSuccessor(chain, 3); succ != nil {
		t.Errorf("expected no successor for the last phase, got %+v", succ)
	}
}

func TestCascadeBlockedFullChain(t *testing.T) {
	// Phase 2 fails in a chain of 4: phases 3 and 4 are the blast
	// radius; phase 1 is untouched.
	chain := []*types.Phase{
		chainPhase("p1", 1, nil, types.StatusCompleted),
		chainPhase("p2", 2, intp(1), types.StatusRunning),
		chainPhase("p3", 3, intp(2), types.StatusQueued),
		chainPhase("p4", 4, intp(3), types.StatusQueued),
	}

	blocked := CascadeBlocked(chain, 2)
	if len(blocked) != 2 {
		t.Fatalf("expected 2 blocked phases, got %d", len(blocked))
	}
	if blocked[0].QueueID != "p3" || blocked[1].QueueID != "p4" {
		t.Errorf("expected p3, p4 in order, got %s, %s", blocked[0].QueueID, blocked[1].QueueID)
	}
}

func TestCascadeBlockedSkipsTerminalRows(t *testing.T) {
	chain := []*types.Phase{
		chainPhase("p1", 1, nil, types.StatusRunning),
		chainPhase("p2", 2, intp(1), types.StatusBlocked),
		chainPhase("p3", 3, intp(2), types.StatusQueued),
	}

	// p2 is already terminal and must not be re-blocked, but the walk
	// continues past it so p3 is still caught.
	blocked := CascadeBlocked(chain, 1)
	if len(blocked) != 1 {
		t.Fatalf("expected 1 blocked phase, got %d", len(blocked))
	}
	if blocked[0].QueueID != "p3" {
		t.Errorf("expected p3, got %s", blocked[0].QueueID)
	}
}

func TestCascadeBlockedNoSuccessors(t *testing.T) {
	chain := []*types.Phase{
		chainPhase("p1", 1, nil, types.StatusRunning),
	}
	if blocked := CascadeBlocked(chain, 1); len(blocked) != 0 {
		t.Errorf("expected no blocked phases, got %d", len(blocked))
	}
}
