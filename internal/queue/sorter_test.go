package queue

import (
	"testing"

	"github.com/adwforge/phaseq/internal/types"
)

func sortablePhase(id string, priority int, position int64, parent, number int) *types.Phase {
	return &types.Phase{
		QueueID:       id,
		Priority:      priority,
		QueuePosition: position,
		ParentIssue:   parent,
		PhaseNumber:   number,
	}
}

func TestOrderCandidatesPriorityBeatsArrival(t *testing.T) {
	// Enqueued in order: pri 50, pri 10, pri 50. The urgent item jumps
	// the queue; the two pri-50 items keep FIFO order.
	a := sortablePhase("a", 50, 1, 114, 1)
	b := sortablePhase("b", 10, 2, 115, 1)
	c := sortablePhase("c", 50, 3, 116, 1)

	ordered := OrderCandidates([]*types.Phase{a, b, c})

	want := []string{"b", "a", "c"}
	for i, id := range want {
		if ordered[i].QueueID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, ordered[i].QueueID)
		}
	}
}

func TestOrderCandidatesFinalTiebreak(t *testing.T) {
	// Identical priority and position force the parent/phase tiebreak.
	a := sortablePhase("a", 50, 7, 200, 2)
	b := sortablePhase("b", 50, 7, 114, 3)
	c := sortablePhase("c", 50, 7, 114, 1)

	ordered := OrderCandidates([]*types.Phase{a, b, c})

	want := []string{"c", "b", "a"}
	for i, id := range want {
		if ordered[i].QueueID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, ordered[i].QueueID)
		}
	}
}

func TestOrderCandidatesDoesNotMutateInput(t *testing.T) {
	a := sortablePhase("a", 90, 1, 114, 1)
	b := sortablePhase("b", 10, 2, 115, 1)
	input := []*types.Phase{a, b}

	_ = OrderCandidates(input)

	if input[0].QueueID != "a" || input[1].QueueID != "b" {
		t.Error("input slice was reordered")
	}
}

func TestOrderCandidatesDeterministic(t *testing.T) {
	phases := []*types.Phase{
		sortablePhase("a", 50, 3, 114, 2),
		sortablePhase("b", 10, 5, 0, 1),
		sortablePhase("c", 50, 1, 114, 1),
		sortablePhase("d", 90, 2, 115, 1),
	}

	first := OrderCandidates(phases)
	for i := 0; i < 10; i++ {
		again := OrderCandidates(phases)
		for j := range first {
			if first[j].QueueID != again[j].QueueID {
				t.Fatalf("run %d diverged at position %d", i, j)
			}
		}
	}
}
