package queue

import (
	"sort"

	"github.com/adwforge/phaseq/internal/types"
)

// OrderCandidates orders ready phases into their execution sequence.
// Sort key, strictly in this order: priority ascending (urgent beats
// background), queue_position ascending (FIFO within a priority band),
// then parent_issue and phase_number ascending as the final tiebreak.
//
// The function is pure: no wall-clock, no randomness, input left
// unmodified. Two calls over the same snapshot produce the identical
// order, which is what makes "pick one and only one next item"
// reproducible.
func OrderCandidates(phases []*types.Phase) []*types.Phase {
	ordered := make([]*types.Phase, len(phases))
	copy(ordered, phases)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.QueuePosition != b.QueuePosition {
			return a.QueuePosition < b.QueuePosition
		}
		if a.ParentIssue != b.ParentIssue {
			return a.ParentIssue < b.ParentIssue
		}
		return a.PhaseNumber < b.PhaseNumber
	})

	return ordered
}
