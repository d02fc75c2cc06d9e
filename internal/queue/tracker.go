package queue

import "github.com/adwforge/phaseq/internal/types"

// The dependency model is a linear chain: each phase depends on at
// most one predecessor with a strictly smaller phase number, so the
// chain is acyclic by construction and every walk below terminates in
// at most len(chain) steps.

// DirectSuccessor returns the unique phase in the chain depending on
// the given phase number, or nil if none exists.
func DirectSuccessor(chain []*types.Phase, phaseNumber int) *types.Phase {
	for _, p := range chain {
		if p.DependsOnPhase != nil && *p.DependsOnPhase == phaseNumber {
			return p
		}
	}
	return nil
}

// CascadeBlocked walks forward from a failed phase and returns every
// downstream phase that must be blocked: a failure anywhere blocks the
// rest of that chain permanently. Already-terminal rows are skipped
// (never re-blocked) but the walk continues past them so the full
// blast radius is always reported.
func CascadeBlocked(chain []*types.Phase, failedPhaseNumber int) []*types.Phase {
	var blocked []*types.Phase
	current := failedPhaseNumber
	for range chain {
		succ := DirectSuccessor(chain, current)
		if succ == nil {
			break
		}
		if !succ.Status.IsTerminal() {
			blocked = append(blocked, succ)
		}
		current = succ.PhaseNumber
	}
	return blocked
}
