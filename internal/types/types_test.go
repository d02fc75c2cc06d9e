package types

import (
	"strings"
	"testing"
)

func validPhase() *Phase {
	return &Phase{
		QueueID:     "q-1",
		ParentIssue: 114,
		PhaseNumber: 1,
		Status:      StatusReady,
		Priority:    PriorityDefault,
		Data: PhaseData{
			WorkflowType: "plan_build_test",
			ExecutorID:   "agent-1",
			Title:        "Build the parser",
		},
	}
}

func TestPhaseValidate(t *testing.T) {
	if err := validPhase().Validate(); err != nil {
		t.Fatalf("valid phase rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Phase)
		want   string
	}{
		{"zero phase number", func(p *Phase) { p.PhaseNumber = 0 }, "phase_number"},
		{"negative parent", func(p *Phase) { p.ParentIssue = -1 }, "parent_issue"},
		{"forward dependency", func(p *Phase) { p.PhaseNumber = 2; dep := 5; p.DependsOnPhase = &dep }, "depends_on_phase"},
		{"self dependency", func(p *Phase) { p.PhaseNumber = 2; dep := 2; p.DependsOnPhase = &dep }, "depends_on_phase"},
		{"dependency without parent", func(p *Phase) { p.ParentIssue = NoParent; p.PhaseNumber = 2; dep := 1; p.DependsOnPhase = &dep }, "depends_on_phase"},
		{"priority too low", func(p *Phase) { p.Priority = 5 }, "priority"},
		{"priority too high", func(p *Phase) { p.Priority = 95 }, "priority"},
		{"missing workflow type", func(p *Phase) { p.Data.WorkflowType = "" }, "workflow_type"},
		{"missing executor", func(p *Phase) { p.Data.ExecutorID = "" }, "executor_id"},
		{"missing title", func(p *Phase) { p.Data.Title = "" }, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPhase()
			tt.mutate(p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusQueued:    {StatusReady, StatusBlocked},
		StatusReady:     {StatusRunning},
		StatusRunning:   {StatusCompleted, StatusFailed},
		StatusCompleted: {},
		StatusFailed:    {},
		StatusBlocked:   {},
	}
	all := []Status{StatusQueued, StatusReady, StatusRunning, StatusCompleted, StatusBlocked, StatusFailed}

	for from, targets := range allowed {
		ok := make(map[Status]bool)
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != ok[to] {
				t.Errorf("%s → %s: got %v, want %v", from, to, got, ok[to])
			}
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusBlocked} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusQueued, StatusReady, StatusRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
