package phase

import (
	"testing"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		name        string
		initial     model.PhaseStatus
		event       string
		earlyAccess bool
		want        model.PhaseStatus
		wantErr     bool
	}{
		{name: "ready start", initial: model.PhaseReady, event: EventStart, want: model.PhaseInProgress},
		{name: "in_progress submit", initial: model.PhaseInProgress, event: EventSubmit, want: model.PhaseSubmitted},
		{name: "submitted approve", initial: model.PhaseSubmitted, event: EventApprove, want: model.PhaseApproved},
		{name: "approved complete", initial: model.PhaseApproved, event: EventComplete, want: model.PhaseCompleted},
		{name: "approved restart", initial: model.PhaseApproved, event: EventStart, want: model.PhaseInProgress},

		{name: "not_started without early access", initial: model.PhaseNotStarted, event: EventStart, wantErr: true},
		{name: "not_started with early access", initial: model.PhaseNotStarted, event: EventStart, earlyAccess: true, want: model.PhaseInProgress},

		{name: "ready submit", initial: model.PhaseReady, event: EventSubmit, wantErr: true},
		{name: "ready approve", initial: model.PhaseReady, event: EventApprove, wantErr: true},
		{name: "in_progress approve", initial: model.PhaseInProgress, event: EventApprove, wantErr: true},
		{name: "in_progress complete", initial: model.PhaseInProgress, event: EventComplete, wantErr: true},
		{name: "submitted start", initial: model.PhaseSubmitted, event: EventStart, wantErr: true},
		{name: "submitted complete", initial: model.PhaseSubmitted, event: EventComplete, wantErr: true},
		{name: "approved submit", initial: model.PhaseApproved, event: EventSubmit, wantErr: true},
		{name: "completed start", initial: model.PhaseCompleted, event: EventStart, wantErr: true},
		{name: "completed submit", initial: model.PhaseCompleted, event: EventSubmit, wantErr: true},
		{name: "completed approve", initial: model.PhaseCompleted, event: EventApprove, wantErr: true},
		{name: "completed complete", initial: model.PhaseCompleted, event: EventComplete, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newLifecycleMachine(tt.initial, 1, func() bool { return tt.earlyAccess })
			if err != nil {
				t.Fatalf("newLifecycleMachine: %v", err)
			}

			err = m.Transition(tt.event)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Transition(%q) from %q succeeded, want error", tt.event, tt.initial)
				}
				if !apperr.IsKind(err, apperr.KindInvalidTransition) {
					t.Errorf("error kind = %v, want invalid transition", err)
				}
				if m.Current() != tt.initial {
					t.Errorf("state moved to %q on rejected event", m.Current())
				}
				return
			}

			if err != nil {
				t.Fatalf("Transition(%q) from %q: %v", tt.event, tt.initial, err)
			}
			if m.Current() != tt.want {
				t.Errorf("state = %q, want %q", m.Current(), tt.want)
			}
		})
	}
}

func TestRejectedTransitionReportsCurrentState(t *testing.T) {
	m, err := newLifecycleMachine(model.PhaseReady, 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	trErr := m.Transition(EventApprove)
	ae := apperr.From(trErr)
	if ae.Current != string(model.PhaseReady) {
		t.Errorf("Current = %q, want %q", ae.Current, model.PhaseReady)
	}
	if ae.Requested != EventApprove {
		t.Errorf("Requested = %q, want %q", ae.Requested, EventApprove)
	}
}
