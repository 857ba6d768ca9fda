package phase

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

// Lifecycle events.
const (
	EventStart    = "start"
	EventSubmit   = "submit"
	EventApprove  = "approve"
	EventComplete = "complete"
)

type lifecycleContext struct {
	PhaseID     int64
	EarlyAccess func() bool
}

// lifecycleMachine encodes the phase status graph. A fresh machine is
// built per request from the persisted status; the durable guard is the
// repository's compare-and-set write, not this in-memory interpreter.
type lifecycleMachine struct {
	interpreter *statekit.Interpreter[lifecycleContext]
}

func newLifecycleMachine(initial model.PhaseStatus, phaseID int64, earlyAccess func() bool) (*lifecycleMachine, error) {
	if earlyAccess == nil {
		earlyAccess = func() bool { return false }
	}

	builder := statekit.NewMachine[lifecycleContext]("phase-lifecycle").
		WithInitial(statekit.StateID(initial)).
		WithContext(lifecycleContext{
			PhaseID:     phaseID,
			EarlyAccess: earlyAccess,
		}).
		WithGuard("earlyAccessGuard", func(ctx lifecycleContext, e statekit.Event) bool {
			return ctx.EarlyAccess()
		})

	// not_started is only startable through the early-access bypass.
	builder.State(statekit.StateID(model.PhaseNotStarted)).
		On(EventStart).Target(statekit.StateID(model.PhaseInProgress)).Guard("earlyAccessGuard").
		Done()

	builder.State(statekit.StateID(model.PhaseReady)).
		On(EventStart).Target(statekit.StateID(model.PhaseInProgress)).
		Done()

	builder.State(statekit.StateID(model.PhaseInProgress)).
		On(EventSubmit).Target(statekit.StateID(model.PhaseSubmitted)).
		Done()

	builder.State(statekit.StateID(model.PhaseSubmitted)).
		On(EventApprove).Target(statekit.StateID(model.PhaseApproved)).
		Done()

	// approved allows re-entry into in_progress when a phase is reopened.
	builder.State(statekit.StateID(model.PhaseApproved)).
		On(EventStart).Target(statekit.StateID(model.PhaseInProgress)).
		On(EventComplete).Target(statekit.StateID(model.PhaseCompleted)).
		Done()

	// completed is terminal.
	builder.State(statekit.StateID(model.PhaseCompleted)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build phase lifecycle machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &lifecycleMachine{interpreter: interpreter}, nil
}

// Transition attempts the event. If the state did not change, the event
// was not legal from the current state (or its guard rejected it).
func (m *lifecycleMachine) Transition(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := m.Current()

	if before != after {
		return nil
	}

	return apperr.InvalidTransition(
		fmt.Sprintf("action %q is not allowed while the phase is %q", event, before),
		string(before),
		event,
	)
}

func (m *lifecycleMachine) Current() model.PhaseStatus {
	return model.PhaseStatus(m.interpreter.State().Value)
}
