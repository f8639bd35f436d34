package bootstrap

import "sync"

// Phase represents the lifecycle state of the shell.
type Phase string

// Shell phases.
const (
	PhaseBooting  Phase = "Booting"
	PhaseReady    Phase = "Ready"
	PhaseDegraded Phase = "Degraded"
	PhaseStopping Phase = "Stopping"
	PhaseStopped  Phase = "Stopped"
)

// allowedTransitions defines valid state transitions.
var allowedTransitions = map[Phase]map[Phase]struct{}{
	PhaseBooting: {
		PhaseReady:    {},
		PhaseDegraded: {},
		PhaseStopping: {},
	},
	PhaseReady: {
		PhaseDegraded: {},
		PhaseStopping: {},
	},
	PhaseDegraded: {
		PhaseReady:    {},
		PhaseStopping: {},
	},
	PhaseStopping: {
		PhaseStopped: {},
	},
	PhaseStopped: {},
}

type phaseMachine struct {
	mu      sync.RWMutex
	current Phase
}

func newPhaseMachine(initial Phase) *phaseMachine {
	return &phaseMachine{current: initial}
}

// Transition attempts to move the machine to the requested phase, enforcing allowed transitions.
func (pm *phaseMachine) Transition(next Phase) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.current == next {
		return true
	}

	if allowed, ok := allowedTransitions[pm.current]; ok {
		if _, ok := allowed[next]; ok {
			pm.current = next
			return true
		}
	}

	return false
}

// Current returns the currently tracked phase.
func (pm *phaseMachine) Current() Phase {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.current
}
