package turn

import (
	"sync"
	"time"
)

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes turn state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// stateMachine implements the finite state machine for turn-taking. A single
// enumerated state replaces the independent recording/live/speaking flags the
// UI would otherwise juggle, so combinations like "recording while
// disconnected in live mode" cannot be represented at all.
type stateMachine struct {
	currentState State
	mu           sync.RWMutex

	// State tracking
	speakingStartTime  time.Time
	listeningStartTime time.Time

	// Event emission
	stateChangeListeners []StateListener
}

func newStateMachine() *stateMachine {
	return &stateMachine{currentState: StateIdle}
}

// State returns the current state.
func (tm *stateMachine) State() State {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.currentState
}

// transitionValid checks if a state transition is valid (must be called with lock held).
func (tm *stateMachine) transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle:       {StateConnecting, StateListening, StateSpeaking},
		StateConnecting: {StateIdle, StateListening},
		StateListening:  {StateProcessing, StateIdle},
		StateProcessing: {StateSpeaking, StateListening, StateIdle},
		StateSpeaking:   {StateListening, StateIdle},
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (tm *stateMachine) Transition(state State, reason string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.transitionValid(tm.currentState, state) {
		return &InvalidTransitionError{
			From: tm.currentState,
			To:   state,
		}
	}

	oldState := tm.currentState
	tm.currentState = state

	switch state {
	case StateListening:
		tm.listeningStartTime = time.Now()
	case StateSpeaking:
		tm.speakingStartTime = time.Now()
	}

	event := StateChange{
		FromState: oldState,
		ToState:   state,
		Timestamp: time.Now(),
		Reason:    reason,
	}

	// Notify listeners (release lock during notification to avoid deadlocks)
	listeners := make([]StateListener, len(tm.stateChangeListeners))
	copy(listeners, tm.stateChangeListeners)
	tm.mu.Unlock()

	for _, listener := range listeners {
		listener.OnStateChange(event)
	}

	tm.mu.Lock()
	return nil
}

// AddListener registers a listener for state change events.
func (tm *stateMachine) AddListener(listener StateListener) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.stateChangeListeners = append(tm.stateChangeListeners, listener)
}

// InvalidTransitionError represents an invalid state transition attempt
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
