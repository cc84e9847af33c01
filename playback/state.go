package playback

// PlayerState is the explicit per-player state. It replaces the
// is-playing/is-paused flag pairs that tend to drift apart: every
// player holds exactly one of these at any time.
type PlayerState int

const (
	// StateIdle means the player holds no active playback context.
	StateIdle PlayerState = iota
	// StateLoading means a source was submitted to the engine and the
	// player is waiting for the load-complete notification.
	StateLoading
	// StatePlaying means the current track is audibly playing.
	StatePlaying
	// StatePaused means playback is suspended mid-track.
	StatePaused
	// StateStopping means the player is tearing down its own state;
	// notifications arriving in this state are discarded.
	StateStopping
)

// String returns the string representation of the state.
func (s PlayerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// StateMachine manages player state transitions against a fixed
// transition table. An invalid transition is refused and reported to
// the caller rather than applied.
type StateMachine struct {
	current     PlayerState
	transitions map[PlayerState][]PlayerState
	onEnter     map[PlayerState]func()
	onExit      map[PlayerState]func()
}

// NewPlayerStateMachine creates a state machine with the valid
// transitions for a track-queue player. Loading to Loading covers
// skipping past consecutive failed tracks.
func NewPlayerStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[PlayerState][]PlayerState{
			StateIdle:     {StateLoading, StateStopping},
			StateLoading:  {StateLoading, StatePlaying, StateStopping, StateIdle},
			StatePlaying:  {StateLoading, StatePaused, StateStopping},
			StatePaused:   {StatePlaying, StateLoading, StateStopping},
			StateStopping: {StateIdle},
		},
		onEnter: make(map[PlayerState]func()),
		onExit:  make(map[PlayerState]func()),
	}
}

// Transition attempts to move to the given state, running any exit and
// enter callbacks. Returns false if the transition is not in the table.
func (sm *StateMachine) Transition(to PlayerState) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	if fn, ok := sm.onExit[sm.current]; ok && fn != nil {
		fn()
	}
	sm.current = to
	if fn, ok := sm.onEnter[to]; ok && fn != nil {
		fn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() PlayerState {
	return sm.current
}

// Is reports whether the machine is in the given state.
func (sm *StateMachine) Is(state PlayerState) bool {
	return sm.current == state
}

// Active reports whether the machine is in any non-idle, non-stopping
// state.
func (sm *StateMachine) Active() bool {
	switch sm.current {
	case StateLoading, StatePlaying, StatePaused:
		return true
	}
	return false
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state PlayerState, fn func()) {
	sm.onEnter[state] = fn
}

// OnExit registers a callback for exiting a state.
func (sm *StateMachine) OnExit(state PlayerState, fn func()) {
	sm.onExit[state] = fn
}
