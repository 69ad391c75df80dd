package session

import "sync"

// State is a step of the session state machine.
type State string

const (
	StateCreated          State = "Created"
	StateSlotAcquired     State = "SlotAcquired"
	StateIngesting        State = "Ingesting"
	StateEnriching        State = "Enriching"
	StateCleaning         State = "Cleaning"
	StatePricingEnriching State = "PricingEnriching"
	StateMatching         State = "Matching"
	StateAnalyzing        State = "Analyzing"
	StateCompleted        State = "Completed"
	StateFailed           State = "Failed"
	StateKilled           State = "Killed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateKilled
}

// tracker holds the current state; the watchdog reads it from its own goroutine.
type tracker struct {
	mu      sync.Mutex
	state   State
	history []State
}

func newTracker() *tracker {
	return &tracker{state: StateCreated, history: []State{StateCreated}}
}

func (t *tracker) set(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
	t.history = append(t.history, s)
}

func (t *tracker) current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *tracker) trace() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]State(nil), t.history...)
}
