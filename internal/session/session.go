// Package session provides the FSM-based call session implementation.
package session

import (
	"sync"
	"time"
)

// State represents the current state of a call session.
type State string

const (
	StateGreeting          State = "greeting"
	StateIntentRouting     State = "intent_routing"
	StatePresentingSlots   State = "presenting_slots"
	StateAwaitingSelection State = "awaiting_selection"
	StateConfirmed         State = "confirmed"
	StateFallback          State = "fallback"
)

// Terminal reports whether the state ends the call.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFallback
}

// Session represents one call's dialog session.
type Session struct {
	CallSID   string
	State     State
	StartedAt time.Time
	UpdatedAt time.Time

	// snapshot holds the ordered slot IDs presented to the caller. Digit i
	// resolves against position i of this snapshot, never against a fresh
	// listing: the snapshot is the contract the caller was read.
	snapshot []int64

	mu sync.Mutex
}

// NewSession creates a new session in the greeting state.
func NewSession(callSID string) *Session {
	now := time.Now()
	return &Session{
		CallSID:   callSID,
		State:     StateGreeting,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetState updates the session state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
	s.UpdatedAt = time.Now()
}

// GetState returns current state.
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

// SetSnapshot stores the ordered slot IDs presented to the caller.
func (s *Session) SetSnapshot(slotIDs []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = append([]int64(nil), slotIDs...)
	s.UpdatedAt = time.Now()
}

// SnapshotAt resolves a 1-based menu position to the slot ID presented there.
func (s *Session) SnapshotAt(position int) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 1 || position > len(s.snapshot) {
		return 0, false
	}
	return s.snapshot[position-1], true
}

// SnapshotSize returns the number of slots presented to the caller.
func (s *Session) SnapshotSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshot)
}

// IsExpired checks if the session has expired.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.UpdatedAt) > timeout
}

// Store manages call sessions keyed by call SID.
type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewStore creates a new session store.
func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Store{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// Get returns the session for a call, or nil.
func (ss *Store) Get(callSID string) *Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.sessions[callSID]
}

// GetOrCreate returns the existing session or creates a fresh one.
func (ss *Store) GetOrCreate(callSID string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, ok := ss.sessions[callSID]
	if ok && !session.IsExpired(ss.timeout) {
		return session
	}

	session = NewSession(callSID)
	ss.sessions[callSID] = session
	return session
}

// Delete removes a session. Called when the call reaches a terminal state.
func (ss *Store) Delete(callSID string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, callSID)
}

// Cleanup removes expired sessions and returns how many were dropped.
func (ss *Store) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for callSID, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			delete(ss.sessions, callSID)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (ss *Store) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// FSM manages state transitions for the call dialog.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates a new FSM with the call-flow transitions. Every path ends
// in Confirmed or Fallback; the terminal states have no outgoing edges.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateGreeting:          {StateIntentRouting, StateFallback},
			StateIntentRouting:     {StatePresentingSlots, StateFallback},
			StatePresentingSlots:   {StateAwaitingSelection, StateFallback},
			StateAwaitingSelection: {StateConfirmed, StateFallback},
		},
	}
}

// CanTransition checks if a transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition updates the session state if the transition is allowed.
func (f *FSM) Transition(session *Session, to State) bool {
	if f.CanTransition(session.GetState(), to) {
		session.SetState(to)
		return true
	}
	return false
}
