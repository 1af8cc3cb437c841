package admission

import (
	"context"
	"sync"

	"devmeet/internal/realtime"
)

// State of a guest admission session.
type State string

const (
	StateIdle           State = "idle"
	StateVerifying      State = "verifying"
	StateValid          State = "valid"
	StateTooEarly       State = "too_early"
	StateTooLate        State = "too_late"
	StateWaitingForHost State = "waiting_for_host"
	StateError          State = "error"
)

// VerifyFunc is satisfied by (*Verifier).Verify.
type VerifyFunc func(ctx context.Context, meetingID, pin string) Result

// Machine drives one guest session from PIN entry to room access.
// Valid and TooLate are terminal; TooEarly, Error and WaitingForHost return
// to Idle via Cancel. While waiting it subscribes to the meeting topic, and
// HandleEvent is the single entry point for external events: HOST_JOINED
// fires the WaitingForHost -> Valid edge without a second PIN check.
type Machine struct {
	meetingID string
	verify    VerifyFunc
	sub       realtime.Subscriber

	mu     sync.Mutex
	state  State
	result Result
	reason string
	unsub  func()
}

func NewMachine(meetingID string, verify VerifyFunc, sub realtime.Subscriber) *Machine {
	return &Machine{
		meetingID: meetingID,
		verify:    verify,
		sub:       sub,
		state:     StateIdle,
	}
}

// Submit verifies a PIN. Malformed input never reaches the verifier.
func (m *Machine) Submit(ctx context.Context, pin string) State {
	m.mu.Lock()
	if m.state == StateValid || m.state == StateTooLate {
		st := m.state
		m.mu.Unlock()
		return st
	}
	if !ValidPinFormat(pin) {
		m.state = StateError
		m.reason = "PIN must be six digits"
		m.mu.Unlock()
		return StateError
	}
	m.state = StateVerifying
	m.mu.Unlock()

	res := m.verify(ctx, m.meetingID, pin)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = res
	switch res.Status {
	case StatusValid:
		m.state = StateValid
		m.stopWatchingLocked()
	case StatusTooEarly:
		m.state = StateTooEarly
	case StatusTooLate:
		m.state = StateTooLate
		m.stopWatchingLocked()
	case StatusWaitingForHost:
		m.state = StateWaitingForHost
		m.watchLocked()
	case StatusInvalidPin, StatusInvalidMeeting:
		m.state = StateError
		m.reason = "invalid PIN"
	default:
		m.state = StateError
		m.reason = "verification failed"
	}
	return m.state
}

// HandleEvent applies an external realtime event to the session.
func (m *Machine) HandleEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateWaitingForHost && name == realtime.EventHostJoined {
		m.state = StateValid
		m.stopWatchingLocked()
	}
}

// Cancel returns a re-enterable state to Idle. Terminal states stay put.
func (m *Machine) Cancel() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateValid, StateTooLate:
		return m.state
	}
	m.stopWatchingLocked()
	m.state = StateIdle
	m.reason = ""
	return m.state
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Result returns the last verification outcome.
func (m *Machine) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Reason is the human-readable failure message for StateError.
func (m *Machine) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

func (m *Machine) watchLocked() {
	if m.unsub != nil || m.sub == nil {
		return
	}
	ch, cancel := m.sub.Subscribe(realtime.MeetingTopic(m.meetingID))
	m.unsub = cancel
	go func() {
		for ev := range ch {
			m.HandleEvent(ev.Name)
		}
	}()
}

func (m *Machine) stopWatchingLocked() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}
