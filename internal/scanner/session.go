// Package scanner owns the live decode session: one scan attempt from the
// moment the client starts streaming frames until a payload is delivered or
// the session is cancelled.
package scanner

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"qrsentry/internal/decode"
)

// State is the session lifecycle. Transitions are one-way:
// Idle -> Scanning -> Succeeded or Cancelled.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateSucceeded
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateSucceeded:
		return "succeeded"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

type EventType string

const (
	// EventAck fires immediately on a successful decode so the client can
	// trigger its haptic/acoustic cue.
	EventAck EventType = "ack"
	// EventDecoded delivers the payload, exactly once per session, after the
	// confirmation delay.
	EventDecoded EventType = "decoded"
	// EventHint is a non-fatal advisory after scanning too long without a hit.
	EventHint EventType = "hint"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload string    `json:"payload,omitempty"`
	Message string    `json:"message,omitempty"`
}

const HintMessage = "no code found yet — move closer or add light"

type Options struct {
	SampleInterval time.Duration
	HintTimeout    time.Duration
	ConfirmDelay   time.Duration
}

func (o *Options) applyDefaults() {
	if o.SampleInterval <= 0 {
		o.SampleInterval = 150 * time.Millisecond
	}
	if o.HintTimeout <= 0 {
		o.HintTimeout = 4 * time.Second
	}
	if o.ConfirmDelay <= 0 {
		o.ConfirmDelay = 500 * time.Millisecond
	}
}

// Session holds the transient state for one scan attempt. The mutex guards
// the state machine, the throttle gate, and the in-flight flag, so frame
// offers racing a finishing decode cannot emit a second result.
type Session struct {
	ID      uuid.UUID
	decoder decode.Decoder
	opts    Options

	mu         sync.Mutex
	state      State
	lastSample time.Time
	inFlight   bool
	hintSent   bool
	startedAt  time.Time
	closed     bool
	events     chan Event
}

func New(decoder decode.Decoder, opts Options) *Session {
	opts.applyDefaults()
	return &Session{
		ID:      uuid.New(),
		decoder: decoder,
		opts:    opts,
		state:   StateIdle,
		// At most three events are ever emitted (hint, ack, decoded), so
		// sends never block with this capacity.
		events: make(chan Event, 8),
	}
}

// Events is closed when the session reaches a terminal state.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves the session from Idle to Scanning.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return false
	}
	s.state = StateScanning
	s.startedAt = time.Now()
	return true
}

// Offer hands one frame to the session. It returns true when a decode attempt
// was started; ticks are skipped while the session is not scanning, while the
// throttle interval has not elapsed, or while a decode is already in flight.
func (s *Session) Offer(ctx context.Context, img image.Image) bool {
	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return false
	}

	now := time.Now()
	if !s.hintSent && now.Sub(s.startedAt) >= s.opts.HintTimeout {
		s.hintSent = true
		s.emitLocked(Event{Type: EventHint, Message: HintMessage})
	}

	if !s.lastSample.IsZero() && now.Sub(s.lastSample) < s.opts.SampleInterval {
		s.mu.Unlock()
		return false
	}
	if s.inFlight {
		s.mu.Unlock()
		return false
	}
	s.inFlight = true
	s.lastSample = now
	s.mu.Unlock()

	go s.attempt(ctx, img)
	return true
}

func (s *Session) attempt(ctx context.Context, img image.Image) {
	payload, err := s.decoder.Attempt(ctx, img)

	s.mu.Lock()
	s.inFlight = false
	if err != nil || s.state != StateScanning {
		// Decode miss, tier failure, or the session ended meanwhile. Either
		// way this tick emits nothing; a miss is not an error.
		s.mu.Unlock()
		return
	}
	s.state = StateSucceeded
	s.emitLocked(Event{Type: EventAck})
	s.mu.Unlock()

	// Short visual-confirmation pause before the payload is delivered.
	time.Sleep(s.opts.ConfirmDelay)

	s.mu.Lock()
	s.emitLocked(Event{Type: EventDecoded, Payload: payload})
	s.closeLocked()
	s.mu.Unlock()
}

// Cancel tears the session down from any non-terminal state. Safe to call
// more than once and on every exit path.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSucceeded || s.state == StateCancelled {
		return
	}
	s.state = StateCancelled
	s.closeLocked()
}

func (s *Session) emitLocked(e Event) {
	if s.closed {
		return
	}
	s.events <- e
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
