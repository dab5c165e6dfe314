package game

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/ashureev/find-my-heart/internal/puzzle"
)

var (
	// ErrSessionClosed is returned by every operation on a torn down session.
	ErrSessionClosed = errors.New("game session closed")
	// ErrNotAuthenticated is returned when a session is created behind an unresolved or failed gate.
	ErrNotAuthenticated = errors.New("game session requires an authenticated player")
)

const (
	// DefaultAdvanceDelay is how long "Correct" shows before the next puzzle.
	DefaultAdvanceDelay = 2 * time.Second
	// DefaultRevealDelay is the pause before the celebration after the last puzzle.
	DefaultRevealDelay = 1 * time.Second
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Session.
type Options struct {
	// AdvanceDelay is how long "Correct" stays on screen before the next puzzle.
	AdvanceDelay time.Duration
	// RevealDelay is the pause before the celebration after the last puzzle.
	RevealDelay time.Duration
	Scheduler   Scheduler
	Logger      *slog.Logger
	Now         func() time.Time
}

// DefaultOptions returns the standard transition delays.
func DefaultOptions() Options {
	return Options{
		AdvanceDelay: DefaultAdvanceDelay,
		RevealDelay:  DefaultRevealDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.Scheduler == nil {
		o.Scheduler = realScheduler{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session is one mounted game view. It owns its State exclusively.
type Session struct {
	id      string
	catalog puzzle.Catalog
	opts    Options
	log     *slog.Logger

	mu          sync.Mutex
	state       State
	closed      bool
	pending     Timer
	generation  uint64
	subscribers map[int]func(State)
	nextSubID   int
	lastActive  time.Time
	unwatch     func()
	done        chan struct{}
}

// NewSession mounts a fresh game. When auth is non-nil the player must be
// authenticated, and the session tears itself down as soon as the status
// turns unauthenticated.
func NewSession(id string, catalog puzzle.Catalog, auth *gate.Watcher, opts Options) (*Session, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	s := &Session{
		id:          id,
		catalog:     catalog,
		opts:        opts,
		log:         opts.Logger.With("session_id", id),
		state:       Initial(),
		subscribers: make(map[int]func(State)),
		lastActive:  opts.Now(),
		done:        make(chan struct{}),
	}

	if auth != nil {
		if auth.Status().Kind != gate.Authenticated {
			return nil, ErrNotAuthenticated
		}
		s.unwatch = auth.Subscribe(func(st gate.Status) {
			if st.Kind == gate.Unauthenticated {
				s.log.Info("Player signed out, closing game session")
				s.Close()
			}
		})
		if auth.Status().Kind != gate.Authenticated {
			s.Close()
			return nil, ErrNotAuthenticated
		}
	}

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Catalog returns the puzzles this session plays through.
func (s *Session) Catalog() puzzle.Catalog {
	return s.catalog
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive returns the time of the last player action.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscribe registers fn to receive every new snapshot. The returned function
// removes the subscription. fn is called without the session lock held.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SubmitAnswer checks candidate against the active puzzle.
func (s *Session) SubmitAnswer(candidate string) (State, error) {
	return s.update(func(st State) State {
		next, outcome := Submit(st, s.catalog, candidate)
		switch {
		case next == st:
			s.log.Debug("Submission ignored", "puzzle_index", st.CurrentIndex, "transitioning", st.Transitioning)
		case outcome == OutcomeNone:
			s.log.Debug("Incorrect answer", "puzzle_index", st.CurrentIndex)
		default:
			s.log.Info("Puzzle solved", "puzzle_index", st.CurrentIndex)
			next = s.schedule(next, outcome)
		}
		return next
	})
}

// ToggleHint flips hint visibility.
func (s *Session) ToggleHint() (State, error) {
	return s.update(State.ToggleHint)
}

// UpdatePendingInput replaces the in-progress answer text.
func (s *Session) UpdatePendingInput(text string) (State, error) {
	return s.update(func(st State) State { return st.WithInput(text) })
}

// DismissCelebration closes the congratulations overlay.
func (s *Session) DismissCelebration() (State, error) {
	return s.update(DismissCelebration)
}

// Reset cancels any pending transition and starts the game over.
func (s *Session) Reset() (State, error) {
	return s.update(func(st State) State {
		s.cancelPending()
		fresh := Initial()
		fresh.Version = st.Version + 1
		s.log.Debug("Game reset")
		return fresh
	})
}

// Close tears the session down. Pending transitions are cancelled and will
// never write into this session. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelPending()
	s.subscribers = make(map[int]func(State))
	unwatch := s.unwatch
	s.unwatch = nil
	close(s.done)
	s.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	s.log.Debug("Game session closed")
}

func (s *Session) update(fn func(State) State) (State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return State{}, ErrSessionClosed
	}
	prev := s.state
	s.state = fn(prev)
	s.lastActive = s.opts.Now()
	snap := s.state
	var subs []func(State)
	if snap != prev {
		subs = s.subscriberList()
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap, nil
}

// schedule arms the delayed transition for outcome. Must hold s.mu.
// A zero delay applies the transition immediately.
func (s *Session) schedule(st State, outcome Outcome) State {
	var (
		delay time.Duration
		apply func(State) State
	)
	switch outcome {
	case OutcomeAdvance:
		delay, apply = s.opts.AdvanceDelay, Advance
	case OutcomeFinish:
		delay, apply = s.opts.RevealDelay, Finish
	default:
		return st
	}

	if delay <= 0 {
		return s.noteCompletion(apply(st))
	}

	gen := s.generation
	s.pending = s.opts.Scheduler.AfterFunc(delay, func() {
		s.fire(gen, apply)
	})
	return st
}

func (s *Session) fire(gen uint64, apply func(State) State) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	prev := s.state
	s.state = s.noteCompletion(apply(prev))
	snap := s.state
	var subs []func(State)
	if snap != prev {
		subs = s.subscriberList()
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Session) noteCompletion(st State) State {
	if st.AllComplete {
		s.log.Info("All heart pieces found")
	}
	return st
}

// cancelPending stops the armed timer and invalidates any callback already
// in flight. Must hold s.mu.
func (s *Session) cancelPending() {
	s.generation++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Session) subscriberList() []func(State) {
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}
