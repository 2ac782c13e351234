package contact

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/joaovieira77/contactForm/internal/logging"
)

// DefaultSuccessWindow is how long the success message stays visible.
const DefaultSuccessWindow = 3000 * time.Millisecond

// ErrClosed is returned by a controller after Close.
var ErrClosed = formerrors.NewSessionError(formerrors.ErrCodeShutdown, "form controller is closed")

// State is the controller's position in the form lifecycle.
type State int

const (
	StateEditing State = iota
	StateInvalid
	StateSubmittedSuccess
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateInvalid:
		return "invalid"
	case StateSubmittedSuccess:
		return "submitted_success"
	default:
		return "unknown"
	}
}

// Event names the transition that produced a Snapshot.
type Event string

const (
	EventEdit          Event = "edit"
	EventSubmitInvalid Event = "submit_invalid"
	EventSubmitSuccess Event = "submit_success"
	EventReset         Event = "reset"
)

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	Values    Values
	Errors    Errors
	State     State
	Submitted bool
}

// Transition is delivered to observers after every state change. Seq
// increases by one per transition of a controller.
type Transition struct {
	Seq      uint64
	Event    Event
	Snapshot Snapshot
}

// Observer receives transitions in Seq order, one at a time. It is called
// without the controller lock held, so it may call back into the controller;
// a transition it causes is delivered after it returns.
type Observer func(Transition)

// SubmitResult describes one submit attempt.
type SubmitResult struct {
	Accepted bool
	Errors   Errors
	Failures []*formerrors.FieldError
}

// Option configures a Controller.
type Option func(*Controller)

// WithSuccessWindow overrides DefaultSuccessWindow.
func WithSuccessWindow(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxFieldLength caps each field value, counted in runes. Zero disables
// the cap.
func WithMaxFieldLength(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxFieldLength = n
		}
	}
}

// Controller is the state holder for one form instance.
//
// Invariants:
//   - submitted is true only after a submit that found no errors and reset
//     values in the same step
//   - at most one deferred reset is pending; a newer one replaces it
//   - after Close no transition happens and no observer is called
type Controller struct {
	mu        sync.Mutex
	values    Values
	errors    Errors
	submitted bool

	window         time.Duration
	maxFieldLength int
	clock          Clock
	logger         logging.Logger

	pending    Timer
	generation uint64
	closed     bool
	observers  []Observer

	seq        uint64
	queue      []Transition
	delivering bool
}

// NewController creates a controller in the Editing state with empty values.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		errors: make(Errors),
		window: DefaultSuccessWindow,
		clock:  SystemClock(),
		logger: logging.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers an observer for every subsequent transition.
func (c *Controller) OnChange(obs Observer) {
	if obs == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.observers = append(c.observers, obs)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SuccessWindow returns the configured success window.
func (c *Controller) SuccessWindow() time.Duration {
	return c.window
}

// Edit replaces one field's value and clears that field's error only. Other
// errors stay until the next submit.
func (c *Controller) Edit(f Field, value string) error {
	if _, err := ParseField(string(f)); err != nil {
		return formerrors.NewTransportError(formerrors.ErrCodeUnknownField, err.Error(), nil)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.values.Set(f, c.truncate(value))
	delete(c.errors, f)
	deliver := c.emitLocked(EventEdit)
	c.mu.Unlock()

	if deliver {
		c.drain()
	}
	return nil
}

// Submit validates the current values. A failing submit stores the errors
// verbatim and keeps the values. A passing submit clears values and errors,
// raises the submitted flag and schedules its reset after the success window.
func (c *Controller) Submit() (SubmitResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return SubmitResult{}, ErrClosed
	}

	failures := ValidateDetailed(c.values)
	result := SubmitResult{Errors: make(Errors, len(failures)), Failures: failures}
	for _, fe := range failures {
		result.Errors[Field(fe.Field)] = fe.Message
	}

	event := EventSubmitInvalid
	if len(failures) > 0 {
		c.errors = result.Errors.Clone()
		c.submitted = false
		c.stopPendingLocked()
	} else {
		result.Accepted = true
		event = EventSubmitSuccess
		c.values = Values{}
		c.errors = make(Errors)
		c.submitted = true
		c.scheduleResetLocked()
	}
	deliver := c.emitLocked(event)
	c.mu.Unlock()

	if result.Accepted {
		c.logger.Debug(context.Background(), "Submission accepted", "window", c.window.String())
	} else {
		logging.LogFieldErrors(c.logger, context.Background(), failures)
	}

	if deliver {
		c.drain()
	}
	return result, nil
}

// Close tears the instance down: the pending reset is cancelled and no
// further observer is called. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopPendingLocked()
	c.observers = nil
	c.queue = nil
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) scheduleResetLocked() {
	c.stopPendingLocked()
	gen := c.generation
	c.pending = c.clock.AfterFunc(c.window, func() {
		c.resetSubmitted(gen)
	})
}

// stopPendingLocked cancels the pending reset. Bumping the generation also
// neutralises a callback that already started running.
func (c *Controller) stopPendingLocked() {
	c.generation++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Controller) resetSubmitted(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.submitted = false
	deliver := c.emitLocked(EventReset)
	c.mu.Unlock()

	c.logger.Debug(context.Background(), "Success window elapsed")
	if deliver {
		c.drain()
	}
}

// emitLocked queues a transition for the current state. It returns true when
// the caller must deliver the queue; otherwise the goroutine already
// delivering will pick it up.
func (c *Controller) emitLocked(event Event) bool {
	c.seq++
	c.queue = append(c.queue, Transition{Seq: c.seq, Event: event, Snapshot: c.snapshotLocked()})
	if c.delivering {
		return false
	}
	c.delivering = true
	return true
}

// drain delivers queued transitions until the queue is empty or the
// controller is closed.
func (c *Controller) drain() {
	for {
		c.mu.Lock()
		if c.closed || len(c.queue) == 0 {
			c.queue = nil
			c.delivering = false
			c.mu.Unlock()
			return
		}
		tr := c.queue[0]
		c.queue = c.queue[1:]
		observers := c.observersLocked()
		c.mu.Unlock()

		for _, obs := range observers {
			obs(tr)
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Values:    c.values,
		Errors:    c.errors.Clone(),
		State:     c.stateLocked(),
		Submitted: c.submitted,
	}
}

func (c *Controller) stateLocked() State {
	switch {
	case c.submitted:
		return StateSubmittedSuccess
	case len(c.errors) > 0:
		return StateInvalid
	default:
		return StateEditing
	}
}

func (c *Controller) observersLocked() []Observer {
	if len(c.observers) == 0 {
		return nil
	}
	out := make([]Observer, len(c.observers))
	copy(out, c.observers)
	return out
}

func (c *Controller) truncate(value string) string {
	if c.maxFieldLength <= 0 || utf8.RuneCountInString(value) <= c.maxFieldLength {
		return value
	}
	runes := []rune(value)
	return string(runes[:c.maxFieldLength])
}
