package door

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Actuator drives the lock and its steady-state indicators.
type Actuator interface {
	// Open releases the lock and shows the door as open.
	Open() error

	// Close engages the lock and shows the door as closed.
	Close() error
}

// DurationSource supplies the auto-close duration for each open period.
type DurationSource interface {
	DoorDuration(ctx context.Context) (time.Duration, error)
}

// Config configures a Controller.
type Config struct {
	Actuator Actuator

	// Durations is read on every open. Nil, a failed read or a value below
	// MinDuration fall back to DefaultDuration.
	Durations DurationSource

	// DefaultDuration overrides DefaultDuration. MinDuration applies only to
	// values read from Durations.
	DefaultDuration time.Duration

	Logger *slog.Logger

	// OnStateChange, if set, is called after every transition. It runs on
	// the goroutine that made the change, which is the timer goroutine for
	// auto-close.
	OnStateChange func(Change)
}

// autoClose is one pending auto-close action.
type autoClose struct {
	timer    *time.Timer
	deadline time.Time
}

// Controller is the door state machine.
type Controller struct {
	actuator  Actuator
	durations DurationSource
	fallback  time.Duration
	logger    *slog.Logger
	onChange  func(Change)

	intents chan Intent

	// mu serializes actuation and guards state and pending. It is the only
	// synchronization between the door worker and the auto-close timer.
	mu      sync.Mutex
	state   State
	pending *autoClose

	open atomic.Bool
}

// NewController creates a controller in StateClosed. It does not touch the
// actuator.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Actuator == nil {
		return nil, errors.New("door: controller requires an actuator")
	}
	c := &Controller{
		actuator:  cfg.Actuator,
		durations: cfg.Durations,
		fallback:  cfg.DefaultDuration,
		logger:    cfg.Logger,
		onChange:  cfg.OnStateChange,
		intents:   make(chan Intent, IntentQueueCapacity),
	}
	if c.fallback <= 0 {
		c.fallback = DefaultDuration
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// IsOpen reports whether the door is open. Safe from any goroutine.
func (c *Controller) IsOpen() bool {
	return c.open.Load()
}

// State returns the current door state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the time until auto-close, or zero when none is pending.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0
	}
	if d := time.Until(c.pending.deadline); d > 0 {
		return d
	}
	return 0
}

// Submit queues an intent for the door worker. It blocks while the queue is
// full and returns ctx.Err() if ctx ends first.
func (c *Controller) Submit(ctx context.Context, intent Intent) error {
	select {
	case c.intents <- intent:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestOpen queues an open intent.
func (c *Controller) RequestOpen(ctx context.Context) error {
	return c.Submit(ctx, IntentOpen)
}

// RequestClose queues a close intent.
func (c *Controller) RequestClose(ctx context.Context) error {
	return c.Submit(ctx, IntentClose)
}

// Run is the door worker. It applies queued intents until ctx is cancelled,
// then closes the door if it is open. Rejected intents are logged; actuator
// failures end the worker.
func (c *Controller) Run(ctx context.Context) error {
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case intent := <-c.intents:
			err := c.Handle(ctx, intent)
			switch {
			case err == nil:
			case errors.Is(err, ErrAlreadyOpen), errors.Is(err, ErrAlreadyClosed):
				c.logger.Info("door intent rejected", "intent", intent, "reason", err)
			default:
				return err
			}
		}
	}
}

// Handle applies one intent. The door worker is the only caller in normal
// operation; it is exported so intents can be applied synchronously.
func (c *Controller) Handle(ctx context.Context, intent Intent) error {
	switch intent {
	case IntentOpen:
		return c.openDoor(ctx)
	case IntentClose:
		return c.closeDoor()
	default:
		return fmt.Errorf("%w: %d", ErrUnknownIntent, intent)
	}
}

func (c *Controller) openDoor(ctx context.Context) error {
	if c.IsOpen() {
		return ErrAlreadyOpen
	}
	d := c.duration(ctx)

	c.mu.Lock()
	if c.state == StateOpen {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	if err := c.actuator.Open(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("open lock: %w", err)
	}
	p := &autoClose{deadline: time.Now().Add(d)}
	// The callback locks mu, so it cannot observe p before timer is set.
	p.timer = time.AfterFunc(d, func() { c.expire(p) })
	c.pending = p
	c.setState(StateOpen)
	c.mu.Unlock()

	c.logger.Info("door opened", "duration", d)
	c.notify(Change{From: StateClosed, To: StateOpen, Cause: CauseIntent, Duration: d})
	return nil
}

func (c *Controller) closeDoor() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.takePending()
	err := c.actuate()
	c.mu.Unlock()

	c.logger.Info("door closed", "cause", CauseIntent)
	c.notify(Change{From: StateOpen, To: StateClosed, Cause: CauseIntent})
	return err
}

// expire runs on the timer goroutine when p elapses.
func (c *Controller) expire(p *autoClose) {
	c.mu.Lock()
	if c.pending != p {
		// An explicit close took it first.
		c.mu.Unlock()
		return
	}
	c.pending = nil
	err := c.actuate()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("auto-close actuation failed", "error", err)
	}
	c.logger.Info("door closed", "cause", CauseAutoClose)
	c.notify(Change{From: StateOpen, To: StateClosed, Cause: CauseAutoClose})
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.takePending()
	err := c.actuate()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("close on shutdown failed", "error", err)
	}
	c.logger.Info("door closed", "cause", CauseShutdown)
	c.notify(Change{From: StateOpen, To: StateClosed, Cause: CauseShutdown})
}

// takePending cancels the pending auto-close. Caller holds mu.
func (c *Controller) takePending() {
	if p := c.pending; p != nil {
		c.pending = nil
		p.timer.Stop()
	}
}

// actuate closes the lock and records StateClosed. The state follows the
// command even if the actuator reports an error. Caller holds mu.
func (c *Controller) actuate() error {
	err := c.actuator.Close()
	c.setState(StateClosed)
	if err != nil {
		return fmt.Errorf("close lock: %w", err)
	}
	return nil
}

func (c *Controller) setState(s State) {
	c.state = s
	c.open.Store(s == StateOpen)
}

func (c *Controller) duration(ctx context.Context) time.Duration {
	if c.durations == nil {
		return c.fallback
	}
	d, err := c.durations.DoorDuration(ctx)
	if err != nil {
		c.logger.Warn("reading door duration failed, using default", "error", err, "default", c.fallback)
		return c.fallback
	}
	if d < MinDuration {
		c.logger.Warn("door duration below minimum, using default", "duration", d, "default", c.fallback)
		return c.fallback
	}
	return d
}

func (c *Controller) notify(ch Change) {
	if c.onChange != nil {
		c.onChange(ch)
	}
}
