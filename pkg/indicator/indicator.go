// Package indicator drives the terminal's LEDs and lock line.
//
// A Panel owns the door-open and door-closed indicators, the optional lock
// relay and the optional status LED. It is the door controller's actuator and
// the PIN machine's feedback sink. Each LED has a steady level; blinks always
// end by restoring the steady level current at that moment, so a blink that
// overlaps a door state change cannot leave the LED wrong.
package indicator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Timing of the feedback patterns.
const (
	KeyBlink       = 20 * time.Millisecond
	DoubleBlinkOn  = 50 * time.Millisecond
	DoubleBlinkOff = 100 * time.Millisecond
	FailurePause   = 100 * time.Millisecond
)

// Output is a single digital output line. periph's gpio.PinOut satisfies it.
type Output interface {
	Out(l gpio.Level) error
}

// Blink describes a blink pattern. It is passed by value to the goroutine
// that plays it.
type Blink struct {
	// On is how long the LED is lit per pulse.
	On time.Duration

	// Off is the gap between pulses.
	Off time.Duration

	// Count is the number of pulses; zero means one.
	Count int
}

// Double is the success and failure pulse pair.
var Double = Blink{On: DoubleBlinkOn, Off: DoubleBlinkOff, Count: 2}

// led is one indicator with its steady level.
type led struct {
	name   string
	out    Output
	steady gpio.Level
}

// PanelConfig configures a Panel.
type PanelConfig struct {
	OpenLED   Output
	ClosedLED Output

	// Lock is the lock relay; optional.
	Lock Output

	// Status is a momentary activity LED; optional.
	Status Output

	Logger *slog.Logger
}

// Panel is the terminal's indicator board.
type Panel struct {
	mu     sync.Mutex
	open   *led
	closed *led
	status *led
	lock   Output
	admin  bool
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewPanel creates a panel. It does not drive any line until Reset.
func NewPanel(cfg PanelConfig) (*Panel, error) {
	if cfg.OpenLED == nil || cfg.ClosedLED == nil {
		return nil, errors.New("indicator: panel requires open and closed LEDs")
	}
	p := &Panel{
		open:   &led{name: "open", out: cfg.OpenLED, steady: gpio.Low},
		closed: &led{name: "closed", out: cfg.ClosedLED, steady: gpio.High},
		lock:   cfg.Lock,
		logger: cfg.Logger,
	}
	if cfg.Status != nil {
		p.status = &led{name: "status", out: cfg.Status, steady: gpio.Low}
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p, nil
}

// Reset drives every line to the door-closed state.
func (p *Panel) Reset() error {
	return p.Close()
}

// Open implements door.Actuator: lock released, open LED on, closed LED off.
func (p *Panel) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(
		p.driveLock(gpio.High),
		p.setSteady(p.open, gpio.High),
		p.setSteady(p.closed, gpio.Low),
	)
}

// Close implements door.Actuator: lock engaged, open LED off, closed LED on
// unless a new PIN is being entered.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(
		p.driveLock(gpio.Low),
		p.setSteady(p.open, gpio.Low),
		p.setSteady(p.closed, p.closedLevel()),
	)
}

// KeyAccepted flashes the open LED briefly.
func (p *Panel) KeyAccepted() {
	p.background(p.open, Blink{On: KeyBlink})
}

// Success plays the double blink on the open LED without blocking.
func (p *Panel) Success() {
	p.background(p.open, Double)
}

// Failure turns the closed LED off, plays the double blink on it and holds
// for delay before restoring it.
func (p *Panel) Failure(ctx context.Context, delay time.Duration) {
	p.mu.Lock()
	_ = p.write(p.closed, gpio.Low)
	p.mu.Unlock()

	steps := []func(){
		func() { sleep(ctx, FailurePause) },
		func() { p.play(ctx, p.closed, Double, false) },
		func() { sleep(ctx, FailurePause) },
		func() { sleep(ctx, delay) },
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		step()
	}

	p.mu.Lock()
	_ = p.write(p.closed, p.closed.steady)
	p.mu.Unlock()
}

// AdminMode turns the closed LED off while a new PIN is being entered.
func (p *Panel) AdminMode(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admin = on
	if p.open.steady == gpio.Low {
		_ = p.setSteady(p.closed, p.closedLevel())
	}
}

// Activity pulses the status LED, if there is one.
func (p *Panel) Activity() {
	if p.status != nil {
		p.background(p.status, Blink{On: KeyBlink})
	}
}

func (p *Panel) background(l *led, b Blink) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.play(context.Background(), l, b, true)
	}()
}

// Wait blocks until all non-blocking blinks have finished.
func (p *Panel) Wait() {
	p.wg.Wait()
}

// play lights l for each pulse of b. Between and after pulses the LED goes
// back to its steady level, or to low when toSteady is false.
func (p *Panel) play(ctx context.Context, l *led, b Blink, toSteady bool) {
	count := max(b.Count, 1)
	for i := range count {
		p.mu.Lock()
		_ = p.write(l, gpio.High)
		p.mu.Unlock()
		sleep(ctx, b.On)

		p.mu.Lock()
		if toSteady {
			_ = p.write(l, l.steady)
		} else {
			_ = p.write(l, gpio.Low)
		}
		p.mu.Unlock()

		if i < count-1 {
			sleep(ctx, b.Off)
		}
	}
}

// closedLevel is the steady closed LED level while the door is closed.
// Caller holds mu.
func (p *Panel) closedLevel() gpio.Level {
	if p.admin {
		return gpio.Low
	}
	return gpio.High
}

// Caller holds mu.
func (p *Panel) setSteady(l *led, level gpio.Level) error {
	l.steady = level
	return p.write(l, level)
}

// Caller holds mu.
func (p *Panel) write(l *led, level gpio.Level) error {
	if err := l.out.Out(level); err != nil {
		p.logger.Warn("indicator write failed", "led", l.name, "level", level, "error", err)
		return err
	}
	return nil
}

// Caller holds mu.
func (p *Panel) driveLock(level gpio.Level) error {
	if p.lock == nil {
		return nil
	}
	if err := p.lock.Out(level); err != nil {
		p.logger.Error("lock write failed", "level", level, "error", err)
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
