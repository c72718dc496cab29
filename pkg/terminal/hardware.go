package terminal

import (
	"errors"

	"periph.io/x/conn/v3/gpio"

	"github.com/impterm/impterm-go/pkg/hal"
	"github.com/impterm/impterm-go/pkg/hal/sim"
	"github.com/impterm/impterm-go/pkg/indicator"
	"github.com/impterm/impterm-go/pkg/keypad"
)

// Hardware is the set of lines the terminal drives.
type Hardware struct {
	Matrix keypad.Matrix
	Edges  hal.EdgeSource

	OpenLED   indicator.Output
	ClosedLED indicator.Output

	// Lock and Status are optional.
	Lock   indicator.Output
	Status indicator.Output

	closers []func() error
}

// Close releases the hardware lines.
func (h *Hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		errs = append(errs, h.closers[i]())
	}
	h.closers = nil
	return errors.Join(errs...)
}

// NewPeriphHardware claims the configured GPIO lines through periph.
func NewPeriphHardware(cfg Config) (*Hardware, error) {
	matrix, err := hal.NewPeriphMatrix(cfg.Keypad)
	if err != nil {
		return nil, err
	}
	hw := &Hardware{Matrix: matrix, Edges: matrix}
	hw.closers = append(hw.closers, matrix.Close)

	output := func(line int) (indicator.Output, error) {
		if line == 0 {
			return nil, nil
		}
		p, err := hal.Output(line)
		if err != nil {
			return nil, err
		}
		hw.closers = append(hw.closers, p.Halt)
		return p, nil
	}

	lines := cfg.Indicators
	for _, o := range []struct {
		dst  *indicator.Output
		line int
	}{
		{&hw.OpenLED, lines.OpenLED},
		{&hw.ClosedLED, lines.ClosedLED},
		{&hw.Lock, lines.Lock},
		{&hw.Status, lines.Status},
	} {
		out, err := output(o.line)
		if err != nil {
			hw.Close()
			return nil, err
		}
		*o.dst = out
	}
	return hw, nil
}

// Simulation is an in-memory board and its outputs.
type Simulation struct {
	Board     *sim.Board
	OpenLED   *sim.Output
	ClosedLED *sim.Output
	Lock      *sim.Output
	Status    *sim.Output
}

// NewSimulation creates simulated hardware for cfg. Lock and status outputs
// exist only if their lines are configured.
func NewSimulation(cfg Config) (*Hardware, *Simulation) {
	s := &Simulation{
		Board:     sim.NewBoard(cfg.Keypad, keypad.DefaultLayout),
		OpenLED:   sim.NewOutput("open"),
		ClosedLED: sim.NewOutput("closed"),
	}
	hw := &Hardware{
		Matrix:    s.Board,
		Edges:     s.Board,
		OpenLED:   s.OpenLED,
		ClosedLED: s.ClosedLED,
	}
	if cfg.Indicators.Lock != 0 {
		s.Lock = sim.NewOutput("lock")
		hw.Lock = s.Lock
	}
	if cfg.Indicators.Status != 0 {
		s.Status = sim.NewOutput("status")
		hw.Status = s.Status
	}
	return hw, s
}

// OnWrite registers fn on every simulated output.
func (s *Simulation) OnWrite(fn func(name string, l gpio.Level)) {
	for _, o := range []*sim.Output{s.OpenLED, s.ClosedLED, s.Lock, s.Status} {
		if o != nil {
			o.OnWrite(fn)
		}
	}
}
