package hal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/impterm/impterm-go/pkg/keypad"
)

// EdgePollInterval bounds how long a row watcher waits for an edge before
// re-checking its context.
const EdgePollInterval = 250 * time.Millisecond

// ErrPinNotFound is returned when a GPIO line has no registered pin.
var ErrPinNotFound = errors.New("gpio pin not found")

// EdgeSource reports rising edges on keypad row lines.
type EdgeSource interface {
	// WatchRows calls onEdge with the line number of every rising edge on
	// the given rows until ctx is done. onEdge must not block.
	WatchRows(ctx context.Context, rows []int, onEdge func(line int)) error
}

var initOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Init loads the periph host drivers. It is safe to call more than once.
func Init() error {
	if err := initOnce(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

// Pin returns the GPIO pin for a line number.
func Pin(line int) (gpio.PinIO, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", line))
	if p == nil {
		return nil, fmt.Errorf("%w: GPIO%d", ErrPinNotFound, line)
	}
	return p, nil
}

// Output returns the pin for line configured as an output driven low.
func Output(line int) (gpio.PinIO, error) {
	p, err := Pin(line)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", p, err)
	}
	return p, nil
}

// PeriphMatrix drives a keypad through periph GPIO pins.
type PeriphMatrix struct {
	rows     map[int]gpio.PinIO
	cols     map[int]gpio.PinIO
	colOrder []int
}

// NewPeriphMatrix configures the wiring's rows as pulled-down inputs with
// rising-edge detection and its columns as outputs at the resting level.
func NewPeriphMatrix(w keypad.Wiring) (*PeriphMatrix, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := Init(); err != nil {
		return nil, err
	}

	m := &PeriphMatrix{
		rows: make(map[int]gpio.PinIO, len(w.Rows)),
		cols: make(map[int]gpio.PinIO, len(w.Columns)),
	}

	for _, line := range w.Columns {
		p, err := Pin(line)
		if err != nil {
			return nil, err
		}
		if err := p.Out(keypad.ColumnActive); err != nil {
			return nil, fmt.Errorf("configure column %s: %w", p, err)
		}
		m.cols[line] = p
		m.colOrder = append(m.colOrder, line)
	}
	sort.Ints(m.colOrder)

	for _, line := range w.Rows {
		p, err := Pin(line)
		if err != nil {
			return nil, err
		}
		if err := p.In(gpio.PullDown, gpio.RisingEdge); err != nil {
			return nil, fmt.Errorf("configure row %s: %w", p, err)
		}
		m.rows[line] = p
	}

	return m, nil
}

// DriveColumns writes level to every column in mask.
// periph has no multi-pin write, so the pins are written back to back.
func (m *PeriphMatrix) DriveColumns(mask uint64, level gpio.Level) error {
	for _, line := range m.colOrder {
		if mask&(1<<uint(line)) == 0 {
			continue
		}
		if err := m.cols[line].Out(level); err != nil {
			return err
		}
	}
	return nil
}

// DriveColumn writes level to one column.
func (m *PeriphMatrix) DriveColumn(line int, level gpio.Level) error {
	p, ok := m.cols[line]
	if !ok {
		return fmt.Errorf("%w: column %d", ErrPinNotFound, line)
	}
	return p.Out(level)
}

// ReadRow samples one row.
func (m *PeriphMatrix) ReadRow(line int) (gpio.Level, error) {
	p, ok := m.rows[line]
	if !ok {
		return gpio.Low, fmt.Errorf("%w: row %d", ErrPinNotFound, line)
	}
	return p.Read(), nil
}

// WatchRows runs one watcher goroutine per row and blocks until ctx is done.
func (m *PeriphMatrix) WatchRows(ctx context.Context, rows []int, onEdge func(line int)) error {
	var wg sync.WaitGroup
	for _, line := range rows {
		p, ok := m.rows[line]
		if !ok {
			return fmt.Errorf("%w: row %d", ErrPinNotFound, line)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if p.WaitForEdge(EdgePollInterval) && ctx.Err() == nil {
					onEdge(line)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()
	return nil
}

// Close halts all keypad pins.
func (m *PeriphMatrix) Close() error {
	var errs []error
	for _, p := range m.rows {
		errs = append(errs, p.Halt())
	}
	for _, p := range m.cols {
		errs = append(errs, p.Halt())
	}
	return errors.Join(errs...)
}

// Compile-time interface satisfaction checks.
var (
	_ keypad.Matrix = (*PeriphMatrix)(nil)
	_ EdgeSource    = (*PeriphMatrix)(nil)
)
