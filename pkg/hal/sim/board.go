// Package sim provides an in-memory keypad and indicator board.
//
// A Board behaves like the real wiring: a held key connects one row line to
// one column line, and the row reads high only while that column is driven
// high. Pressing a key fires the registered edge handler the way a row
// interrupt would.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/impterm/impterm-go/pkg/hal"
	"github.com/impterm/impterm-go/pkg/keypad"
)

// DefaultHold is how long Tap keeps a key down.
const DefaultHold = 40 * time.Millisecond

type contact struct {
	row, col int
}

// Board simulates the keypad matrix.
type Board struct {
	mu      sync.Mutex
	wiring  keypad.Wiring
	layout  keypad.Layout
	cols    map[int]gpio.Level
	held    *contact
	onEdge  func(line int)
	bulk    int
	singles int
}

// NewBoard creates a board with all columns at the resting level.
func NewBoard(w keypad.Wiring, layout keypad.Layout) *Board {
	b := &Board{
		wiring: w,
		layout: layout,
		cols:   make(map[int]gpio.Level, len(w.Columns)),
	}
	for _, line := range w.Columns {
		b.cols[line] = keypad.ColumnActive
	}
	return b
}

// DriveColumns implements keypad.Matrix.
func (b *Board) DriveColumns(mask uint64, level gpio.Level) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bulk++
	for line := range b.cols {
		if mask&(1<<uint(line)) != 0 {
			b.cols[line] = level
		}
	}
	return nil
}

// DriveColumn implements keypad.Matrix.
func (b *Board) DriveColumn(line int, level gpio.Level) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cols[line]; !ok {
		return fmt.Errorf("%w: column %d", hal.ErrPinNotFound, line)
	}
	b.singles++
	b.cols[line] = level
	return nil
}

// ReadRow implements keypad.Matrix.
func (b *Board) ReadRow(line int) (gpio.Level, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.held == nil || b.held.row != line {
		return gpio.Low, nil
	}
	return b.cols[b.held.col], nil
}

// WatchRows implements hal.EdgeSource. It registers onEdge and blocks until
// ctx is done.
func (b *Board) WatchRows(ctx context.Context, rows []int, onEdge func(line int)) error {
	b.mu.Lock()
	b.onEdge = onEdge
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	b.onEdge = nil
	b.mu.Unlock()
	return nil
}

// Press holds key k down and fires one edge per bounce (at least one).
func (b *Board) Press(k keypad.Key, bounces int) error {
	row, col, ok := b.layout.Find(k)
	if !ok {
		return fmt.Errorf("key %q not on keypad", k)
	}
	rowLine, colLine := b.wiring.Rows[row], b.wiring.Columns[col]

	b.mu.Lock()
	b.held = &contact{row: rowLine, col: colLine}
	fire := b.onEdge
	level := b.cols[colLine]
	b.mu.Unlock()

	if bounces < 1 {
		bounces = 1
	}
	// A row only sees an edge if its column is currently driven.
	if fire != nil && level == keypad.ColumnActive {
		for range bounces {
			fire(rowLine)
		}
	}
	return nil
}

// Release lets go of the held key.
func (b *Board) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held = nil
}

// Tap presses k for hold and releases it.
func (b *Board) Tap(ctx context.Context, k keypad.Key, hold time.Duration) error {
	if err := b.Press(k, 1); err != nil {
		return err
	}
	defer b.Release()

	select {
	case <-time.After(hold):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Type taps each key of keys in turn, pausing hold between taps.
func (b *Board) Type(ctx context.Context, keys string, hold time.Duration) error {
	for i := 0; i < len(keys); i++ {
		if err := b.Tap(ctx, keypad.Key(keys[i]), hold); err != nil {
			return err
		}
		select {
		case <-time.After(hold):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Watching reports whether an edge handler is registered.
func (b *Board) Watching() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.onEdge != nil
}

// Column returns the current level of a column line.
func (b *Board) Column(line int) gpio.Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cols[line]
}

// Writes returns the number of bulk and single-column writes seen so far.
func (b *Board) Writes() (bulk, single int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bulk, b.singles
}

// Compile-time interface satisfaction checks.
var (
	_ keypad.Matrix  = (*Board)(nil)
	_ hal.EdgeSource = (*Board)(nil)
)
