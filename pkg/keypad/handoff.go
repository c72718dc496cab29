package keypad

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// DefaultQueueCapacity covers the number of keys that can plausibly be held
// down at once.
const DefaultQueueCapacity = 3

// ErrQueueCapacity is returned by NewHandoff for a capacity below one.
var ErrQueueCapacity = errors.New("hand-off queue capacity must be at least 1")

// Handoff carries row line numbers from edge callbacks to the keypad worker.
//
// Offer is safe to call from any goroutine and never blocks. Take and Reset
// belong to the single consuming worker.
type Handoff struct {
	ch      chan int
	dropped atomic.Uint64
}

// NewHandoff creates a queue with the given capacity.
func NewHandoff(capacity int) (*Handoff, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrQueueCapacity, capacity)
	}
	return &Handoff{ch: make(chan int, capacity)}, nil
}

// Offer enqueues a row line number without blocking.
// It returns false and counts a drop when the queue is full.
func (h *Handoff) Offer(row int) bool {
	select {
	case h.ch <- row:
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

// Take blocks until a row is available or ctx is done.
func (h *Handoff) Take(ctx context.Context) (int, error) {
	select {
	case row := <-h.ch:
		return row, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Reset discards queued rows and returns how many were discarded.
func (h *Handoff) Reset() int {
	n := 0
	for {
		select {
		case <-h.ch:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued rows.
func (h *Handoff) Len() int {
	return len(h.ch)
}

// Cap returns the queue capacity.
func (h *Handoff) Cap() int {
	return cap(h.ch)
}

// Dropped returns the number of rows rejected because the queue was full.
func (h *Handoff) Dropped() uint64 {
	return h.dropped.Load()
}
