package keypad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// KeyHandler consumes decoded keys.
// A returned error stops the worker.
type KeyHandler interface {
	HandleKey(ctx context.Context, key Key) error
}

// KeyHandlerFunc adapts a function to KeyHandler.
type KeyHandlerFunc func(ctx context.Context, key Key) error

// HandleKey calls f.
func (f KeyHandlerFunc) HandleKey(ctx context.Context, key Key) error {
	return f(ctx, key)
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Queue   *Handoff
	Scanner *Scanner
	Handler KeyHandler

	// Logger receives debug output. Nil discards.
	Logger *slog.Logger

	// OnKey, if set, is called with each decoded key before it is handled.
	OnKey func(key Key)
}

// Worker is the keypad task: it turns queued row edges into handled keys.
type Worker struct {
	queue   *Handoff
	scanner *Scanner
	handler KeyHandler
	logger  *slog.Logger
	onKey   func(Key)
}

// NewWorker creates a worker.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Queue == nil || cfg.Scanner == nil || cfg.Handler == nil {
		return nil, errors.New("keypad: worker requires queue, scanner and handler")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		queue:   cfg.Queue,
		scanner: cfg.Scanner,
		handler: cfg.Handler,
		logger:  logger,
		onKey:   cfg.OnKey,
	}, nil
}

// Run processes rows until ctx is cancelled or the handler fails.
// It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	for {
		row, err := w.queue.Take(ctx)
		if err != nil {
			return nil
		}
		if err := w.process(ctx, row); err != nil {
			return err
		}
	}
}

// process handles one queued row and then flushes the queue.
func (w *Worker) process(ctx context.Context, row int) error {
	defer func() {
		if n := w.queue.Reset(); n > 0 {
			w.logger.Debug("discarded bounced edges", "count", n)
		}
	}()

	key, err := w.scanner.Scan(row)
	if err != nil {
		return fmt.Errorf("keypad scan: %w", err)
	}
	if key == NoKey {
		w.logger.Debug("spurious row edge", "row", row)
		return nil
	}

	w.logger.Debug("key pressed", "key", key.String())
	if w.onKey != nil {
		w.onKey(key)
	}
	return w.handler.HandleKey(ctx, key)
}
