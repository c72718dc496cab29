package terminal

import (
	"context"
	"errors"

	"github.com/impterm/impterm-go/pkg/door"
	"github.com/impterm/impterm-go/pkg/keypad"
	"github.com/impterm/impterm-go/pkg/log"
	"github.com/impterm/impterm-go/pkg/pin"
)

// onEdge runs on the edge watcher. It must not block.
func (t *Terminal) onEdge(line int) {
	if !t.queue.Offer(line) {
		t.logger.Debug("row edge dropped, queue full", "row", line)
	}
}

func (t *Terminal) onKey(k keypad.Key) {
	t.panel.Activity()

	class := log.KeyClassDigit
	switch k {
	case keypad.KeyChange:
		class = log.KeyClassChange
	case keypad.KeySubmit:
		class = log.KeyClassSubmit
	}
	t.access.Log(log.Event{
		Source:   log.SourceKeypad,
		Category: log.CategoryKey,
		Key:      &log.KeyEvent{Class: class, WhileOpen: t.door.IsOpen()},
	})
}

// handleKey feeds the PIN machine. A failure is recorded before it stops
// the keypad worker.
func (t *Terminal) handleKey(ctx context.Context, k keypad.Key) error {
	err := t.machine.HandleKey(ctx, k)
	if err != nil && ctx.Err() == nil {
		t.access.Log(t.errorEvent(log.SourceKeypad, err, "handle key"))
		return err
	}
	return nil
}

func (t *Terminal) onAttempt(a pin.Attempt) {
	ev := &log.AuthEvent{
		State:     a.State.String(),
		NextState: a.Next.String(),
		Length:    a.Length,
		Result:    log.ResultGranted,
	}
	if !a.OK() {
		ev.Result = log.ResultDenied
		ev.Reason = denialReason(a.Err)
	}
	t.access.Log(log.Event{
		Source:   log.SourceKeypad,
		Category: log.CategoryAuth,
		Auth:     ev,
	})
}

func (t *Terminal) onDoorChange(c door.Change) {
	ev := &log.DoorEvent{
		OldState: c.From.String(),
		NewState: c.To.String(),
		Cause:    c.Cause.String(),
	}
	if c.To == door.StateOpen {
		d := c.Duration
		ev.Duration = &d
	}
	t.access.Log(log.Event{
		Source:   log.SourceDoor,
		Category: log.CategoryDoor,
		Door:     ev,
	})
}

func (t *Terminal) errorEvent(src log.Source, err error, op string) log.Event {
	return log.Event{
		Source:   src,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Source:  src,
			Message: err.Error(),
			Context: op,
		},
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, pin.ErrWrongPIN):
		return "wrong_pin"
	case errors.Is(err, pin.ErrTooShort):
		return "too_short"
	case errors.Is(err, pin.ErrOverflow):
		return "overflow"
	case errors.Is(err, pin.ErrMismatch):
		return "mismatch"
	case errors.Is(err, pin.ErrInvalidPIN):
		return "invalid_pin"
	default:
		return "error"
	}
}
