package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes access events to an slog.Logger at Info level, or
// Warn for denials and errors.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("source", event.Source.String()),
		slog.String("category", event.Category.String()),
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	switch {
	case event.Key != nil:
		level = slog.LevelDebug
		attrs = append(attrs, slog.String("key_class", event.Key.Class.String()))
		if event.Key.WhileOpen {
			attrs = append(attrs, slog.Bool("while_open", true))
		}
	case event.Auth != nil:
		attrs = append(attrs,
			slog.String("state", event.Auth.State),
			slog.String("next_state", event.Auth.NextState),
			slog.Int("length", event.Auth.Length),
			slog.String("result", event.Auth.Result.String()),
		)
		if event.Auth.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Auth.Reason))
		}
		if event.Auth.Result == ResultDenied {
			level = slog.LevelWarn
		}
	case event.Door != nil:
		attrs = append(attrs,
			slog.String("old_state", event.Door.OldState),
			slog.String("new_state", event.Door.NewState),
			slog.String("cause", event.Door.Cause),
		)
		if event.Door.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Door.Duration))
		}
	case event.Remote != nil:
		attrs = append(attrs,
			slog.String("operation", event.Remote.Operation),
			slog.Uint64("attribute", uint64(event.Remote.Attribute)),
			slog.Int("length", event.Remote.Length),
			slog.String("status", event.Remote.Status),
		)
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_source", event.Error.Source.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "access", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
