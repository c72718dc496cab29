package log

import "time"

// Logger receives access events.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent use
	// and should not block: the keypad worker and the auto-close timer call
	// it directly.
	Log(event Event)
}

// NoopLogger discards all events. Usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Recorder stamps events with the time and the session ID before passing
// them on.
type Recorder struct {
	next      Logger
	sessionID string
	now       func() time.Time
}

// NewRecorder creates a Recorder forwarding to next. A nil next discards.
func NewRecorder(next Logger, sessionID string) *Recorder {
	if next == nil {
		next = NoopLogger{}
	}
	return &Recorder{next: next, sessionID: sessionID, now: time.Now}
}

// SessionID returns the session ID stamped on events.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Log fills in Timestamp and SessionID where unset and forwards the event.
func (r *Recorder) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}
	if event.SessionID == "" {
		event.SessionID = r.sessionID
	}
	r.next.Log(event)
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*Recorder)(nil)
)
