package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/impterm/impterm-go/pkg/log"
)

const testSession = "5f2c9a1e-0b7d-4c3e-9a61-2f0e8d7c6b5a"

// createTestLogFile writes events to a temp access log and returns its path.
func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.alog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

// sampleEvents is one granted entry followed by a wrong PIN and a remote write.
func sampleEvents() []log.Event {
	base := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	open := 5 * time.Second
	return []log.Event{
		{
			Timestamp: base,
			SessionID: testSession,
			Source:    log.SourceKeypad,
			Category:  log.CategoryKey,
			Key:       &log.KeyEvent{Class: log.KeyClassSubmit},
		},
		{
			Timestamp: base.Add(time.Millisecond),
			SessionID: testSession,
			Source:    log.SourceKeypad,
			Category:  log.CategoryAuth,
			Auth: &log.AuthEvent{
				State: "ENTER_PIN", NextState: "ENTER_PIN", Length: 4, Result: log.ResultGranted,
			},
		},
		{
			Timestamp: base.Add(2 * time.Millisecond),
			SessionID: testSession,
			Source:    log.SourceDoor,
			Category:  log.CategoryDoor,
			Door:      &log.DoorEvent{OldState: "CLOSED", NewState: "OPEN", Cause: "intent", Duration: &open},
		},
		{
			Timestamp:    base.Add(time.Second),
			SessionID:    testSession,
			Source:       log.SourceRemote,
			Category:     log.CategoryRemote,
			ConnectionID: "c0ffee00-1111-2222-3333-444455556666",
			RemoteAddr:   "192.0.2.7:51000",
			Remote:       &log.RemoteWriteEvent{Operation: "WRITE", Attribute: 1, Length: 6, Status: "SUCCESS"},
		},
		{
			Timestamp: base.Add(5 * time.Second),
			SessionID: testSession,
			Source:    log.SourceDoor,
			Category:  log.CategoryDoor,
			Door:      &log.DoorEvent{OldState: "OPEN", NewState: "CLOSED", Cause: "auto-close"},
		},
		{
			Timestamp: base.Add(10 * time.Second),
			SessionID: testSession,
			Source:    log.SourceKeypad,
			Category:  log.CategoryAuth,
			Auth: &log.AuthEvent{
				State: "ENTER_PIN", NextState: "ENTER_PIN", Length: 4, Result: log.ResultDenied, Reason: "wrong_pin",
			},
		},
	}
}
