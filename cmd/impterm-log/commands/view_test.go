package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/impterm/impterm-go/pkg/log"
)

func TestFormatAuthEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC),
		SessionID: testSession,
		Source:    log.SourceKeypad,
		Category:  log.CategoryAuth,
		Auth: &log.AuthEvent{
			State: "ENTER_PIN", NextState: "ENTER_PIN", Length: 3, Result: log.ResultDenied, Reason: "too_short",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[5f2c9a1e]",
		"KEYPAD",
		"Auth DENIED",
		"Length: 3",
		"Reason: too_short",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatDoorEvent(t *testing.T) {
	d := 5 * time.Second
	event := log.Event{
		Source:   log.SourceDoor,
		Category: log.CategoryDoor,
		Door:     &log.DoorEvent{OldState: "CLOSED", NewState: "OPEN", Cause: "intent", Duration: &d},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "CLOSED -> OPEN (intent)") {
		t.Errorf("expected transition, got: %s", output)
	}
	if !strings.Contains(output, "Auto-close: 5.000s") {
		t.Errorf("expected auto-close duration, got: %s", output)
	}
	if !strings.Contains(output, "[-]") {
		t.Errorf("expected placeholder for missing session, got: %s", output)
	}
}

func TestFormatRemoteEvent(t *testing.T) {
	event := log.Event{
		Source:       log.SourceRemote,
		Category:     log.CategoryRemote,
		ConnectionID: "c0ffee00-1111",
		RemoteAddr:   "192.0.2.7:51000",
		Remote:       &log.RemoteWriteEvent{Operation: "WRITE", Attribute: 1, Length: 6, Status: "WRITE_NOT_PERMITTED"},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Remote WRITE_NOT_PERMITTED") {
		t.Errorf("expected status label, got: %s", output)
	}
	if !strings.Contains(output, "Connection: c0ffee00 (192.0.2.7:51000)") {
		t.Errorf("expected connection, got: %s", output)
	}
	if !strings.Contains(output, "WRITE attribute 1, 6 bytes") {
		t.Errorf("expected write details, got: %s", output)
	}
}

func TestFormatKeyEventNeverShowsDigit(t *testing.T) {
	event := log.Event{
		Source:   log.SourceKeypad,
		Category: log.CategoryKey,
		Key:      &log.KeyEvent{Class: log.KeyClassDigit, WhileOpen: true},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Key DIGIT") {
		t.Errorf("expected key class, got: %s", output)
	}
	if !strings.Contains(output, "close requested") {
		t.Errorf("expected while-open note, got: %s", output)
	}
}

func TestParseFlags(t *testing.T) {
	if s, err := ParseSourceFlag("door"); err != nil || s != log.SourceDoor {
		t.Errorf("ParseSourceFlag(door) = %v, %v", s, err)
	}
	if _, err := ParseSourceFlag("bus"); err == nil {
		t.Error("expected error for unknown source")
	}
	if c, err := ParseCategoryFlag("AUTH"); err != nil || c != log.CategoryAuth {
		t.Errorf("ParseCategoryFlag(AUTH) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("frame"); err == nil {
		t.Error("expected error for unknown category")
	}
	if r, err := ParseResultFlag("Denied"); err != nil || r != log.ResultDenied {
		t.Errorf("ParseResultFlag(Denied) = %v, %v", r, err)
	}
	if _, err := ParseResultFlag("maybe"); err == nil {
		t.Error("expected error for unknown result")
	}
}

func TestRunViewFiltersByCategory(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	cat := log.CategoryDoor
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if got := strings.Count(output, "Door "); got != 2 {
		t.Errorf("expected 2 door events, got %d: %s", got, output)
	}
	if strings.Contains(output, "Auth ") {
		t.Errorf("auth events should be filtered out: %s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView("/nonexistent/test.alog", log.Filter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}
