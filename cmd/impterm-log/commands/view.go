// Package commands implements the impterm-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/impterm/impterm-go/pkg/log"
)

// timestampLayout is used for every timestamp the tool prints.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] SOURCE Label
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [%s] %-6s %s\n", ts, shortenID(event.SessionID), event.Source, eventLabel(event))

	switch {
	case event.Key != nil:
		if event.Key.WhileOpen {
			fmt.Fprintln(w, "  While open: close requested")
		}
	case event.Auth != nil:
		formatAuthDetails(w, event.Auth)
	case event.Door != nil:
		formatDoorDetails(w, event.Door)
	case event.Remote != nil:
		formatRemoteDetails(w, event)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventLabel names the event's payload.
func eventLabel(event log.Event) string {
	switch {
	case event.Key != nil:
		return "Key " + event.Key.Class.String()
	case event.Auth != nil:
		return "Auth " + event.Auth.Result.String()
	case event.Door != nil:
		return "Door " + event.Door.NewState
	case event.Remote != nil:
		return "Remote " + event.Remote.Status
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of a UUID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

func formatAuthDetails(w io.Writer, a *log.AuthEvent) {
	fmt.Fprintf(w, "  State: %s -> %s\n", a.State, a.NextState)
	fmt.Fprintf(w, "  Length: %d\n", a.Length)
	if a.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", a.Reason)
	}
}

func formatDoorDetails(w io.Writer, d *log.DoorEvent) {
	fmt.Fprintf(w, "  %s -> %s (%s)\n", d.OldState, d.NewState, d.Cause)
	if d.Duration != nil {
		fmt.Fprintf(w, "  Auto-close: %s\n", formatDuration(*d.Duration))
	}
}

func formatRemoteDetails(w io.Writer, event log.Event) {
	r := event.Remote
	if event.ConnectionID != "" {
		fmt.Fprintf(w, "  Connection: %s", shortenID(event.ConnectionID))
		if event.RemoteAddr != "" {
			fmt.Fprintf(w, " (%s)", event.RemoteAddr)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  %s attribute %d, %d bytes\n", r.Operation, r.Attribute, r.Length)
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Source: %s\n", e.Source)
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseSourceFlag parses a source name (case-insensitive).
func ParseSourceFlag(s string) (log.Source, error) {
	for _, src := range []log.Source{log.SourceKeypad, log.SourceDoor, log.SourceRemote, log.SourceSystem} {
		if strings.EqualFold(s, src.String()) {
			return src, nil
		}
	}
	return 0, fmt.Errorf("invalid source: %s (must be keypad, door, remote, or system)", s)
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	for _, c := range []log.Category{log.CategoryKey, log.CategoryAuth, log.CategoryDoor, log.CategoryRemote, log.CategoryError} {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid category: %s (must be key, auth, door, remote, or error)", s)
}

// ParseResultFlag parses an auth result name (case-insensitive).
func ParseResultFlag(s string) (log.Result, error) {
	switch strings.ToLower(s) {
	case "granted":
		return log.ResultGranted, nil
	case "denied":
		return log.ResultDenied, nil
	default:
		return 0, fmt.Errorf("invalid result: %s (must be granted or denied)", s)
	}
}

// RunView prints the events of path that match filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
