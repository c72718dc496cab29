package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/impterm/impterm-go/pkg/log"
)

func TestBuildFilter(t *testing.T) {
	filter, err := BuildFilter(FilterOptions{
		SessionID: testSession,
		Source:    "remote",
		Result:    "granted",
		TimeStart: "2026-03-02T08:30:00Z",
	})
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}
	if filter.SessionID != testSession {
		t.Errorf("SessionID = %q", filter.SessionID)
	}
	if filter.Source == nil || *filter.Source != log.SourceRemote {
		t.Errorf("Source = %v", filter.Source)
	}
	if filter.Result == nil || *filter.Result != log.ResultGranted {
		t.Errorf("Result = %v", filter.Result)
	}
	if filter.TimeStart == nil || filter.TimeEnd != nil {
		t.Errorf("time range = %v..%v", filter.TimeStart, filter.TimeEnd)
	}
}

func TestBuildFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"bad source", FilterOptions{Source: "bus"}},
		{"bad category", FilterOptions{Category: "frame"}},
		{"bad result", FilterOptions{Result: "maybe"}},
		{"bad start", FilterOptions{TimeStart: "yesterday"}},
		{"bad end", FilterOptions{TimeEnd: "2026-13-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildFilter(tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunFilterDenied(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "denied.alog")

	var buf bytes.Buffer
	if err := RunFilter(path, out, FilterOptions{Result: "denied"}, &buf); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 1 events") {
		t.Errorf("unexpected summary: %s", buf.String())
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	events, err := reader.All()
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Auth == nil || events[0].Auth.Reason != "wrong_pin" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}
