package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "access.alog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.alog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	d := 10 * time.Second
	events := []Event{
		{
			Timestamp: time.Now(),
			SessionID: "s-1",
			Source:    SourceKeypad,
			Category:  CategoryAuth,
			Auth:      &AuthEvent{State: "AUTH", NextState: "AUTH", Length: 4, Result: ResultGranted},
		},
		{
			Timestamp: time.Now(),
			SessionID: "s-1",
			Source:    SourceDoor,
			Category:  CategoryDoor,
			Door:      &DoorEvent{OldState: "CLOSED", NewState: "OPEN", Cause: "INTENT", Duration: &d},
		},
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	got, err := r.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d events, want 2", len(got))
	}
	if got[0].Auth == nil || got[0].Auth.Result != ResultGranted || got[0].Auth.Length != 4 {
		t.Errorf("auth event = %+v", got[0].Auth)
	}
	if got[1].Door == nil || got[1].Door.Duration == nil || *got[1].Door.Duration != d {
		t.Errorf("door event = %+v", got[1].Door)
	}
	if !got[0].Timestamp.Equal(events[0].Timestamp) {
		t.Errorf("Timestamp = %v, want %v (nanosecond precision)", got[0].Timestamp, events[0].Timestamp)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.alog")

	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), Source: SourceSystem, Category: CategoryError,
			Error: &ErrorEventData{Source: SourceSystem, Message: "boot"}})
		logger.Close()
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := r.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("read %d events, want 2", len(got))
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				logger.Log(Event{Timestamp: time.Now(), Source: SourceKeypad, Category: CategoryKey,
					Key: &KeyEvent{Class: KeyClassDigit}})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	n := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed after %d events: %v", n, err)
		}
		n++
	}
	if n != 200 {
		t.Errorf("read %d events, want 200", n)
	}
}

func TestFileLoggerIgnoresAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.alog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	logger.Log(Event{Source: SourceSystem})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("file size = %d after closed Log, want 0", info.Size())
	}
}

func TestReaderTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.alog")
	good, err := EncodeEvent(Event{Timestamp: time.Now(), Source: SourceDoor, Category: CategoryDoor,
		Door: &DoorEvent{OldState: "OPEN", NewState: "CLOSED", Cause: "AUTO_CLOSE"}})
	if err != nil {
		t.Fatal(err)
	}
	data := append(append([]byte{}, good...), good[:len(good)/2]...)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := r.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("read %d events, want 1", len(got))
	}
}
