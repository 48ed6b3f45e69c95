package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}

	events, err := ReadAll(path, Filter{})
	if err != nil || len(events) != 0 {
		t.Errorf("ReadAll on new log = %d events, %v", len(events), err)
	}
}

func TestFileLoggerRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not a log"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileLogger(path); !errors.Is(err, ErrNotProtocolLog) {
		t.Errorf("NewFileLogger error = %v, want ErrNotProtocolLog", err)
	}
}

func TestFileLoggerWritesHeaderAndEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	status := 200
	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionOut,
		Layer:        LayerResource,
		Category:     CategoryRequest,
		Channel:      "authenticated",
		Request: &RequestEvent{
			Verb:   "GET",
			Path:   "/v1/keepalive",
			Status: &status,
		},
	}

	logger.Log(event)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	decoder := NewDecoder(bytes.NewReader(data))
	var header Header
	if err := decoder.Decode(&header); err != nil {
		t.Fatalf("failed to decode header: %v", err)
	}
	if header.Magic != formatMagic || header.Version != FormatVersion {
		t.Errorf("header = %+v", header)
	}

	var decoded Event
	if err := decoder.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}

	if decoded.ConnectionID != event.ConnectionID {
		t.Errorf("ConnectionID: got %q, want %q", decoded.ConnectionID, event.ConnectionID)
	}
	if decoded.Channel != "authenticated" {
		t.Errorf("Channel: got %q, want %q", decoded.Channel, "authenticated")
	}
	if decoded.Request == nil {
		t.Fatal("Request is nil")
	}
	if decoded.Request.Path != "/v1/keepalive" {
		t.Errorf("Request.Path: got %q, want %q", decoded.Request.Path, "/v1/keepalive")
	}
	if decoded.Request.Status == nil || *decoded.Request.Status != 200 {
		t.Errorf("Request.Status: got %v, want 200", decoded.Request.Status)
	}
}

func TestFileLoggerStampsMissingTimestamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	before := time.Now()
	logger.Log(Event{Category: CategoryState, StateChange: &StateChangeEvent{NewState: "OPEN"}})
	logger.Close()

	events, err := ReadAll(path, Filter{})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Timestamp.Before(before) {
		t.Errorf("Timestamp = %v, want >= %v", events[0].Timestamp, before)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test"+FileExtension)

	logger1, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger1.Log(Event{Timestamp: time.Now(), ConnectionID: "conn-1", Category: CategoryRequest})
	logger1.Close()

	logger2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger second open failed: %v", err)
	}
	logger2.Log(Event{Timestamp: time.Now(), ConnectionID: "conn-2", Category: CategoryControl})
	logger2.Close()

	// A second header in the stream would fail to decode as an event.
	events, err := ReadAll(path, Filter{})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ConnectionID != "conn-1" {
		t.Errorf("first event ConnectionID: got %q, want %q", events[0].ConnectionID, "conn-1")
	}
	if events[1].ConnectionID != "conn-2" {
		t.Errorf("second event ConnectionID: got %q, want %q", events[1].ConnectionID, "conn-2")
	}
}

func TestFileLoggerThreadSafe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const numGoroutines = 10
	const eventsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				logger.Log(Event{
					Timestamp:    time.Now(),
					ConnectionID: "conn-" + string(rune('A'+id)),
					Category:     CategoryRequest,
				})
			}
		}(i)
	}

	wg.Wait()
	if got := logger.Written(); got != numGoroutines*eventsPerGoroutine {
		t.Errorf("Written() = %d, want %d", got, numGoroutines*eventsPerGoroutine)
	}
	logger.Close()

	events, err := ReadAll(path, Filter{})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != numGoroutines*eventsPerGoroutine {
		t.Errorf("got %d events, want %d", len(events), numGoroutines*eventsPerGoroutine)
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Log after close is ignored
	logger.Log(Event{Timestamp: time.Now()})
	if logger.Written() != 0 {
		t.Errorf("Written() = %d after close, want 0", logger.Written())
	}
}
