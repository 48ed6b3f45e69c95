package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), ConnectionID: "conn-1", Direction: DirectionIn, Layer: LayerTransport, Category: CategoryRequest},
		{Timestamp: time.Now(), ConnectionID: "conn-2", Direction: DirectionOut, Layer: LayerResource, Category: CategoryControl},
		{Timestamp: time.Now(), ConnectionID: "conn-3", Direction: DirectionIn, Layer: LayerManager, Category: CategoryState},
	}

	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	if read[0].ConnectionID != "conn-1" {
		t.Errorf("first event ConnectionID = %q, want %q", read[0].ConnectionID, "conn-1")
	}
	if read[2].ConnectionID != "conn-3" {
		t.Errorf("last event ConnectionID = %q, want %q", read[2].ConnectionID, "conn-3")
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("Next() on empty file = %v, want io.EOF", err)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, ConnectionID: "a", Channel: "authenticated", Layer: LayerManager, Category: CategoryState},
		{Timestamp: base.Add(time.Second), ConnectionID: "a", Channel: "authenticated", Layer: LayerResource, Category: CategoryControl},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "b", Channel: "unauthenticated", Direction: DirectionOut, Layer: LayerResource, Category: CategoryRequest},
		{Timestamp: base.Add(3 * time.Second), ConnectionID: "b", Channel: "unauthenticated", Layer: LayerManager, Category: CategoryError},
	}
	path := createTestLogFile(t, events)

	control := CategoryControl
	resource := LayerResource
	out := DirectionOut
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"All", Filter{}, 4},
		{"ConnectionID", Filter{ConnectionID: "b"}, 2},
		{"Channel", Filter{Channel: "authenticated"}, 2},
		{"Category", Filter{Category: &control}, 1},
		{"Layer", Filter{Layer: &resource}, 2},
		{"Direction", Filter{Direction: &out}, 1},
		{"TimeRange", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"Combined", Filter{Channel: "unauthenticated", Layer: &resource}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAll(path, tt.filter)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing"+FileExtension)); err == nil {
		t.Error("NewReader on missing file should fail")
	}
}

func writeRaw(t *testing.T, items ...any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw"+FileExtension)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := NewEncoder(f)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestReaderChecksHeader(t *testing.T) {
	event := Event{Timestamp: time.Now(), ConnectionID: "conn-1"}

	tests := []struct {
		name  string
		items []any
		want  error
	}{
		{"Empty", nil, ErrNotProtocolLog},
		{"NoHeader", []any{event}, ErrNotProtocolLog},
		{"WrongMagic", []any{Header{Magic: "other", Version: 1}, event}, ErrNotProtocolLog},
		{"NewerVersion", []any{Header{Magic: formatMagic, Version: FormatVersion + 1}}, ErrUnsupportedVersion},
		{"Valid", []any{Header{Magic: formatMagic, Version: FormatVersion}, event}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRaw(t, tt.items...)

			reader, err := NewReader(path)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Errorf("NewReader error = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			defer reader.Close()

			if reader.Header().Version != FormatVersion {
				t.Errorf("Header().Version = %d", reader.Header().Version)
			}
			got, err := reader.Next()
			if err != nil || got.ConnectionID != "conn-1" {
				t.Errorf("Next() = %+v, %v", got, err)
			}
		})
	}
}

func TestReaderEachStopsOnError(t *testing.T) {
	path := createTestLogFile(t, []Event{
		{Timestamp: time.Now(), ConnectionID: "conn-1"},
		{Timestamp: time.Now(), ConnectionID: "conn-2"},
		{Timestamp: time.Now(), ConnectionID: "conn-3"},
	})

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	stop := errors.New("stop")
	var seen []string
	err = reader.Each(func(e Event) error {
		seen = append(seen, e.ConnectionID)
		if e.ConnectionID == "conn-2" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Each() = %v, want stop", err)
	}
	if len(seen) != 2 {
		t.Errorf("seen = %v", seen)
	}
}
