package log

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestEncodeEventDeterministic(t *testing.T) {
	status := 200
	event := Event{
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ConnectionID: "conn-1",
		Layer:        LayerResource,
		Category:     CategoryRequest,
		Channel:      "unauthenticated",
		Request:      &RequestEvent{Verb: "GET", Path: "/v1/config", Status: &status},
	}

	a, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	b, _ := EncodeEvent(event)
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}

	decoded, err := DecodeEvent(a)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, event.Timestamp)
	}
	if decoded.Request == nil || decoded.Request.Status == nil || *decoded.Request.Status != 200 {
		t.Errorf("Request = %+v", decoded.Request)
	}
}

func TestDecodeEventRejectsDuplicateKeys(t *testing.T) {
	// {2: "a", 2: "b"}
	data := []byte{0xa2, 0x02, 0x61, 'a', 0x02, 0x61, 'b'}

	if _, err := DecodeEvent(data); err == nil {
		t.Error("expected error for duplicate map key")
	}
}

func TestHeaderValidate(t *testing.T) {
	if err := (Header{Magic: formatMagic, Version: FormatVersion}).validate(); err != nil {
		t.Errorf("valid header: %v", err)
	}
	if err := (Header{Magic: formatMagic}).validate(); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("version 0: %v", err)
	}
	if err := (Header{Version: FormatVersion}).validate(); !errors.Is(err, ErrNotProtocolLog) {
		t.Errorf("no magic: %v", err)
	}
}
