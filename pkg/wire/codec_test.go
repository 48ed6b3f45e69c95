package wire

import (
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{
			name:  "keepalive request",
			frame: NewRequest(1, "GET", "/v1/keepalive", nil, nil),
		},
		{
			name: "message request",
			frame: NewRequest(7, "PUT", "/api/v1/message",
				[]string{"x-timestamp:1700000000000"}, []byte{0xde, 0xad}),
		},
		{
			name:  "response",
			frame: NewResponse(7, 200, "OK", []string{"content-type:application/json"}, []byte(`{}`)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.frame)
			if err != nil {
				t.Fatalf("EncodeFrame() error = %v", err)
			}

			got, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}

			if !reflect.DeepEqual(got, tt.frame) {
				t.Errorf("round trip = %+v, want %+v", got, tt.frame)
			}
		})
	}
}

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  error
	}{
		{"UnknownType", Frame{Type: 9}, ErrUnknownFrameType},
		{"RequestWithoutPayload", Frame{Type: FrameTypeRequest}, ErrMissingPayload},
		{"ResponseWithoutPayload", Frame{Type: FrameTypeResponse}, ErrMissingPayload},
		{"MissingVerb", Frame{Type: FrameTypeRequest, Request: &RequestFrame{Path: "/"}}, ErrMissingVerb},
		{"MissingPath", Frame{Type: FrameTypeRequest, Request: &RequestFrame{Verb: "GET"}}, ErrMissingPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.frame.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
			if _, err := EncodeFrame(&tt.frame); !errors.Is(err, tt.want) {
				t.Errorf("EncodeFrame() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeFrameGarbage(t *testing.T) {
	if _, err := DecodeFrame([]byte{0xff, 0x00}); err == nil {
		t.Error("DecodeFrame() accepted garbage")
	}
}

func TestHeaderLines(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Basic abc")
	h.Add("X-Server-Alert", "idle_primary_device")
	h.Add("X-Server-Alert", "critical_idle_primary_device")

	lines := HeaderLines(h)
	want := []string{
		"authorization:Basic abc",
		"x-server-alert:critical_idle_primary_device",
		"x-server-alert:idle_primary_device",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("HeaderLines() = %v, want %v", lines, want)
	}

	parsed := ParseHeaderLines(append(lines, "garbage"))
	if got := parsed.Get("Authorization"); got != "Basic abc" {
		t.Errorf("Authorization = %q, want %q", got, "Basic abc")
	}
	if got := len(parsed.Values("X-Server-Alert")); got != 2 {
		t.Errorf("len(X-Server-Alert) = %d, want 2", got)
	}

	if HeaderLines(nil) != nil {
		t.Error("HeaderLines(nil) should be nil")
	}

	req := &RequestFrame{Headers: []string{"x-timestamp: 42"}}
	if got := req.Header("X-Timestamp"); got != "42" {
		t.Errorf("Header() = %q, want %q", got, "42")
	}
}

func TestFrameTypeString(t *testing.T) {
	if FrameTypeRequest.String() != "REQUEST" || FrameTypeResponse.String() != "RESPONSE" || FrameType(0).String() != "UNKNOWN" {
		t.Error("FrameType.String() mismatch")
	}
}
