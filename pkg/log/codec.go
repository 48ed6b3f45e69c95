package log

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	// FileExtension is the conventional extension of protocol log files.
	FileExtension = ".clog"

	// FormatVersion is the file format written by FileLogger.
	FormatVersion = 1

	formatMagic = "chatsock-log"
)

// File format errors.
var (
	ErrNotProtocolLog     = errors.New("not a protocol log file")
	ErrUnsupportedVersion = errors.New("unsupported protocol log version")
)

// Header is the first item of every log file.
type Header struct {
	Magic   string    `cbor:"1,keyasint"`
	Version int       `cbor:"2,keyasint"`
	Created time.Time `cbor:"3,keyasint,omitempty"`
}

func (h Header) validate() error {
	if h.Magic != formatMagic {
		return ErrNotProtocolLog
	}
	if h.Version < 1 || h.Version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return nil
}

// Timestamps keep nanoseconds; map keys are sorted so equal events encode
// to equal bytes.
var (
	encMode = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 16,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor encoder mode: %v", err))
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor decoder mode: %v", err))
	}
	return m
}

// EncodeEvent encodes a single event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes a single event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

// NewEncoder returns an encoder for a stream of log items.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder for a stream of log items.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

func writeHeader(enc *cbor.Encoder, created time.Time) error {
	return enc.Encode(Header{Magic: formatMagic, Version: FormatVersion, Created: created})
}

// readHeader decodes and checks the leading header of a log stream.
func readHeader(dec *cbor.Decoder) (Header, error) {
	var h Header
	if err := dec.Decode(&h); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrNotProtocolLog, err)
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}
