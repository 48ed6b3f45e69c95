package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/chatsock/chatsock-go/pkg/log"
)

// eventSink writes exported events in one output format.
type eventSink interface {
	write(log.Event) error
	flush() error
}

var exportFormats = map[string]func(io.Writer) (eventSink, error){
	"jsonl": newJSONLSink,
	"csv":   newCSVSink,
}

// RunExport writes the events in path to output, or to stdout when output
// is empty, as jsonl or csv.
func RunExport(path, format, output string) error {
	newSink, ok := exportFormats[format]
	if !ok {
		names := make([]string, 0, len(exportFormats))
		for name := range exportFormats {
			names = append(names, name)
		}
		slices.Sort(names)
		return fmt.Errorf("unknown format: %s (supported: %s)", format, strings.Join(names, ", "))
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	sink, err := newSink(w)
	if err != nil {
		return err
	}
	if err := reader.Each(sink.write); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	return sink.flush()
}

type jsonlSink struct{ enc *json.Encoder }

func newJSONLSink(w io.Writer) (eventSink, error) {
	return &jsonlSink{enc: json.NewEncoder(w)}, nil
}

func (s *jsonlSink) write(event log.Event) error { return s.enc.Encode(event) }
func (s *jsonlSink) flush() error                { return nil }

var csvColumns = []string{
	"timestamp", "connection_id", "channel", "direction", "layer", "category",
	"type", "path", "status", "close_code", "keepalive",
}

type csvSink struct{ w *csv.Writer }

func newCSVSink(w io.Writer) (eventSink, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &csvSink{w: cw}, nil
}

func (s *csvSink) write(event log.Event) error {
	var path, status, closeCode, keepAlive string
	if r := event.Request; r != nil {
		path = r.Path
		if r.Status != nil {
			status = strconv.Itoa(*r.Status)
		}
	}
	if event.Close != nil {
		closeCode = strconv.Itoa(event.Close.Code)
	}
	if event.KeepAlive != nil {
		keepAlive = event.KeepAlive.Result
	}

	return s.w.Write([]string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.ConnectionID,
		event.Channel,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		eventType(event),
		path,
		status,
		closeCode,
		keepAlive,
	})
}

func (s *csvSink) flush() error {
	s.w.Flush()
	return s.w.Error()
}
