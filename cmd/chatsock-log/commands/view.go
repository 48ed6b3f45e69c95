// Package commands implements the chatsock-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chatsock/chatsock-go/pkg/log"
)

// eventType returns the label of the event payload.
func eventType(event log.Event) string {
	switch {
	case event.Request != nil:
		return "Request"
	case event.StateChange != nil:
		return "State"
	case event.Close != nil:
		return "Close"
	case event.KeepAlive != nil:
		return "KeepAlive"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] channel DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	channel := event.Channel
	if channel == "" {
		channel = "-"
	}

	layerStr := event.Layer.String()
	if event.Category == log.CategoryControl {
		layerStr = "CTRL"
	}

	fmt.Fprintf(w, "%s [conn:%s] %s %-3s %s %s\n", ts, connID, channel,
		event.Direction.String(), layerStr, eventType(event))

	switch {
	case event.Request != nil:
		formatRequestDetails(w, event.Request)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Close != nil:
		formatCloseDetails(w, event.Close)
	case event.KeepAlive != nil:
		formatKeepAliveDetails(w, event.KeepAlive)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
	if event.LocalPort != 0 {
		fmt.Fprintf(w, "  LocalPort: %d\n", event.LocalPort)
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatRequestDetails(w io.Writer, req *log.RequestEvent) {
	fmt.Fprintf(w, "  %s %s\n", req.Verb, req.Path)
	if req.RequestType != "" {
		fmt.Fprintf(w, "  Type: %s\n", req.RequestType)
	}
	if req.BodySize > 0 {
		fmt.Fprintf(w, "  Body: %d bytes\n", req.BodySize)
	}
	if req.Status != nil {
		fmt.Fprintf(w, "  Status: %d\n", *req.Status)
	}
	if req.Duration != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*req.Duration))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatCloseDetails(w io.Writer, c *log.CloseEvent) {
	fmt.Fprintf(w, "  Code: %s (%d)\n", c.CodeName, c.Code)
	if c.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", c.Reason)
	}
	if c.Remote {
		fmt.Fprintln(w, "  Remote: yes")
	}
}

func formatKeepAliveDetails(w io.Writer, ka *log.KeepAliveEvent) {
	fmt.Fprintf(w, "  Result: %s\n", ka.Result)
	if ka.RTT > 0 {
		fmt.Fprintf(w, "  RTT: %s\n", formatDuration(ka.RTT))
	}
	if ka.Status != 0 {
		fmt.Fprintf(w, "  Status: %d\n", ka.Status)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "resource":
		return log.LayerResource, nil
	case "manager":
		return log.LayerManager, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, resource, or manager)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "request":
		return log.CategoryRequest, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be request, control, state, or error)", s)
	}
}

// RunView writes the events of path matching opts to output in a
// human-readable form. opts.Output is ignored.
func RunView(path string, opts FilterOptions, output io.Writer) error {
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	return reader.Each(func(event log.Event) error {
		formatEvent(output, event)
		return nil
	})
}
