package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger. Each payload is
// logged as a group named after it; error events are logged at Warn and
// everything else at Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns an adapter writing to logger, or to slog.Default
// when logger is nil.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	if event.Error != nil {
		level = slog.LevelWarn
	}
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Channel != "" {
		attrs = append(attrs, slog.String("channel", event.Channel))
	}
	if event.LocalPort != 0 {
		attrs = append(attrs, slog.Int("local_port", event.LocalPort))
	}

	msg, payload := "protocol", payloadAttr(event)
	if payload.Key != "" {
		msg += " " + payload.Key
		attrs = append(attrs, payload)
	}
	a.logger.LogAttrs(ctx, level, msg, attrs...)
}

// payloadAttr returns the event's payload as a group, or an empty Attr.
func payloadAttr(event Event) slog.Attr {
	var fields []slog.Attr
	switch {
	case event.Request != nil:
		r := event.Request
		fields = append(fields, slog.String("verb", r.Verb), slog.String("path", r.Path))
		if r.RequestType != "" {
			fields = append(fields, slog.String("type", r.RequestType))
		}
		if r.Status != nil {
			fields = append(fields, slog.Int("status", *r.Status))
		}
		if r.BodySize > 0 {
			fields = append(fields, slog.Int("body_size", r.BodySize))
		}
		if r.Duration != nil {
			fields = append(fields, slog.Duration("duration", *r.Duration))
		}
		return slog.Attr{Key: "request", Value: slog.GroupValue(fields...)}

	case event.StateChange != nil:
		s := event.StateChange
		fields = append(fields, slog.String("entity", s.Entity.String()))
		if s.OldState != "" {
			fields = append(fields, slog.String("from", s.OldState))
		}
		fields = append(fields, slog.String("to", s.NewState))
		if s.Reason != "" {
			fields = append(fields, slog.String("reason", s.Reason))
		}
		return slog.Attr{Key: "state", Value: slog.GroupValue(fields...)}

	case event.Close != nil:
		c := event.Close
		fields = append(fields, slog.Int("code", c.Code))
		if c.CodeName != "" {
			fields = append(fields, slog.String("name", c.CodeName))
		}
		if c.Reason != "" {
			fields = append(fields, slog.String("reason", c.Reason))
		}
		fields = append(fields, slog.Bool("remote", c.Remote))
		return slog.Attr{Key: "close", Value: slog.GroupValue(fields...)}

	case event.KeepAlive != nil:
		k := event.KeepAlive
		fields = append(fields, slog.String("result", k.Result))
		if k.RTT > 0 {
			fields = append(fields, slog.Duration("rtt", k.RTT))
		}
		if k.Status != 0 {
			fields = append(fields, slog.Int("status", k.Status))
		}
		return slog.Attr{Key: "keepalive", Value: slog.GroupValue(fields...)}

	case event.Error != nil:
		e := event.Error
		fields = append(fields, slog.String("layer", e.Layer.String()), slog.String("message", e.Message))
		if e.Code != nil {
			fields = append(fields, slog.Int("code", *e.Code))
		}
		if e.Context != "" {
			fields = append(fields, slog.String("context", e.Context))
		}
		return slog.Attr{Key: "error", Value: slog.GroupValue(fields...)}
	}
	return slog.Attr{}
}

var _ Logger = (*SlogAdapter)(nil)
