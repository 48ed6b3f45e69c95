package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chatsock/chatsock-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output    string
	ConnID    string
	Channel   string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// RunFilter copies the events of path matching opts into a new log at
// opts.Output and returns how many were copied.
func RunFilter(path string, opts FilterOptions) (int, error) {
	if opts.Output == "" {
		return 0, errors.New("output file is required")
	}
	if samePath(path, opts.Output) {
		return 0, errors.New("output file must differ from the input")
	}

	filter, err := opts.filter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer out.Close()

	err = reader.Each(func(event log.Event) error {
		out.Log(event)
		return nil
	})
	return out.Written(), err
}

func (o FilterOptions) filter() (log.Filter, error) {
	f := log.Filter{ConnectionID: o.ConnID, Channel: o.Channel}

	var err error
	if f.TimeStart, err = parseTimeFlag("time-start", o.TimeStart); err != nil {
		return f, err
	}
	if f.TimeEnd, err = parseTimeFlag("time-end", o.TimeEnd); err != nil {
		return f, err
	}

	if o.Layer != "" {
		l, err := ParseLayerFlag(o.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	return f, nil
}

// parseTimeFlag parses an RFC3339 flag value. Empty means unset.
func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: %w", name, err)
	}
	return &t, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
