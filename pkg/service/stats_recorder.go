package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/chatsock/chatsock-go/pkg/persistence"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// StatsRecorder accumulates failure counts in memory and merges them into a
// StatsStore on Flush. A recorder without a store only counts.
type StatsRecorder struct {
	mu    sync.Mutex
	delta persistence.AggregatedStats

	store  *persistence.StatsStore
	name   string
	logger *slog.Logger
}

// NewStatsRecorder creates a recorder merging into store under name.
func NewStatsRecorder(store *persistence.StatsStore, name string, logger *slog.Logger) *StatsRecorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StatsRecorder{store: store, name: name, logger: logger}
}

// ConnectionFailure counts a failed authenticated connect.
func (r *StatsRecorder) ConnectionFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delta.ConnectionFailures++
}

// RequestCompared counts a fetch made while both channels were open and
// whether their IP versions differed.
func (r *StatsRecorder) RequestCompared(mismatch bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delta.RequestsCompared++
	if mismatch {
		r.delta.IPVersionMismatches++
	}
}

// KeepAlive counts failed keepalive probes.
func (r *StatsRecorder) KeepAlive(result transport.KeepAliveResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch result {
	case transport.KeepAliveSuccess:
	case transport.KeepAliveBadStatus:
		r.delta.HealthcheckBadStatus++
	default:
		r.delta.HealthcheckFailures++
	}
}

// Pending returns the counts not yet flushed.
func (r *StatsRecorder) Pending() persistence.AggregatedStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delta
}

// Flush merges the pending counts into the store. When the merged totals
// warrant a report, the report is logged and the totals restart from now.
// It returns the merged totals and whether a report was made.
func (r *StatsRecorder) Flush(now time.Time) (persistence.AggregatedStats, bool, error) {
	r.mu.Lock()
	delta := r.delta
	r.delta = persistence.AggregatedStats{}
	r.mu.Unlock()

	if r.store == nil {
		return delta, false, nil
	}

	total, err := r.store.Merge(r.name, delta)
	if err != nil {
		r.mu.Lock()
		r.delta = r.delta.Add(delta)
		r.mu.Unlock()
		return total, false, err
	}

	if !total.ShouldReportError(now) {
		return total, false, nil
	}

	r.logger.Warn("connection health degraded",
		"connection_failures", total.ConnectionFailures,
		"healthcheck_failures", total.HealthcheckFailures,
		"healthcheck_bad_status", total.HealthcheckBadStatus,
		"requests_compared", total.RequestsCompared,
		"ip_version_mismatches", total.IPVersionMismatches)

	if err := r.store.Store(r.name, persistence.AggregatedStats{LastToastAt: now}); err != nil {
		return total, true, err
	}
	return total, true, nil
}
