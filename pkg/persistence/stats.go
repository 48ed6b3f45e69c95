package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StatsVersion is the current version of the stats file format.
const StatsVersion = 1

// Reporting thresholds for ShouldReportError.
const (
	ReportInterval       = 24 * time.Hour
	MinRequestsCompared  = 1000
	MaxFailuresUnnoticed = 20
)

// AggregatedStats are rolling counters of connection and keepalive failures.
type AggregatedStats struct {
	// Version is the stats file format version.
	Version int `json:"version"`

	ConnectionFailures   int `json:"connection_failures"`
	RequestsCompared     int `json:"requests_compared"`
	IPVersionMismatches  int `json:"ip_version_mismatches"`
	HealthcheckFailures  int `json:"healthcheck_failures"`
	HealthcheckBadStatus int `json:"healthcheck_bad_status"`

	// LastToastAt is when the user was last told about connection problems.
	LastToastAt time.Time `json:"last_toast_at,omitempty"`
}

// Add returns the field-wise sum of s and o. LastToastAt is the later of
// the two.
func (s AggregatedStats) Add(o AggregatedStats) AggregatedStats {
	sum := AggregatedStats{
		Version:              StatsVersion,
		ConnectionFailures:   s.ConnectionFailures + o.ConnectionFailures,
		RequestsCompared:     s.RequestsCompared + o.RequestsCompared,
		IPVersionMismatches:  s.IPVersionMismatches + o.IPVersionMismatches,
		HealthcheckFailures:  s.HealthcheckFailures + o.HealthcheckFailures,
		HealthcheckBadStatus: s.HealthcheckBadStatus + o.HealthcheckBadStatus,
		LastToastAt:          s.LastToastAt,
	}
	if o.LastToastAt.After(sum.LastToastAt) {
		sum.LastToastAt = o.LastToastAt
	}
	return sum
}

// Failures returns the total number of recorded failures.
func (s AggregatedStats) Failures() int {
	return s.ConnectionFailures + s.HealthcheckFailures + s.HealthcheckBadStatus
}

// IsZero reports whether no counter is set.
func (s AggregatedStats) IsZero() bool {
	return s.ConnectionFailures == 0 && s.RequestsCompared == 0 && s.IPVersionMismatches == 0 &&
		s.HealthcheckFailures == 0 && s.HealthcheckBadStatus == 0 && s.LastToastAt.IsZero()
}

// ShouldReportError reports whether enough failures accumulated since the
// last toast to tell the user. It requires at least ReportInterval since the
// last toast and MinRequestsCompared observed requests.
func (s AggregatedStats) ShouldReportError(now time.Time) bool {
	if now.Sub(s.LastToastAt) < ReportInterval || s.RequestsCompared < MinRequestsCompared {
		return false
	}
	return s.Failures() > MaxFailuresUnnoticed
}

// StatsStore manages persistence of named stats to JSON files in a directory.
type StatsStore struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// NewStatsStore creates a store rooted at dir. logger may be nil.
func NewStatsStore(dir string, logger *slog.Logger) *StatsStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StatsStore{dir: dir, logger: logger}
}

// Path returns the file backing the stats called name.
func (s *StatsStore) Path(name string) string {
	return filepath.Join(s.dir, "aggregated-stats."+name+".json")
}

// Load reads the stats called name. A missing file yields empty stats.
func (s *StatsStore) Load(name string) (AggregatedStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(name)
}

// LoadOrCreateEmpty reads the stats called name, falling back to empty
// stats when the file is missing or unreadable.
func (s *StatsStore) LoadOrCreateEmpty(name string) AggregatedStats {
	stats, err := s.Load(name)
	if err != nil {
		s.logger.Warn("could not load stats, starting empty", "name", name, "error", err)
		return AggregatedStats{Version: StatsVersion}
	}
	return stats
}

// Store persists stats under name.
func (s *StatsStore) Store(name string, stats AggregatedStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(name, stats)
}

// Merge adds delta to the persisted stats and returns the new total.
func (s *StatsStore) Merge(name string, delta AggregatedStats) (AggregatedStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(name)
	if err != nil {
		s.logger.Warn("could not load stats, overwriting", "name", name, "error", err)
		current = AggregatedStats{}
	}

	total := current.Add(delta)
	if err := s.storeLocked(name, total); err != nil {
		return total, err
	}
	return total, nil
}

// Clear removes the stats called name.
func (s *StatsStore) Clear(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *StatsStore) loadLocked(name string) (AggregatedStats, error) {
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return AggregatedStats{Version: StatsVersion}, nil
	}
	if err != nil {
		return AggregatedStats{}, err
	}

	var stats AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return AggregatedStats{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if stats.Version > StatsVersion {
		return AggregatedStats{}, fmt.Errorf("stats %s: unsupported version %d", name, stats.Version)
	}
	return stats, nil
}

func (s *StatsStore) storeLocked(name string, stats AggregatedStats) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	stats.Version = StatsVersion
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}

	// Replace the file atomically.
	tmp, err := os.CreateTemp(s.dir, ".stats-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path(name))
}
