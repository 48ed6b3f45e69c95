package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsock/chatsock-go/pkg/persistence"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

func TestStatsRecorder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Counts", func(t *testing.T) {
		r := NewStatsRecorder(nil, DefaultStatsName, nil)
		r.ConnectionFailure()
		r.RequestCompared(false)
		r.RequestCompared(true)
		r.KeepAlive(transport.KeepAliveSuccess)
		r.KeepAlive(transport.KeepAliveBadStatus)
		r.KeepAlive(transport.KeepAliveFailure)
		r.KeepAlive(transport.KeepAliveStale)

		got := r.Pending()
		assert.Equal(t, 1, got.ConnectionFailures)
		assert.Equal(t, 2, got.RequestsCompared)
		assert.Equal(t, 1, got.IPVersionMismatches)
		assert.Equal(t, 1, got.HealthcheckBadStatus)
		assert.Equal(t, 2, got.HealthcheckFailures)
	})

	t.Run("FlushWithoutStore", func(t *testing.T) {
		r := NewStatsRecorder(nil, DefaultStatsName, nil)
		r.ConnectionFailure()

		total, reported, err := r.Flush(now)
		require.NoError(t, err)
		assert.False(t, reported)
		assert.Equal(t, 1, total.ConnectionFailures)
		assert.True(t, r.Pending().IsZero())
	})

	t.Run("FlushMerges", func(t *testing.T) {
		store := persistence.NewStatsStore(t.TempDir(), nil)
		require.NoError(t, store.Store(DefaultStatsName, persistence.AggregatedStats{ConnectionFailures: 4}))

		r := NewStatsRecorder(store, DefaultStatsName, nil)
		r.ConnectionFailure()
		total, reported, err := r.Flush(now)
		require.NoError(t, err)
		assert.False(t, reported)
		assert.Equal(t, 5, total.ConnectionFailures)

		stored, err := store.Load(DefaultStatsName)
		require.NoError(t, err)
		assert.Equal(t, 5, stored.ConnectionFailures)
	})

	t.Run("FlushReportsAndRestarts", func(t *testing.T) {
		store := persistence.NewStatsStore(t.TempDir(), nil)
		r := NewStatsRecorder(store, DefaultStatsName, nil)
		for range persistence.MinRequestsCompared {
			r.RequestCompared(false)
		}
		for range persistence.MaxFailuresUnnoticed + 1 {
			r.ConnectionFailure()
		}

		total, reported, err := r.Flush(now)
		require.NoError(t, err)
		assert.True(t, reported)
		assert.Equal(t, persistence.MaxFailuresUnnoticed+1, total.ConnectionFailures)

		stored, err := store.Load(DefaultStatsName)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Failures())
		assert.True(t, stored.LastToastAt.Equal(now))

		// A fresh report is suppressed until the interval passes.
		for range persistence.MinRequestsCompared {
			r.RequestCompared(false)
		}
		for range persistence.MaxFailuresUnnoticed + 1 {
			r.ConnectionFailure()
		}
		_, reported, err = r.Flush(now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, reported)
	})

	t.Run("FlushFailureKeepsCounts", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o600))

		r := NewStatsRecorder(persistence.NewStatsStore(blocker, nil), DefaultStatsName, nil)
		r.ConnectionFailure()

		_, _, err := r.Flush(now)
		require.Error(t, err)
		assert.Equal(t, 1, r.Pending().ConnectionFailures)
	})
}
