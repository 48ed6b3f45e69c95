// Package persistence stores the connection manager's aggregated telemetry
// counters across runs.
//
// Each counter set is kept under a name in its own JSON file. Writers merge
// their in-memory deltas into the file so concurrent runs add up instead of
// overwriting each other.
package persistence
