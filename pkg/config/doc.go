// Package config loads the YAML configuration of the chatsock client.
//
// Durations are written as Go duration strings ("30s", "5m"). Zero values
// are replaced by defaults before validation, so a file only needs to name
// what it changes.
package config
