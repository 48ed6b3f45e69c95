// Package metrics defines the Prometheus metrics exported by chatsock.
//
// Metrics are registered with the default registry on package load. Serve
// them with promhttp.Handler().
package metrics
