// Package metric provides Prometheus metrics for the viewer token
// service.
//
// It exposes metrics in Prometheus format for monitoring token
// issuance, resolution outcomes, sweep activity, and request
// latencies.
package metric
