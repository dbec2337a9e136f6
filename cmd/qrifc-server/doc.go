// Package main provides the entry point for qrifc-server.
//
// The server hosts the viewer token API:
//
//   - POST /api/tokens issues a viewer token for a model element
//   - GET /api/tokens/{token} resolves a token to its viewer payload
//   - GET /api/health and GET /ready report liveness and readiness
//   - GET /metrics exposes Prometheus metrics
//
// Usage:
//
//	qrifc-server [flags]
//	qrifc-server --config /path/to/config.yaml
//
// Configuration is loaded from defaults, then the optional config
// file, then QRIFC_-prefixed environment variables.
package main
