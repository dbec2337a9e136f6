// Package service provides the domain services for the viewer token
// lifecycle.
//
// The Issuer orchestrates issuance and resolution on top of the
// storage contract and owns the token format and expiry policy. The
// Sweeper is the periodic background task that reclaims expired token
// rows; it is advisory housekeeping, because the Issuer re-checks
// liveness on every resolution.
package service
