// Package domain defines the core domain models for the viewer token
// service.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. Three entities exist:
//
//   - Project: a building/site namespace identified by a slug
//   - ModelVersion: one dated snapshot of a building model file,
//     scoped to a project
//   - ViewerToken: a short-lived capability binding one model element
//     to one model version
//
// Projects and model versions are append-only reference data; viewer
// tokens are the only high-churn entity and are destroyed exclusively
// by the expiry sweep.
package domain
