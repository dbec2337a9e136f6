// Package storage provides the persistent backends for the viewer
// token dataset.
//
// Two interchangeable backends implement the same storage contract:
//
//   - badger: an embedded LSM store with write-ahead durability; every
//     acknowledged write is synced before the call returns.
//   - memory: the full dataset in process memory, flushed to an atomic
//     snapshot file after every mutating call.
//
// Open selects a backend by name. Callers depend only on the service
// layer's Store interface and never observe which backend is active.
package storage
