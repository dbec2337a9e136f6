// Package command provides CLI command definitions for qrifc-admin.
//
// qrifc-admin manages projects, model versions, and viewer tokens by
// opening the storage backend directly. It must not run against a data
// directory currently held by a live server process; the badger backend
// takes an exclusive directory lock.
package command
