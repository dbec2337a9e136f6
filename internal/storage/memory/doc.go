// Package memory implements the embedded storage backend: the full
// dataset lives in process memory, guarded by a single RWMutex, and is
// serialized to an atomic on-disk snapshot after every mutating call.
//
// Durability is coarse but simple: readers never block each other, and
// a crash loses at most the mutation whose flush did not complete. On
// open the newest valid snapshot is loaded back in full.
package memory
