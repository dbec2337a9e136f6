// Package snapshot persists the in-memory backend's full dataset to
// disk.
//
// A snapshot file is the unit of durability for the embedded backend:
// the entire dataset is re-serialized and atomically swapped into
// place after every mutating call. The file layout is:
//
//	magic (8 bytes) | header length (4 bytes, big endian) |
//	header JSON | body length (4 bytes) | body JSON (optionally
//	encrypted) | SHA-256 checksum (32 bytes)
//
// Writes go through a temp file, fsync, and rename, so a crash mid
// write leaves the previous generation intact. A bounded number of
// generations is retained; loading walks from newest to oldest and
// skips corrupted files.
package snapshot
