// Package cache defines the disk-backed store responsible for translating
// asset keys into StoragePath/<encoded-key>.img files. The store exposes
// read/write primitives with safe semantics (temp file + rename, per-key
// write locks) and a best-effort usage sum for diagnostics. The tiered
// coordinator depends on this package to persist encoded assets and to
// repopulate the memory tier after a restart without duplicating filesystem
// logic.
package cache
