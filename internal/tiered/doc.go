// Package tiered coordinates the memory tier and the disk tier behind one
// lookup/store surface. Lookups fall through memory to disk, decode on the
// way back up, and promote the entry into memory; stores land in memory
// first and then on disk, with disk failures degrading to log lines instead
// of errors. The coordinator owns the eviction wiring that keeps the usage
// tracker consistent: every entry leaving the memory tier subtracts its cost
// exactly once.
package tiered
