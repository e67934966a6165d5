// Package loader deduplicates remote fetches behind per-key load state
// machines. Each key owns a single Loader that moves from empty to exactly
// one terminal state (loaded or failed) and never retries; all concurrent
// requests for the key share that Loader through the Registry, so at most
// one upstream fetch is ever in flight per key. Keys rejected by validation
// are registered as permanent no-ops that never touch cache or network.
package loader
