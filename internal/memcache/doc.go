// Package memcache implements the in-memory tier: a cost-bounded cache with
// least-recently-used eviction and an asynchronous eviction-notification
// queue. The cache never performs I/O; it only tracks values, costs, and
// recency, and reports every departing entry exactly once through the
// configured callback so upper layers can keep usage accounting consistent.
// Notifications are delivered by a dedicated goroutine in eviction order,
// decoupled from the mutating call.
package memcache
