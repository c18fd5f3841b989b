// Package resilience wraps calls to external services in a uniform
// pacing, retry and backoff policy.
//
// Provider adapters tag their failures with a Kind (rate limited,
// authentication failure, service unavailable) using Tag. Do reads the tag
// to decide whether to back off, give up immediately, or retry.
//
// Optional subsystems (the cache and the graph store) are guarded by a
// Switch so that a failure in one of them disables it for the rest of the
// session instead of failing every query.
package resilience
