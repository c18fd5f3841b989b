// Package cache provides the content-addressed cache in front of the
// embedding provider and the language model.
//
// Entries are keyed by namespace and the SHA-256 of the input text:
//
//	embedding:<hex sha256 of text>
//	answer:<hex sha256 of question>
//
// The cache is advisory. Store failures are logged and treated as misses,
// and a disabled cache always misses and never writes.
package cache
