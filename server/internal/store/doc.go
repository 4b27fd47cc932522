// Package store keeps an in-memory directory of relay sessions: every active
// session plus the ones that ended within the history TTL. It backs the
// admin API's GET /sessions and is independent of the broadcast registry.
package store
