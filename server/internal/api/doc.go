// Package api implements the relay's admin HTTP API.
//
// New(registry, gatherer) returns an http.Handler (a chi router) that serves:
//
//	GET /healthz  — {"status":"ok","connections":N}
//	GET /users    — {"usernames":[...]}: the registry's current names, sorted
//	GET /metrics  — Prometheus text exposition from gatherer
//	GET /sessions — active and recently ended sessions (WithSessions only)
//
// WithAPIKey puts every route except /healthz behind auth.APIKey; /healthz stays
// open for probes.
//
// All JSON endpoints respond with Content-Type: application/json. Other
// methods get 405 and unknown paths 404, both with a JSON error body.
//
// The admin API runs on its own listener (admin.http_port) so the relay
// listener keeps exactly one route, the WebSocket upgrade path.
package api
