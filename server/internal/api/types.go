package api

import "github.com/chatrelay/chatrelay/server/internal/store"

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// UsersResponse is the payload for GET /users.
type UsersResponse struct {
	Usernames []string `json:"usernames"`
}

// SessionsResponse is the payload for GET /sessions: active sessions and
// those that ended within the history window, oldest first.
type SessionsResponse struct {
	Sessions []store.Entry `json:"sessions"`
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}
