// Package auth provides authentication middleware for the relay's admin
// HTTP listener.
//
// APIKey(header, key) returns chi-compatible middleware that validates the
// API key carried in the named request header. When key == "" every request
// passes through (local development with auth disabled). A missing or
// incorrect key is rejected with 401 and a JSON error body.
//
// The chat endpoint itself is never behind this middleware.
package auth
