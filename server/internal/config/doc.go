// Package config loads the relay server configuration from a YAML file.
//
// Config fields:
//   - Relay.Host            — listen host for the chat endpoint (default 127.0.0.1)
//   - Relay.Port            — listen port for the chat endpoint (default 8080)
//   - Relay.Path            — WebSocket upgrade path (default /chat)
//   - Relay.DefaultUsername — name used when ?username= is absent (default "test")
//   - Log.Level             — debug | info | warn | error (default info)
//   - Log.Format            — json | text (default json)
//   - Admin.HTTPPort        — /healthz, /users, /sessions, /metrics listener; 0 disables (default 0)
//   - Admin.GRPCPort        — gRPC health service listener; 0 disables (default 0)
//   - Admin.APIKeyEnv       — env var holding the admin API key; empty leaves admin routes open
//   - Admin.APIKeyHeader    — header carrying the key (default X-API-Key)
//   - Admin.SessionHistory  — how long ended sessions stay in /sessions (default 5m)
//
// Load(path) applies defaults before unmarshalling, then validates. Default()
// returns the same defaults for running without a file.
//
// Watch(ctx, path, onChange) reloads the file on every write. Only the log
// level is meant to be applied live; everything else needs a restart.
package config
