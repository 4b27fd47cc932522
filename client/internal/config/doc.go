// Package config loads the chat client configuration file.
//
// Top-level type Config{Chat} with:
//   - URL        — relay WebSocket endpoint (default ws://127.0.0.1:8080/chat)
//   - Username   — display name (default "test"); empty omits the query parameter
//   - Reconnect  — initial / max backoff between reconnect attempts (1s / 30s)
//   - AdminURL   — base URL of the relay admin API, used by "chatrelay stats"
//   - AdminKeyEnv / AdminKeyHeader — admin API key, resolved from the named
//     env var and sent in the named header (default X-API-Key)
//
// Load(path) reads the YAML file, applies defaults, then validates URL
// schemes and backoff bounds. Command-line flags override loaded values.
package config
