// Package metrics defines the relay's Prometheus instruments.
//
// New registers every collector on the given prometheus.Registerer. All
// recorder methods are safe on a nil *Metrics, so packages that do not care
// about metrics (tests, mostly) can pass nil.
//
// Exposed families, all under the "chatrelay" namespace:
//
//	chatrelay_sessions_active                gauge
//	chatrelay_sessions_total                 counter
//	chatrelay_session_duration_seconds       histogram
//	chatrelay_broadcasts_total{event}        counter
//	chatrelay_deliveries_enqueued_total      counter
//	chatrelay_send_errors_total              counter
//	chatrelay_frames_dropped_total{reason}   counter
package metrics
