// Package stats reads the relay's Prometheus exposition from the admin
// listener and reduces the chatrelay_* families to a Summary for display.
package stats
