// Package api defines public API contracts for plugin hosts and the plugins they load.
package api

import "time"

// Audit defines the interface for the append-only plugin log stream.
type Audit interface {
	Append(pluginID, message string) LogEntry
	Entries(pluginID string) []LogEntry
}

// LogEntry is one line a plugin wrote through Host.Log.
type LogEntry struct {
	Plugin  string    `json:"plugin"`
	Seq     uint64    `json:"seq"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
