// Package api defines public API contracts for plugin hosts and the plugins they load.
package api

// Lifecycle defines the interface for plugin lifecycle management.
type Lifecycle interface {
	StartPlugin(p Plugin) error
	StopPlugin(pluginID string) error
	ReloadPlugin(pluginID string) error
}

// State is the lifecycle state of a plugin known to the host.
type State string

const (
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
	StateStopped State = "stopped"
)
