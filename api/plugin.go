// Package api defines public API contracts for plugin hosts and the plugins they load.
package api

// StatusHandler is invoked by the host when a plugin's status is queried.
// A healthy handler may return a status document; any error is reported
// back to the caller of the status query unchanged.
type StatusHandler func() (any, error)

// Host is the capability set a plugin receives when it is loaded.
type Host interface {
	// Log appends a diagnostic line to the plugin's log stream.
	Log(message string)
	// SetStatusHandler registers h as the plugin's status handler,
	// replacing any handler registered before.
	SetStatusHandler(h StatusHandler)
}

// Plugin defines the interface for a plugin instance.
type Plugin interface {
	Name() string
	Load(h Host) error
	Unload() error
}

// Base can be embedded by plugins that need no unload logic.
type Base struct{}

func (Base) Unload() error { return nil }
