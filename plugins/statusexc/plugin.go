// Package statusexc is a test plugin whose status handler always fails. It
// exercises the host's handling of errors raised from status handlers.
package statusexc

import (
	"errors"

	"github.com/srediag/plugin-status/api"
)

const (
	// LogLine is written through the host before the handler fails.
	LogLine = "handling status"
	// Message is the text of the error every status query returns.
	Message = "exception in status"
)

// ErrStatus is returned by every invocation of the status handler.
var ErrStatus = errors.New(Message)

// Plugin registers a status handler that logs and then fails.
type Plugin struct {
	api.Base
}

// New constructs a statusexc plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "statusexc" }

// Load registers the failing status handler with h.
func (Plugin) Load(h api.Host) error {
	h.SetStatusHandler(func() (any, error) {
		return handleStatus(h)
	})
	return nil
}

func handleStatus(h api.Host) (any, error) {
	h.Log(LogLine)
	return nil, ErrStatus
}
