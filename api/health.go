// Package api defines public API contracts for plugin hosts and the plugins they load.
package api

import (
	"context"
	"time"
)

// Health defines the interface for plugin status and liveness.
type Health interface {
	Status(ctx context.Context, pluginID string) (*Report, error)
	LivenessCheck(pluginID string) (bool, error)
}

// Report is the host's view of one status query.
type Report struct {
	Plugin   string        `json:"plugin"`
	Healthy  bool          `json:"healthy"`
	Result   any           `json:"result,omitempty"`
	Error    *ReportError  `json:"error,omitempty"`
	Logs     []string      `json:"logs,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ReportError carries a failed status handler's diagnostic code and message.
type ReportError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
