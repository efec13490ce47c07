// Package status holds a plugin's status handler and invokes it on behalf of
// the host.
package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/srediag/plugin-status/api"
)

// Slot holds at most one status handler.
type Slot struct {
	mu      sync.RWMutex
	handler api.StatusHandler
}

// Replace installs h and returns the handler it displaced.
func (s *Slot) Replace(h api.StatusHandler) api.StatusHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.handler
	s.handler = h
	return prev
}

// Get returns the current handler, nil if none is registered.
func (s *Slot) Get() api.StatusHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Reset clears the slot.
func (s *Slot) Reset() {
	s.Replace(nil)
}

type outcome struct {
	result any
	err    error
}

// Invoke runs h once and translates its failure into an *Error. It never
// retries. If ctx ends first the handler goroutine is abandoned and a
// timeout error is returned.
func Invoke(ctx context.Context, h api.StatusHandler) (any, error) {
	if h == nil {
		return nil, newError(CodeNoHandler, ErrNoStatusHandler)
	}
	done := make(chan outcome, 1)
	go func() {
		returned := false
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: newError(CodeHandlerPanic, fmt.Errorf("%v", r))}
				return
			}
			// runtime.Goexit skips both the return and recover
			if !returned {
				done <- outcome{err: newError(CodeHandlerFailure, ErrHandlerExited)}
			}
		}()
		res, err := h()
		returned = true
		if err != nil {
			err = newError(CodeHandlerFailure, err)
		}
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, newError(CodeHandlerTimeout, ctx.Err())
	}
}
