package status

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/srediag/plugin-status/api"
)

type SlotTestSuite struct {
	suite.Suite
	slot *Slot
}

func (s *SlotTestSuite) SetupTest() {
	s.slot = &Slot{}
}

func (s *SlotTestSuite) TestEmptySlot() {
	s.Nil(s.slot.Get())
	_, err := Invoke(context.Background(), s.slot.Get())
	se, ok := AsError(err)
	s.Require().True(ok)
	s.Equal(CodeNoHandler, se.Code)
	s.ErrorIs(err, ErrNoStatusHandler)
}

func (s *SlotTestSuite) TestReplaceLastWriteWins() {
	first := func() (any, error) { return "first", nil }
	second := func() (any, error) { return "second", nil }

	s.Nil(s.slot.Replace(first))
	prev := s.slot.Replace(second)
	s.Require().NotNil(prev)

	got, err := prev()
	s.NoError(err)
	s.Equal("first", got)

	res, err := Invoke(context.Background(), s.slot.Get())
	s.NoError(err)
	s.Equal("second", res)
}

func (s *SlotTestSuite) TestReset() {
	s.slot.Replace(func() (any, error) { return nil, nil })
	s.slot.Reset()
	s.Nil(s.slot.Get())
}

func TestSlotTestSuite(t *testing.T) {
	suite.Run(t, new(SlotTestSuite))
}

func TestInvokeHandlerFailure(t *testing.T) {
	cause := errors.New("exception in status")
	_, err := Invoke(context.Background(), func() (any, error) { return nil, cause })
	require.Error(t, err)

	se, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeHandlerFailure, se.Code)
	assert.Equal(t, "exception in status", se.Message)
	assert.Equal(t, "status_handler_failure: exception in status", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestInvokeRecoversPanic(t *testing.T) {
	_, err := Invoke(context.Background(), func() (any, error) { panic("boom") })
	se, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeHandlerPanic, se.Code)
	assert.Equal(t, "boom", se.Message)
}

func TestInvokeHandlerGoexit(t *testing.T) {
	_, err := Invoke(context.Background(), func() (any, error) {
		runtime.Goexit()
		return nil, nil
	})
	se, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeHandlerFailure, se.Code)
	assert.ErrorIs(t, err, ErrHandlerExited)
}

func TestInvokeTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Invoke(ctx, func() (any, error) {
		<-release
		return nil, nil
	})
	se, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeHandlerTimeout, se.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvokeCallsOncePerQuery(t *testing.T) {
	calls := 0
	h := api.StatusHandler(func() (any, error) {
		calls++
		return nil, errors.New("fail")
	})
	_, err := Invoke(context.Background(), h)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSlotConcurrentReplace(t *testing.T) {
	slot := &Slot{}
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slot.Replace(func() (any, error) { return i, nil })
			_ = slot.Get()
		}(i)
	}
	wg.Wait()
	assert.NotNil(t, slot.Get())
}
