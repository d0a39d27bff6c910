package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func counter(n *int32, by int32) Job {
	return func(context.Context) error {
		atomic.AddInt32(n, by)
		return nil
	}
}

func TestAddTicker_Fires(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.AddTicker("tick", 20*time.Millisecond, counter(&count, 1))

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count1, count2 int32
	s.AddTicker("task", 20*time.Millisecond, counter(&count1, 1))
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("task", 20*time.Millisecond, counter(&count2, 1))
	time.Sleep(80 * time.Millisecond)

	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestAddDelay_ReplacesCancelsOld(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var count int32
	s.AddDelay("d", 500*time.Millisecond, counter(&count, 1))
	s.AddDelay("d", 30*time.Millisecond, counter(&count, 10))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
}

func TestRemove(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var ticks, delayed int32
	s.AddTicker("task", 20*time.Millisecond, counter(&ticks, 1))
	s.AddDelay("d", 100*time.Millisecond, counter(&delayed, 1))
	time.Sleep(50 * time.Millisecond)
	s.Remove("task")
	s.Remove("d")
	s.Remove("nope")
	snap := atomic.LoadInt32(&ticks)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&ticks), "ticker must stop after Remove")
	assert.Zero(t, atomic.LoadInt32(&delayed))
}

func TestStop_CancelsJobContext(t *testing.T) {
	s := New(zap.NewNop())
	done := make(chan struct{})
	s.AddTicker("wait", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		select {
		case <-done:
		default:
			close(done)
		}
		return ctx.Err()
	})
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}

func TestRunNow_RecordsStats(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	fail := errors.New("db down")
	s.AddTicker("rebuild", time.Hour, func(context.Context) error { return fail })
	s.AddTicker("alpha", time.Hour, func(context.Context) error { return nil })

	assert.ErrorIs(t, s.RunNow("rebuild"), fail)
	assert.Error(t, s.RunNow("missing"))

	infos := s.ListTickers()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "rebuild", infos[1].Name)
	assert.Equal(t, int64(1), infos[1].Runs)
	assert.Equal(t, "db down", infos[1].LastError)
	assert.Equal(t, time.Hour, infos[1].Interval)
}

func TestRunNow_RecoversPanic(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	s.AddTicker("panic", time.Hour, func(context.Context) error { panic("oops") })
	err := s.RunNow("panic")
	assert.ErrorContains(t, err, "oops")
}
