package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSchedulerImmediateTick(t *testing.T) {
	var ticks atomic.Int32
	sched := New(Options{Interval: 10 * time.Millisecond, Immediate: true}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	err := sched.Run(ctx, func(context.Context, time.Time) error {
		ticks.Add(1)
		return nil
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("取消后应返回 context 错误: %v", err)
	}
	if ticks.Load() < 2 {
		t.Fatalf("immediate 模式应至少触发 2 次, 实际 %d", ticks.Load())
	}
}

func TestSchedulerTickErrorsDoNotStopLoop(t *testing.T) {
	var ticks atomic.Int32
	sched := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_ = sched.Run(ctx, func(context.Context, time.Time) error {
		ticks.Add(1)
		return errors.New("boom")
	})

	if ticks.Load() < 2 {
		t.Fatalf("tick 出错后循环应继续, 实际 %d 次", ticks.Load())
	}
}
