package importer

import (
	"context"
	"time"
)

// Scheduler blocks between cycles. Wait returns ctx.Err() once ctx is cancelled.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(ctx context.Context) error

// Wait implements Scheduler.
func (f SchedulerFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

// Interval sleeps a fixed duration between cycles.
type Interval time.Duration

// Wait implements Scheduler.
func (d Interval) Wait(ctx context.Context) error {
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
