package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingTask struct {
	runs int64
}

func (ct *countingTask) Run(ctx context.Context) {
	atomic.AddInt64(&ct.runs, 1)
}

func TestPeriodic(t *testing.T) {
	ctx := context.Background()

	task := &countingTask{}
	sch := &Scheduler{}
	if err := sch.ScheduleJob(ctx, NewPeriodicProcess("Test Task", task,
		time.Millisecond)); err != nil {
		t.Fatalf("Failed to schedule job : %v", err)
	}

	done := make(chan error)
	go func() {
		done <- sch.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt64(&task.runs) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Task never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := sch.Stop(ctx); err != nil {
		t.Fatalf("Failed to stop scheduler : %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run returned error : %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	task := &countingTask{}
	sch := &Scheduler{}
	if err := sch.ScheduleJob(ctx, NewPeriodicProcess("Flush", task,
		time.Hour)); err != nil {
		t.Fatalf("Failed to schedule job : %v", err)
	}

	// Cancellation matches on name, not pointer.
	probe := NewPeriodicProcess("Flush", nil, time.Hour)
	if err := sch.CancelJob(ctx, probe); err != nil {
		t.Fatalf("Failed to cancel job : %v", err)
	}

	if err := sch.CancelJob(ctx, probe); err != NotFound {
		t.Fatalf("Expected NotFound, got : %v", err)
	}
}
