package scheduler

import (
	"context"
	"time"

	"github.com/rwaledger/pledge-core/internal/platform/logger"
)

// Task is the work a PeriodicProcess runs on each tick.
type Task interface {
	Run(context.Context)
}

// PeriodicProcess runs a task at a fixed frequency. The first run happens
// one full interval after scheduling.
type PeriodicProcess struct {
	name      string
	task      Task
	frequency time.Duration
	deadline  time.Time
}

func NewPeriodicProcess(name string, task Task, frequency time.Duration) *PeriodicProcess {
	return &PeriodicProcess{
		name:      name,
		task:      task,
		frequency: frequency,
		deadline:  time.Now().Add(frequency),
	}
}

// IsReady returns true when the next run is due.
func (pp *PeriodicProcess) IsReady(ctx context.Context) bool {
	return time.Now().After(pp.deadline)
}

// Run executes the task and schedules the run after it. The task sees a
// logger named for the process so its output can be traced to the job.
func (pp *PeriodicProcess) Run(ctx context.Context) {
	pp.deadline = time.Now().Add(pp.frequency)

	pp.task.Run(logger.ContextWithNamedLogger(ctx, pp.name))
}

// IsComplete always returns false. Periodic tasks run until canceled.
func (pp *PeriodicProcess) IsComplete(ctx context.Context) bool {
	return false
}

// Equal matches processes by name so a job can be canceled without holding
// the original pointer.
func (pp *PeriodicProcess) Equal(other Job) bool {
	pp2, ok := other.(*PeriodicProcess)
	if !ok {
		return false
	}
	return pp.name == pp2.name
}
