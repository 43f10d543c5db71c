package submission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is a side effect whose failure must not fail the order.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Report struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// BestEffort runs tasks concurrently, each under its own timeout, and logs
// the ones that fail.
type BestEffort struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewBestEffort(timeout time.Duration, logger *zap.Logger) *BestEffort {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{timeout: timeout, logger: logger}
}

func (b *BestEffort) Run(ctx context.Context, tasks ...Task) Report {
	errs := make([]error, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			errs[i] = runTask(taskCtx, task)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Succeeded: make([]string, 0, len(tasks))}
	for i, task := range tasks {
		if errs[i] == nil {
			report.Succeeded = append(report.Succeeded, task.Name)
			continue
		}
		if report.Failed == nil {
			report.Failed = make(map[string]string)
		}
		report.Failed[task.Name] = errs[i].Error()
		b.logger.Warn("order side effect failed", zap.String("task", task.Name), zap.Error(errs[i]))
	}
	return report
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if task.Run == nil {
		return nil
	}
	return task.Run(ctx)
}
