package job

import (
	"context"
	"sync"
	"time"
)

// Task は定期実行される単一のコールバック。
type Task func(ctx context.Context)

// Runner はTaskを一定間隔で実行する。
// 実行は1本のgoroutineで直列に行うので同じタスクが重なって走ることはない。
type Runner struct {
	mu       sync.Mutex
	interval time.Duration
	task     Task
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewRunner(interval time.Duration, task Task) *Runner {
	return &Runner{
		interval: interval,
		task:     task,
	}
}

// Start は起動時に1回実行してからループに入る。
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)

		r.task(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.task(ctx)
			}
		}
	}()
}

// Stop は実行中のタスクの終了を待ってから戻る。
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
