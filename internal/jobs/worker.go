package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = time.Second

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	// Name is used in log lines
	Name string
	// PollInterval is the time between two dequeues (default: 1s)
	PollInterval time.Duration
}

// Worker is the sole consumer of a Queue. Each tick it dequeues at most one
// job and runs it in its own goroutine, so a slow handler never delays the
// next tick.
type Worker struct {
	config    WorkerConfig
	queue     *Queue
	log       *zap.Logger
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	mu        sync.Mutex
	inflight  sync.WaitGroup
}

func NewWorker(queue *Queue, config WorkerConfig, log *zap.Logger) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Name == "" {
		config.Name = "jobqueue"
	}
	return &Worker{
		config: config,
		queue:  queue,
		log:    log.Named("worker").With(zap.String("worker", config.Name)),
	}
}

// Start begins the polling loop
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})

	w.log.Info("worker starting", zap.Duration("poll_interval", w.config.PollInterval))

	go w.run(ctx, w.stopCh, w.stoppedCh)
	return nil
}

// Stop ends the polling loop and waits for in-flight jobs or ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	stopped := w.stoppedCh
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-stopped
		w.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.log.Warn("worker stop timeout, in-flight jobs abandoned")
		return ctx.Err()
	}
}

func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) run(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := w.queue.Clock().NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	job, err := w.queue.Dequeue(ctx)
	if err != nil {
		w.log.Warn("dequeue failed", zap.Error(err))
		return
	}
	if job == nil {
		return
	}

	// Jobs have no cancellation primitive; shutdown waits for them instead.
	execCtx := context.WithoutCancel(ctx)
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		w.queue.Execute(execCtx, job)
	}()
}
