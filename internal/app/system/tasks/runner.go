// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job outcomes reported to metrics.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// Job is a periodic background task. It runs once when the runner starts
// and then every Interval until the runner stops.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero means the run is bounded only by
	// the runner's lifetime.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Runner drives registered jobs on their own goroutines.
type Runner struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	jobs    []Job
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	mu     sync.Mutex
	active map[string]int // in-flight runs per job name
}

// New creates a runner. m may be nil.
func New(logger *zap.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		logger:  logger,
		metrics: m,
		active:  make(map[string]int),
	}
}

// Register adds a job. Jobs registered after Start are not scheduled.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start schedules every registered job.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.logger.Info("background task runner started", zap.Int("job_count", len(r.jobs)))
}

// Stop cancels all jobs and waits for them to return. When ctx ends first
// the jobs still in flight are logged and ctx.Err() is returned.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", r.Active()))
		return ctx.Err()
	}
}

// Active returns the sorted names of jobs currently executing.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.active))
	for name := range r.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.execute(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.execute(ctx, job)
		}
	}
}

func (r *Runner) track(name string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[name] += delta; r.active[name] <= 0 {
		delete(r.active, name)
	}
}

func (r *Runner) execute(ctx context.Context, job Job) {
	r.track(job.Name, 1)
	defer r.track(job.Name, -1)

	log := r.logger.With(zap.String("job", job.Name))
	start := time.Now()
	err := run(ctx, job)
	elapsed := zap.Duration("duration", time.Since(start))

	switch {
	case err == nil:
		r.metrics.TaskRun(job.Name, outcomeOK)
		log.Debug("job completed", elapsed)
	case ctx.Err() != nil:
		// shutdown, not a failure
		r.metrics.TaskRun(job.Name, outcomeCancelled)
		log.Debug("job cancelled", elapsed)
	default:
		r.metrics.TaskRun(job.Name, outcomeError)
		log.Error("job failed", elapsed, zap.Error(err))
	}
}

// RunOnce runs the named job synchronously, outside the schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return run(ctx, job)
		}
	}
	return ErrUnknownJob
}

func run(ctx context.Context, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}
