// Package fetch runs one fetch task per (indicator, year) pair and collects
// the results in a task-keyed map.
package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/metrics"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/source"
	"github.com/iwvelando/vatt-indexation/internal/store"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task identifies one indicator-year fetch.
type Task struct {
	Indicator series.Indicator
	Year      int
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%d", t.Indicator, t.Year)
}

// Result is the outcome of a task. A failed task carries an empty series and
// the last error.
type Result struct {
	Task     Task
	Series   series.Series
	Err      error
	Attempts int
	Cached   bool
}

// Results maps every task of a run to its outcome.
type Results map[Task]Result

// Series concatenates an indicator's per-year results in year order.
// Failed or absent years contribute nothing.
func (rs Results) Series(indicator series.Indicator, years []int) series.Series {
	parts := make([]series.Series, 0, len(years))
	for _, y := range years {
		if res, ok := rs[Task{Indicator: indicator, Year: y}]; ok {
			parts = append(parts, res.Series)
		}
	}
	return series.Concat(indicator, parts...)
}

// Failed returns the failed results ordered by indicator and year.
func (rs Results) Failed() []Result {
	var failed []Result
	for _, res := range rs {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		if failed[i].Task.Indicator != failed[j].Task.Indicator {
			return failed[i].Task.Indicator < failed[j].Task.Indicator
		}
		return failed[i].Task.Year < failed[j].Task.Year
	})
	return failed
}

func (res Result) status() string {
	switch {
	case res.Err != nil:
		return store.StatusFailed
	case res.Cached:
		return store.StatusCached
	default:
		return store.StatusFetched
	}
}

// Options tunes the runner.
type Options struct {
	// Workers bounds how many tasks run at once; 1 runs them sequentially.
	Workers int
	// Attempts is the number of tries per task; 1 disables retries.
	Attempts      int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// RunID tags cache writes and task records.
	RunID string
	// Now decides which years are complete enough to cache.
	Now func() time.Time
	// Metrics counts task outcomes; nil records nothing.
	Metrics *metrics.Recorder
}

// Runner executes fetch tasks against a set of sources.
type Runner struct {
	logger  *zap.Logger
	store   store.Store
	opts    Options
	order   []series.Indicator
	sources map[series.Indicator]source.Source
}

// NewRunner creates a runner over the given sources, one per indicator. A nil
// logger or store is replaced by a no-op implementation.
func NewRunner(logger *zap.Logger, st store.Store, opts Options, sources ...source.Source) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if st == nil {
		st = &store.NopStore{}
	}
	if opts.Workers <= 0 {
		opts.Workers = constants.DefaultWorkers
	}
	if opts.Attempts <= 0 {
		opts.Attempts = constants.DefaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = constants.DefaultRetryDelayMs * time.Millisecond
	}
	if opts.MaxRetryDelay < opts.RetryDelay {
		opts.MaxRetryDelay = opts.RetryDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Runner{
		logger:  logger,
		store:   st,
		opts:    opts,
		sources: make(map[series.Indicator]source.Source, len(sources)),
	}
	for _, src := range sources {
		if _, dup := r.sources[src.Indicator()]; !dup {
			r.order = append(r.order, src.Indicator())
		}
		r.sources[src.Indicator()] = src
	}
	return r
}

// Indicators returns the indicators the runner has sources for.
func (r *Runner) Indicators() []series.Indicator {
	return append([]series.Indicator(nil), r.order...)
}

// Tasks lists the tasks for years, grouped by indicator in source order.
func (r *Runner) Tasks(years []int) []Task {
	tasks := make([]Task, 0, len(r.order)*len(years))
	for _, ind := range r.order {
		for _, y := range years {
			tasks = append(tasks, Task{Indicator: ind, Year: y})
		}
	}
	return tasks
}

// Run executes every task for years. Task failures are logged and kept in
// the results; the returned error is only set when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, years []int) (Results, error) {
	tasks := r.Tasks(years)
	results := make(Results, len(tasks))
	var mu sync.Mutex

	r.logger.Info("running fetch tasks",
		zap.String("op", "fetch.Runner.Run"),
		zap.String("run_id", r.opts.RunID),
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", r.opts.Workers),
	)

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			start := time.Now()
			res := r.runTask(ctx, task)
			r.opts.Metrics.ObserveTask(string(task.Indicator), res.status(), res.Attempts, time.Since(start))
			mu.Lock()
			results[task] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}

	failed := results.Failed()
	r.logger.Info("fetch tasks finished",
		zap.String("op", "fetch.Runner.Run"),
		zap.String("run_id", r.opts.RunID),
		zap.Int("tasks", len(tasks)),
		zap.Int("failed", len(failed)),
	)
	return results, nil
}

func (r *Runner) runTask(ctx context.Context, task Task) Result {
	cacheable := task.Year < r.opts.Now().Year()
	if cacheable {
		cached, found, err := r.store.LoadSeries(ctx, task.Indicator, task.Year)
		if err != nil {
			r.logger.Warn("fetch cache read failed",
				zap.String("op", "fetch.Runner.runTask"),
				zap.String("task", task.String()),
				zap.Error(err),
			)
		} else if found {
			r.logger.Debug("fetch task served from cache",
				zap.String("op", "fetch.Runner.runTask"),
				zap.String("task", task.String()),
			)
			r.record(ctx, task, store.StatusCached, 0, nil)
			return Result{Task: task, Series: cached, Cached: true}
		}
	}

	src := r.sources[task.Indicator]
	delay := r.opts.RetryDelay
	var fetched series.Series
	var err error
	attempts := 0
	for attempts < r.opts.Attempts {
		attempts++
		fetched, err = src.FetchYear(ctx, task.Year)
		if err == nil || ctx.Err() != nil || attempts == r.opts.Attempts {
			break
		}
		r.logger.Debug("retrying fetch task",
			zap.String("op", "fetch.Runner.runTask"),
			zap.String("task", task.String()),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		delay *= 2
		if delay > r.opts.MaxRetryDelay {
			delay = r.opts.MaxRetryDelay
		}
	}

	if err != nil {
		r.logger.Warn("fetch task failed",
			zap.String("op", "fetch.Runner.runTask"),
			zap.String("indicator", string(task.Indicator)),
			zap.Int("year", task.Year),
			zap.Int("attempts", attempts),
			zap.String("kind", source.Kind(err)),
			zap.Error(err),
		)
		r.record(ctx, task, store.StatusFailed, attempts, err)
		return Result{Task: task, Series: series.Empty(task.Indicator), Err: err, Attempts: attempts}
	}

	if cacheable && fetched.Complete(task.Year) {
		if err := r.store.SaveSeries(ctx, fetched, task.Year, r.opts.RunID); err != nil {
			r.logger.Warn("fetch cache write failed",
				zap.String("op", "fetch.Runner.runTask"),
				zap.String("task", task.String()),
				zap.Error(err),
			)
		}
	}
	r.record(ctx, task, store.StatusFetched, attempts, nil)
	return Result{Task: task, Series: fetched, Attempts: attempts}
}

func (r *Runner) record(ctx context.Context, task Task, status string, attempts int, taskErr error) {
	rec := store.TaskRecord{
		RunID:      r.opts.RunID,
		Indicator:  task.Indicator,
		Year:       task.Year,
		Status:     status,
		Attempts:   attempts,
		FinishedAt: r.opts.Now(),
	}
	if taskErr != nil {
		rec.Error = taskErr.Error()
	}
	if err := r.store.RecordTask(ctx, rec); err != nil {
		r.logger.Warn("recording fetch task failed",
			zap.String("op", "fetch.Runner.record"),
			zap.String("task", task.String()),
			zap.Error(err),
		)
	}
}
