// Package store defines the fetch cache used to resume (indicator, year)
// fetch tasks across runs.
package store

import (
	"context"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/series"
)

// Task statuses recorded for every fetch task.
const (
	StatusFetched = "fetched"
	StatusCached  = "cached"
	StatusFailed  = "failed"
)

// Store persists complete yearly series and the outcome of each fetch task.
type Store interface {
	LoadSeries(ctx context.Context, indicator series.Indicator, year int) (series.Series, bool, error)
	SaveSeries(ctx context.Context, s series.Series, year int, runID string) error
	RecordTask(ctx context.Context, record TaskRecord) error
	ListTasks(ctx context.Context, runID string) ([]TaskRecord, error)
	Close() error
}

// TaskRecord is the outcome of one fetch task in one run.
type TaskRecord struct {
	RunID      string
	Indicator  series.Indicator
	Year       int
	Status     string
	Attempts   int
	Error      string
	FinishedAt time.Time
}

// CountByStatus counts task records per status.
func CountByStatus(records []TaskRecord) map[string]int {
	counts := make(map[string]int, 3)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

// NopStore caches nothing, so every run fetches every task.
type NopStore struct{}

func (s *NopStore) LoadSeries(ctx context.Context, indicator series.Indicator, year int) (series.Series, bool, error) {
	return series.Series{}, false, nil
}

func (s *NopStore) SaveSeries(ctx context.Context, sr series.Series, year int, runID string) error {
	return nil
}

func (s *NopStore) RecordTask(ctx context.Context, record TaskRecord) error {
	return nil
}

func (s *NopStore) ListTasks(ctx context.Context, runID string) ([]TaskRecord, error) {
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}
