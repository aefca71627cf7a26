// Package testutil provides common utility functions for testing.
package testutil

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
)

// YearSeries builds a series for year with one observation per value,
// starting in January. A nil entry is a missing value.
func YearSeries(indicator series.Indicator, year int, values ...*float64) series.Series {
	months := datetime.MonthsOfYear(year)
	observations := make([]series.Observation, 0, len(values))
	for i, v := range values {
		if i >= len(months) {
			break
		}
		observations = append(observations, series.Observation{Period: months[i], Value: v})
	}
	s, err := series.New(indicator, observations)
	if err != nil {
		panic(err)
	}
	return s
}

// FullYear builds a complete 12-month series where month m holds base+m-1.
func FullYear(indicator series.Indicator, year int, base float64) series.Series {
	values := make([]*float64, 12)
	for i := range values {
		v := base + float64(i)
		values[i] = &v
	}
	return YearSeries(indicator, year, values...)
}

// WithinTolerance reports whether two values differ by at most tolerance.
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// FindRow returns the combined row for year and month, or nil.
func FindRow(c series.Combined, year int, month time.Month) *series.Row {
	row, ok := c.Lookup(datetime.Month(year, month))
	if !ok {
		return nil
	}
	return &row
}

// FakeSource is a scripted source.Source. Years maps a year to its series,
// Errors maps a year to the errors returned on successive calls; once the
// errors for a year are used up the series is returned.
type FakeSource struct {
	Ind    series.Indicator
	Years  map[int]series.Series
	Errors map[int][]error

	mu    sync.Mutex
	calls map[int]int
}

// Indicator returns the indicator the fake serves.
func (f *FakeSource) Indicator() series.Indicator {
	return f.Ind
}

// FetchYear returns the scripted outcome for year.
func (f *FakeSource) FetchYear(ctx context.Context, year int) (series.Series, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[int]int)
	}
	call := f.calls[year]
	f.calls[year]++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return series.Series{}, err
	}
	if errs := f.Errors[year]; call < len(errs) {
		return series.Series{}, errs[call]
	}
	if s, ok := f.Years[year]; ok {
		return s, nil
	}
	return series.Empty(f.Ind), nil
}

// Calls returns how many times year was fetched.
func (f *FakeSource) Calls(year int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[year]
}

// TotalCalls returns the number of fetches across all years.
func (f *FakeSource) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}
