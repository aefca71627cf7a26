// Package macro builds the combined macroeconomic series from the per-year
// indicator fetches.
package macro

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/fetch"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"go.uber.org/zap"
)

// Report is the combined series together with the fetch results it was
// built from.
type Report struct {
	StartYear int
	EndYear   int
	Cutoff    time.Time
	Combined  series.Combined
	Results   fetch.Results
}

// Failed returns the fetch tasks that produced no data.
func (r Report) Failed() []fetch.Result {
	return r.Results.Failed()
}

// GetCombinedSeries fetches every indicator from startYear through the current
// year and returns the combined series without the current month.
func GetCombinedSeries(ctx context.Context, logger *zap.Logger, runner *fetch.Runner, startYear int) (Report, error) {
	return GetCombinedSeriesWithFixedTime(ctx, logger, runner, startYear, time.Now())
}

// GetCombinedSeriesWithFixedTime is GetCombinedSeries with an injected clock.
// Rows at or after the first day of now's month are dropped. A start year
// after now's year fetches nothing and yields an empty combined series.
func GetCombinedSeriesWithFixedTime(ctx context.Context, logger *zap.Logger, runner *fetch.Runner, startYear int, now time.Time) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	endYear := now.Year()
	cutoff := datetime.MonthStart(now)
	if startYear > endYear {
		logger.Warn(fmt.Sprintf("start year %d is after the current year %d; no data to fetch", startYear, endYear),
			zap.String("op", "macro.GetCombinedSeries"),
		)
		return Report{StartYear: startYear, EndYear: endYear, Cutoff: cutoff}, nil
	}
	years := datetime.YearRange(startYear, endYear)

	logger.Info("building combined series",
		zap.String("op", "macro.GetCombinedSeries"),
		zap.Int("start_year", startYear),
		zap.Int("end_year", endYear),
	)

	results, err := runner.Run(ctx, years)
	if err != nil {
		return Report{}, fmt.Errorf("fetching indicators: %w", err)
	}

	parts := make([]series.Series, 0, len(runner.Indicators()))
	for _, ind := range runner.Indicators() {
		s := results.Series(ind, years)
		logger.Debug(fmt.Sprintf("collected %d observations for %s", s.Len(), ind),
			zap.String("op", "macro.GetCombinedSeries"),
		)
		parts = append(parts, s)
	}

	combined := series.Combine(parts...).Before(cutoff)

	report := Report{
		StartYear: startYear,
		EndYear:   endYear,
		Cutoff:    cutoff,
		Combined:  combined,
		Results:   results,
	}
	if failed := report.Failed(); len(failed) > 0 {
		logger.Warn(fmt.Sprintf("%d fetch tasks failed; their periods have missing values", len(failed)),
			zap.String("op", "macro.GetCombinedSeries"),
		)
	}
	return report, nil
}
