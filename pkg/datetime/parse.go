// Package datetime provides monthly period utility functions.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/vatt-indexation/pkg/constants"
)

const (
	// DateTimeLayout is the output format of a monthly period.
	DateTimeLayout = constants.DateTimeLayout

	// SettlementLayout is the YYYYMM format accepted for settlement periods.
	SettlementLayout = constants.SettlementLayout
)

// Month returns the monthly period for the given year and month.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// MonthStart truncates t to 00:00 UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	return Month(t.Year(), t.Month())
}

// MonthsOfYear returns the twelve monthly periods of a year in calendar order.
func MonthsOfYear(year int) []time.Time {
	months := make([]time.Time, 0, constants.MonthsPerYear)
	for m := time.January; m <= time.December; m++ {
		months = append(months, Month(year, m))
	}
	return months
}

// YearRange returns every year from start through end inclusive. An empty
// slice is returned when start is after end.
func YearRange(start, end int) []int {
	if start > end {
		return nil
	}
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years
}

// ParseSettlement parses a YYYYMM settlement period into its monthly period.
func ParseSettlement(settlement string) (time.Time, error) {
	if len(settlement) != len(SettlementLayout) {
		return time.Time{}, fmt.Errorf("settlement period %q must use the YYYYMM format", settlement)
	}
	t, err := time.Parse(SettlementLayout, settlement)
	if err != nil {
		return time.Time{}, fmt.Errorf("settlement period %q must use the YYYYMM format: %w", settlement, err)
	}
	return MonthStart(t), nil
}

// ReferencePeriod steps back lookbackMonths from the settlement period,
// wrapping into the previous year when needed.
func ReferencePeriod(settlement time.Time, lookbackMonths int) time.Time {
	return MonthStart(settlement).AddDate(0, -lookbackMonths, 0)
}

// FormatPeriod renders a monthly period as YYYY-MM.
func FormatPeriod(t time.Time) string {
	return t.Format(DateTimeLayout)
}
