// Package series defines the monthly indicator series and the combined
// macroeconomic table built from them.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/iwvelando/vatt-indexation/pkg/datetime"
)

// Indicator names one of the fetched macroeconomic indicators.
type Indicator string

const (
	// IPC is the Chilean consumer price index published by the SII.
	IPC Indicator = "ipc"
	// Dollar is the monthly average USD/CLP observed exchange rate.
	Dollar Indicator = "dolar"
	// CPI is the US CPI-U all items index published by the BLS.
	CPI Indicator = "cpi"
)

// Indicators lists every indicator in the column order of the combined table.
var Indicators = []Indicator{IPC, Dollar, CPI}

// Observation is one monthly value. A nil Value means the source published
// the month but its value could not be read.
type Observation struct {
	Period time.Time
	Value  *float64
}

// Series is an ordered set of monthly observations for one indicator.
type Series struct {
	Indicator    Indicator
	Observations []Observation
}

// New builds a Series, normalizing periods to the first of the month and
// rejecting out-of-order or duplicate periods.
func New(indicator Indicator, observations []Observation) (Series, error) {
	s := Series{Indicator: indicator, Observations: make([]Observation, 0, len(observations))}
	for i, obs := range observations {
		obs.Period = datetime.MonthStart(obs.Period)
		if i > 0 {
			prev := s.Observations[i-1].Period
			if !prev.Before(obs.Period) {
				return Series{}, fmt.Errorf("%s series: period %s does not follow %s",
					indicator, datetime.FormatPeriod(obs.Period), datetime.FormatPeriod(prev))
			}
		}
		s.Observations = append(s.Observations, obs)
	}
	return s, nil
}

// Empty returns a series with no observations.
func Empty(indicator Indicator) Series {
	return Series{Indicator: indicator}
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Observations)
}

// Complete reports whether the series holds a value for every month of year.
func (s Series) Complete(year int) bool {
	months := datetime.MonthsOfYear(year)
	if len(s.Observations) != len(months) {
		return false
	}
	for i, obs := range s.Observations {
		if obs.Value == nil || !obs.Period.Equal(months[i]) {
			return false
		}
	}
	return true
}

// Concat appends the observations of parts in order, dropping any period
// already present. Parts are expected to cover disjoint, ascending years.
func Concat(indicator Indicator, parts ...Series) Series {
	out := Series{Indicator: indicator}
	seen := make(map[time.Time]struct{})
	for _, part := range parts {
		for _, obs := range part.Observations {
			if _, dup := seen[obs.Period]; dup {
				continue
			}
			seen[obs.Period] = struct{}{}
			out.Observations = append(out.Observations, obs)
		}
	}
	sort.SliceStable(out.Observations, func(i, j int) bool {
		return out.Observations[i].Period.Before(out.Observations[j].Period)
	})
	return out
}

// Row is one period of the combined table.
type Row struct {
	Period time.Time
	IPC    *float64
	Dollar *float64
	CPI    *float64
}

// Value returns the column of the row for the given indicator.
func (r Row) Value(indicator Indicator) *float64 {
	switch indicator {
	case IPC:
		return r.IPC
	case Dollar:
		return r.Dollar
	case CPI:
		return r.CPI
	}
	return nil
}

func (r *Row) set(indicator Indicator, value *float64) {
	switch indicator {
	case IPC:
		r.IPC = value
	case Dollar:
		r.Dollar = value
	case CPI:
		r.CPI = value
	}
}

// Combined is the outer-joined table of all indicators, ascending by period.
type Combined struct {
	Rows []Row
}

// Combine performs a full outer join of the given series on period. A period
// missing from one series keeps a nil value in that indicator's column.
func Combine(parts ...Series) Combined {
	byPeriod := make(map[time.Time]*Row)
	for _, part := range parts {
		for _, obs := range part.Observations {
			row, ok := byPeriod[obs.Period]
			if !ok {
				row = &Row{Period: obs.Period}
				byPeriod[obs.Period] = row
			}
			row.set(part.Indicator, obs.Value)
		}
	}

	rows := make([]Row, 0, len(byPeriod))
	for _, row := range byPeriod {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Period.Before(rows[j].Period)
	})
	return Combined{Rows: rows}
}

// Before returns the rows whose period is strictly before cutoff.
func (c Combined) Before(cutoff time.Time) Combined {
	rows := make([]Row, 0, len(c.Rows))
	for _, row := range c.Rows {
		if row.Period.Before(cutoff) {
			rows = append(rows, row)
		}
	}
	return Combined{Rows: rows}
}

// Lookup returns the row for the exact period, if present.
func (c Combined) Lookup(period time.Time) (Row, bool) {
	period = datetime.MonthStart(period)
	i := sort.Search(len(c.Rows), func(i int) bool {
		return !c.Rows[i].Period.Before(period)
	})
	if i < len(c.Rows) && c.Rows[i].Period.Equal(period) {
		return c.Rows[i], true
	}
	return Row{}, false
}

// Len returns the number of rows.
func (c Combined) Len() int {
	return len(c.Rows)
}
