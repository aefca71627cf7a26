package sii

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/source"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/mathutil"
)

// DollarSource reads the monthly averages of the observed dollar page.
type DollarSource struct {
	client  *source.Client
	baseURL string
}

// NewDollarSource creates a dollar source. An empty baseURL selects the public site.
func NewDollarSource(client *source.Client, baseURL string) *DollarSource {
	return &DollarSource{client: client, baseURL: normalizeBaseURL(baseURL)}
}

// Indicator implements source.Source.
func (s *DollarSource) Indicator() series.Indicator {
	return series.Dollar
}

// FetchYear implements source.Source.
func (s *DollarSource) FetchYear(ctx context.Context, year int) (series.Series, error) {
	pageURL := fmt.Sprintf("%s/dolar/dolar%d.htm", s.baseURL, year)
	doc, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return series.Empty(series.Dollar), fmt.Errorf("dolar %d: %w", year, err)
	}
	result, err := parseDollar(doc, year)
	if err != nil {
		return series.Empty(series.Dollar), fmt.Errorf("dolar %d: %w", year, err)
	}
	return result, nil
}

// parseDollar reads the last row of #table_export, which holds one monthly
// average per column. The page lists every month in its markup; the "all
// months" selector on the site only toggles visibility.
func parseDollar(doc *goquery.Document, year int) (series.Series, error) {
	table, err := source.FindOne(doc, "#table_export")
	if err != nil {
		return series.Series{}, err
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return series.Series{}, fmt.Errorf("%w: table_export has no data rows", source.ErrElementNotFound)
	}

	months := datetime.MonthsOfYear(year)
	cells := source.CellTexts(rows.Last().Find("td"))
	// A leading label cell ("Promedio") pushes the row past twelve cells.
	if len(cells) > len(months) {
		cells = cells[len(cells)-len(months):]
	}
	if len(cells) == 0 {
		return series.Series{}, fmt.Errorf("%w: table_export average row is empty", source.ErrElementNotFound)
	}

	observations := make([]series.Observation, 0, len(cells))
	for i, text := range cells {
		observations = append(observations, series.Observation{
			Period: months[i],
			Value:  mathutil.ParseHundredths(text),
		})
	}
	return series.New(series.Dollar, observations)
}
