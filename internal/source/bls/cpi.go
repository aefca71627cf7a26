// Package bls reads the CPI-U table from the US Bureau of Labor Statistics
// "most requested series" form.
package bls

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/source"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/mathutil"
)

const (
	yearHeader   = "Year"
	monthLayout  = "Jan"
	surveyCPI    = "cu"
	resultsTable = "#table0"
)

// Config selects the form endpoint and the series to request.
type Config struct {
	FormURL  string
	SeriesID string
}

// CPISource submits the survey form for one series and reads a year's row
// from the resulting table.
type CPISource struct {
	client *source.Client
	config Config
}

// NewCPISource creates a CPI source, filling unset fields with defaults.
func NewCPISource(client *source.Client, cfg Config) *CPISource {
	if strings.TrimSpace(cfg.FormURL) == "" {
		cfg.FormURL = constants.DefaultBLSFormURL
	}
	if strings.TrimSpace(cfg.SeriesID) == "" {
		cfg.SeriesID = constants.DefaultBLSSeriesID
	}
	return &CPISource{client: client, config: cfg}
}

// Indicator implements source.Source.
func (s *CPISource) Indicator() series.Indicator {
	return series.CPI
}

// FetchYear implements source.Source.
func (s *CPISource) FetchYear(ctx context.Context, year int) (series.Series, error) {
	form := url.Values{}
	form.Set("series_id", s.config.SeriesID)
	form.Set("survey", surveyCPI)

	doc, err := s.client.PostForm(ctx, s.config.FormURL, form)
	if err != nil {
		return series.Empty(series.CPI), fmt.Errorf("cpi %d: %w", year, err)
	}
	result, err := parseCPI(doc, year)
	if err != nil {
		return series.Empty(series.CPI), fmt.Errorf("cpi %d: %w", year, err)
	}
	return result, nil
}

// parseCPI reads the row of the requested year. Columns are named by the
// header row; anything that is not a month abbreviation (HALF1, HALF2,
// Annual) is ignored.
func parseCPI(doc *goquery.Document, year int) (series.Series, error) {
	table, err := source.FindOne(doc, resultsTable)
	if err != nil {
		return series.Series{}, err
	}

	var header []string
	var row []string
	wantYear := strconv.Itoa(year)
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := source.CellTexts(tr.Find("th, td"))
		if source.Blank(cells) {
			return true
		}
		if header == nil {
			header = cells
			return true
		}
		col := indexOf(header, yearHeader)
		if col >= 0 && col < len(cells) && cells[col] == wantYear {
			row = cells
			return false
		}
		return true
	})

	if header == nil || indexOf(header, yearHeader) < 0 {
		return series.Series{}, fmt.Errorf("%w: %s has no Year header", source.ErrElementNotFound, resultsTable)
	}
	if row == nil {
		return series.Series{}, fmt.Errorf("%w: %s has no row for %s", source.ErrElementNotFound, resultsTable, wantYear)
	}

	var observations []series.Observation
	for i, name := range header {
		if i >= len(row) {
			break
		}
		m, err := time.Parse(monthLayout, name)
		if err != nil {
			continue
		}
		observations = append(observations, series.Observation{
			Period: datetime.Month(year, m.Month()),
			Value:  mathutil.ParseDecimal(row[i]),
		})
	}
	return series.New(series.CPI, observations)
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if strings.EqualFold(v, want) {
			return i
		}
	}
	return -1
}
