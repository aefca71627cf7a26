// Package sii reads the monthly value tables published by Chile's Servicio
// de Impuestos Internos.
package sii

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/source"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/mathutil"
)

// ipcColumn is the position of the IPC value among the data cells of the
// UTM table: UTM, UTA, IPC, VPM, VPA, U12M.
const ipcColumn = 2

// IPCSource reads the IPC column of the yearly UTM/UTA page.
type IPCSource struct {
	client  *source.Client
	baseURL string
}

// NewIPCSource creates an IPC source. An empty baseURL selects the public site.
func NewIPCSource(client *source.Client, baseURL string) *IPCSource {
	return &IPCSource{client: client, baseURL: normalizeBaseURL(baseURL)}
}

// Indicator implements source.Source.
func (s *IPCSource) Indicator() series.Indicator {
	return series.IPC
}

// FetchYear implements source.Source.
func (s *IPCSource) FetchYear(ctx context.Context, year int) (series.Series, error) {
	pageURL := fmt.Sprintf("%s/utm/utm%d.htm", s.baseURL, year)
	doc, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return series.Empty(series.IPC), fmt.Errorf("ipc %d: %w", year, err)
	}
	result, err := parseIPC(doc, year)
	if err != nil {
		return series.Empty(series.IPC), fmt.Errorf("ipc %d: %w", year, err)
	}
	return result, nil
}

// parseIPC assigns the non-blank rows of the first table to consecutive
// months starting in January.
func parseIPC(doc *goquery.Document, year int) (series.Series, error) {
	table, err := source.FindOne(doc, "table")
	if err != nil {
		return series.Series{}, err
	}

	months := datetime.MonthsOfYear(year)
	var observations []series.Observation
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if len(observations) == len(months) {
			return
		}
		cells := source.CellTexts(row.Find("td"))
		if source.Blank(cells) {
			return
		}
		var value *float64
		if len(cells) > ipcColumn {
			value = mathutil.ParseCommaDecimal(cells[ipcColumn])
		}
		observations = append(observations, series.Observation{
			Period: months[len(observations)],
			Value:  value,
		})
	})

	if len(observations) == 0 {
		return series.Series{}, fmt.Errorf("%w: utm table has no monthly rows", source.ErrElementNotFound)
	}
	return series.New(series.IPC, observations)
}

func normalizeBaseURL(baseURL string) string {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = constants.DefaultSIIBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}
