// Package source fetches monthly indicator values from public web pages.
//
// Each indicator has one Source implementation with a single operation,
// FetchYear. Page-specific extraction lives in the sii and bls subpackages;
// callers only depend on the Source interface, so a page can be replaced by
// a data API without touching the combiner or the calculator.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iwvelando/vatt-indexation/internal/series"
)

// Source fetches the monthly values of one indicator for one calendar year.
type Source interface {
	Indicator() series.Indicator
	FetchYear(ctx context.Context, year int) (series.Series, error)
}

var (
	// ErrElementNotFound means the page loaded but the expected table or row
	// was not there, usually because the page layout changed.
	ErrElementNotFound = errors.New("expected element not found")

	// ErrTransport means the page could not be retrieved at all.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout means the page did not respond within the configured timeout.
	ErrTimeout = errors.New("timed out")
)

// Kind classifies a fetch error for logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrElementNotFound):
		return "element_not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unexpected"
	}
}

// FindOne returns the first element matching selector or ErrElementNotFound.
func FindOne(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: no element matches %q", ErrElementNotFound, selector)
	}
	return sel, nil
}

// CellTexts returns the trimmed text of every cell in the selection.
func CellTexts(cells *goquery.Selection) []string {
	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(cell.Text()))
	})
	return texts
}

// Blank reports whether every text is empty.
func Blank(texts []string) bool {
	for _, t := range texts {
		if t != "" {
			return false
		}
	}
	return true
}
