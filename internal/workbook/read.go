// Package workbook reads tariff line items from and writes the macro series
// and adjusted items to xlsx workbooks.
package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/indexation"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/mathutil"
	"github.com/xuri/excelize/v2"
)

// ItemsOptions locates the line items inside the input workbook.
type ItemsOptions struct {
	ItemsSheet      string
	IndexationSheet string
	JoinKeys        []string
	OwnerColumn     string
	// Owners keeps only rows whose owner column matches one of the values.
	// An empty list keeps every row.
	Owners []string
}

// DefaultItemsOptions returns the layout of the tariff workbook.
func DefaultItemsOptions() ItemsOptions {
	return ItemsOptions{
		ItemsSheet:      constants.DefaultItemsSheet,
		IndexationSheet: constants.DefaultIndexationSheet,
		JoinKeys: []string{
			constants.DefaultJoinKeySystem,
			constants.DefaultJoinKeyZone,
			constants.DefaultJoinKeySegment,
		},
		OwnerColumn: constants.DefaultOwnerColumn,
		Owners:      []string{constants.DefaultOwner},
	}
}

// sheet is a header row and the data rows padded to its width.
type sheet struct {
	headers []string
	rows    [][]string
}

func (s sheet) column(name string) int {
	for i, h := range s.headers {
		if h == name {
			return i
		}
	}
	return -1
}

func readSheet(f *excelize.File, name string) (sheet, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet{}, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return sheet{}, fmt.Errorf("sheet %q has no header row", name)
	}

	s := sheet{headers: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		s.headers[i] = strings.TrimSpace(h)
	}
	for _, row := range rows[1:] {
		padded := make([]string, len(s.headers))
		copy(padded, row)
		blank := true
		for _, cell := range padded {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			s.rows = append(s.rows, padded)
		}
	}
	return s, nil
}

// ReadLineItems reads the items sheet, keeps the rows of the configured
// owners and left-joins the indexation sheet on the join keys. An item with
// several indexation matches yields one line item per match; an item with
// none keeps empty indexation columns.
func ReadLineItems(path string, opts ItemsOptions) (indexation.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return indexation.Table{}, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	items, err := readSheet(f, opts.ItemsSheet)
	if err != nil {
		return indexation.Table{}, err
	}
	factors, err := readSheet(f, opts.IndexationSheet)
	if err != nil {
		return indexation.Table{}, err
	}

	if len(opts.Owners) > 0 {
		owner := items.column(opts.OwnerColumn)
		if owner < 0 {
			return indexation.Table{}, fmt.Errorf("sheet %q has no %q column", opts.ItemsSheet, opts.OwnerColumn)
		}
		keep := make(map[string]struct{}, len(opts.Owners))
		for _, o := range opts.Owners {
			keep[strings.TrimSpace(o)] = struct{}{}
		}
		filtered := items.rows[:0]
		for _, row := range items.rows {
			if _, ok := keep[strings.TrimSpace(row[owner])]; ok {
				filtered = append(filtered, row)
			}
		}
		items.rows = filtered
	}

	joined, err := leftJoin(items, factors, opts)
	if err != nil {
		return indexation.Table{}, err
	}

	table := indexation.Table{Headers: joined.headers, Items: make([]indexation.LineItem, 0, len(joined.rows))}
	numeric := func(row []string, name string) *float64 {
		if i := joined.column(name); i >= 0 {
			return mathutil.ParseDecimal(row[i])
		}
		return nil
	}
	for _, row := range joined.rows {
		table.Items = append(table.Items, indexation.LineItem{
			Raw:     row,
			AVIUSD:  numeric(row, constants.ColumnAVIUSD),
			COMAUSD: numeric(row, constants.ColumnCOMAUSD),
			AEIRUSD: numeric(row, constants.ColumnAEIRUSD),
			Alpha:   numeric(row, constants.ColumnAlpha),
			Beta:    numeric(row, constants.ColumnBeta),
			Gamma:   numeric(row, constants.ColumnGamma),
			Delta:   numeric(row, constants.ColumnDelta),
		})
	}
	return table, nil
}

// leftJoin joins right onto left on the key columns. Non-key columns present
// in both sheets get "_x" and "_y" suffixes.
func leftJoin(left, right sheet, opts ItemsOptions) (sheet, error) {
	leftKeys := make([]int, len(opts.JoinKeys))
	rightKeys := make([]int, len(opts.JoinKeys))
	isRightKey := make(map[int]bool, len(opts.JoinKeys))
	for i, key := range opts.JoinKeys {
		if leftKeys[i] = left.column(key); leftKeys[i] < 0 {
			return sheet{}, fmt.Errorf("sheet %q has no %q column", opts.ItemsSheet, key)
		}
		if rightKeys[i] = right.column(key); rightKeys[i] < 0 {
			return sheet{}, fmt.Errorf("sheet %q has no %q column", opts.IndexationSheet, key)
		}
		isRightKey[rightKeys[i]] = true
	}

	var rightCols []int
	for i := range right.headers {
		if !isRightKey[i] {
			rightCols = append(rightCols, i)
		}
	}

	leftNames := make(map[string]bool, len(left.headers))
	isLeftKey := make(map[int]bool, len(leftKeys))
	for _, k := range leftKeys {
		isLeftKey[k] = true
	}
	for i, h := range left.headers {
		if !isLeftKey[i] {
			leftNames[h] = true
		}
	}
	rightNames := make(map[string]bool, len(rightCols))
	for _, i := range rightCols {
		rightNames[right.headers[i]] = true
	}

	out := sheet{headers: make([]string, 0, len(left.headers)+len(rightCols))}
	for i, h := range left.headers {
		if !isLeftKey[i] && rightNames[h] {
			h += "_x"
		}
		out.headers = append(out.headers, h)
	}
	for _, i := range rightCols {
		h := right.headers[i]
		if leftNames[h] {
			h += "_y"
		}
		out.headers = append(out.headers, h)
	}

	keyOf := func(row []string, cols []int) string {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = normalizeKey(row[c])
		}
		return strings.Join(parts, "\x1f")
	}
	index := make(map[string][][]string)
	for _, row := range right.rows {
		k := keyOf(row, rightKeys)
		index[k] = append(index[k], row)
	}

	for _, row := range left.rows {
		matches := index[keyOf(row, leftKeys)]
		if len(matches) == 0 {
			joined := make([]string, len(out.headers))
			copy(joined, row)
			out.rows = append(out.rows, joined)
			continue
		}
		for _, match := range matches {
			joined := make([]string, 0, len(out.headers))
			joined = append(joined, row...)
			for _, i := range rightCols {
				joined = append(joined, match[i])
			}
			out.rows = append(out.rows, joined)
		}
	}
	return out, nil
}

// normalizeKey makes "1" and "1.0" join, since one sheet may store a key as
// a number and the other as text.
func normalizeKey(cell string) string {
	cell = strings.TrimSpace(cell)
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return cell
}

// ReadCombined reads a series workbook written by WriteCombined. Periods may
// be stored as YYYY-MM text or as spreadsheet dates.
func ReadCombined(path, sheetName string) (series.Combined, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return series.Combined{}, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	s, err := readSheet(f, sheetName)
	if err != nil {
		return series.Combined{}, err
	}
	cols := map[string]int{}
	for _, name := range []string{constants.ColumnPeriod, constants.ColumnIPC, constants.ColumnDollar, constants.ColumnCPI} {
		if cols[name] = s.column(name); cols[name] < 0 {
			return series.Combined{}, fmt.Errorf("sheet %q has no %q column", sheetName, name)
		}
	}

	parts := map[series.Indicator][]series.Observation{}
	for i, row := range s.rows {
		period, err := parsePeriod(row[cols[constants.ColumnPeriod]])
		if err != nil {
			return series.Combined{}, fmt.Errorf("sheet %q row %d: %w", sheetName, i+2, err)
		}
		parts[series.IPC] = append(parts[series.IPC], series.Observation{Period: period, Value: mathutil.ParseDecimal(row[cols[constants.ColumnIPC]])})
		parts[series.Dollar] = append(parts[series.Dollar], series.Observation{Period: period, Value: mathutil.ParseDecimal(row[cols[constants.ColumnDollar]])})
		parts[series.CPI] = append(parts[series.CPI], series.Observation{Period: period, Value: mathutil.ParseDecimal(row[cols[constants.ColumnCPI]])})
	}

	all := make([]series.Series, 0, len(series.Indicators))
	for _, ind := range series.Indicators {
		sr, err := series.New(ind, parts[ind])
		if err != nil {
			return series.Combined{}, fmt.Errorf("sheet %q: %w", sheetName, err)
		}
		all = append(all, sr)
	}
	return series.Combine(all...), nil
}

func parsePeriod(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if t, err := time.Parse(datetime.DateTimeLayout, cell); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("period %q is neither YYYY-MM nor a date", cell)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("period %q: %w", cell, err)
	}
	return datetime.MonthStart(t), nil
}
