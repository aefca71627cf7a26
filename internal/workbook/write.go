package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iwvelando/vatt-indexation/internal/indexation"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/xuri/excelize/v2"
)

const periodNumFmt = "yyyy-mm"

// WriteCombined writes the combined series to a new workbook at path with
// one row per period. Missing values are left as empty cells.
func WriteCombined(path, sheetName string, c series.Combined) error {
	f, err := newWorkbook(sheetName)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	headers := []string{constants.ColumnPeriod, constants.ColumnIPC, constants.ColumnDollar, constants.ColumnCPI}
	if err := writeHeader(f, sheetName, headers); err != nil {
		return err
	}

	for i, row := range c.Rows {
		r := i + 2
		if err := setCell(f, sheetName, 1, r, row.Period); err != nil {
			return err
		}
		for col, v := range []*float64{row.IPC, row.Dollar, row.CPI} {
			if v == nil {
				continue
			}
			if err := setCell(f, sheetName, col+2, r, *v); err != nil {
				return err
			}
		}
	}

	if len(c.Rows) > 0 {
		numFmt := periodNumFmt
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return fmt.Errorf("creating period style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(1, len(c.Rows)+1)
		if err := f.SetCellStyle(sheetName, "A2", last, style); err != nil {
			return fmt.Errorf("styling period column: %w", err)
		}
	}
	return save(f, path)
}

// WriteAdjusted writes the line items to a new workbook at path. The
// adjustment columns follow the original ones only when the reference period
// was found.
func WriteAdjusted(path, sheetName string, result indexation.Result) error {
	f, err := newWorkbook(sheetName)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	headers := append([]string(nil), result.Headers...)
	if result.Matched {
		headers = append(headers, indexation.AdjustmentHeaders...)
	}
	if err := writeHeader(f, sheetName, headers); err != nil {
		return err
	}

	for i, item := range result.Items {
		r := i + 2
		for col, raw := range item.Raw {
			if raw == "" {
				continue
			}
			if err := setCell(f, sheetName, col+1, r, rawValue(raw)); err != nil {
				return err
			}
		}
		if item.Adjustment == nil {
			continue
		}
		for j, v := range item.Adjustment.Values() {
			if v == nil {
				continue
			}
			if err := setCell(f, sheetName, len(result.Headers)+j+1, r, *v); err != nil {
				return err
			}
		}
	}
	return save(f, path)
}

func newWorkbook(sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("naming sheet %q: %w", sheetName, err)
	}
	return f, nil
}

func writeHeader(f *excelize.File, sheetName string, headers []string) error {
	for i, h := range headers {
		if err := setCell(f, sheetName, i+1, 1, h); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheetName string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return fmt.Errorf("writing %s!%s: %w", sheetName, cell, err)
	}
	return nil
}

// rawValue writes numbers back as numbers when the text round-trips exactly,
// so codes such as "007" stay text.
func rawValue(raw string) interface{} {
	if v, err := strconv.ParseFloat(raw, 64); err == nil && strconv.FormatFloat(v, 'f', -1, 64) == raw {
		return v
	}
	return raw
}

func save(f *excelize.File, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}
