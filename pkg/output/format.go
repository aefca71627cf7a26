// Package output provides utilities for formatting and displaying the macro
// series and the adjusted line items.
package output

import (
	"fmt"
	"strings"

	"github.com/iwvelando/vatt-indexation/internal/fetch"
	"github.com/iwvelando/vatt-indexation/internal/indexation"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/store"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettySeries outputs the combined series as a human-readable table.
func PrettySeries(c series.Combined) {
	fmt.Printf("--- Macro series (%d periods) ---\n", c.Len())
	fmt.Printf("Period  | IPC      | Dólar    | CPI\n")
	fmt.Printf("______  | ________ | ________ | ________\n")
	for _, row := range c.Rows {
		fmt.Printf("%s | %8s | %8s | %8s\n",
			datetime.FormatPeriod(row.Period),
			format.OptionalDecimal(row.IPC, 2),
			format.OptionalDecimal(row.Dollar, 2),
			format.OptionalDecimal(row.CPI, 3),
		)
	}
}

// CsvSeries outputs the combined series in comma-separated value format.
// Missing values are empty fields.
func CsvSeries(c series.Combined) {
	fmt.Println(`"period","ipc","dolar","cpi"`)
	for _, row := range c.Rows {
		fmt.Printf(`"%s","%s","%s","%s"`+"\n",
			datetime.FormatPeriod(row.Period),
			format.CSVValue(row.IPC),
			format.CSVValue(row.Dollar),
			format.CSVValue(row.CPI),
		)
	}
}

// PrettyFailures lists the fetch tasks that produced no data.
func PrettyFailures(failed []fetch.Result) {
	if len(failed) == 0 {
		return
	}
	fmt.Printf("--- %d fetch tasks failed ---\n", len(failed))
	for _, res := range failed {
		fmt.Printf("%-5s %d | %d attempts | %v\n", res.Task.Indicator, res.Task.Year, res.Attempts, res.Err)
	}
}

// PrettyTaskLog summarizes the fetch task log of a run. An empty log prints
// nothing.
func PrettyTaskLog(records []store.TaskRecord) {
	if len(records) == 0 {
		return
	}
	counts := store.CountByStatus(records)
	attempts := 0
	for _, r := range records {
		attempts += r.Attempts
	}
	fmt.Printf("--- Task log: %d fetched, %d cached, %d failed (%d requests) ---\n",
		counts[store.StatusFetched], counts[store.StatusCached], counts[store.StatusFailed], attempts)
}

// PrettyAdjusted outputs the adjusted amounts of every line item. When the
// reference period was not found only a notice is printed.
func PrettyAdjusted(result indexation.Result) {
	fmt.Printf("--- VATT for settlement %s (reference period %s) ---\n",
		result.Settlement.Format(datetime.SettlementLayout), datetime.FormatPeriod(result.Reference))
	if !result.Matched {
		fmt.Printf("No macro data for %s; %d line items left unadjusted\n",
			datetime.FormatPeriod(result.Reference), len(result.Items))
		return
	}

	// Ratios are shared by every item of the period.
	if len(result.Items) > 0 && result.Items[0].Adjustment != nil {
		ratios := result.Items[0].Adjustment
		p := message.NewPrinter(language.English)
		_, _ = p.Printf("R_IPC %s | R_D %s | R_CPI %s | R_Ta %.6f | R_t %.6f\n",
			format.OptionalDecimal(ratios.RIPC, 6), format.OptionalDecimal(ratios.RD, 6), format.OptionalDecimal(ratios.RCPI, 6),
			ratios.RTa, ratios.Rt)
	}

	fmt.Printf("Item | AVI            | COMA           | AEIR           | VATT\n")
	fmt.Printf("____ | ______________ | ______________ | ______________ | ______________\n")
	total := 0.0
	missing := 0
	for i, item := range result.Items {
		adj := item.Adjustment
		if adj == nil {
			adj = &indexation.Adjustment{}
		}
		fmt.Printf("%4d | %14s | %14s | %14s | %14s\n", i+1,
			format.OptionalCurrency(adj.AVI),
			format.OptionalCurrency(adj.COMA),
			format.OptionalCurrency(adj.AEIR),
			format.OptionalCurrency(adj.VATT),
		)
		if adj.VATT == nil {
			missing++
			continue
		}
		total += *adj.VATT
	}
	fmt.Printf("Total VATT: %s", format.Currency(total))
	if missing > 0 {
		fmt.Printf(" (%d items with missing values excluded)", missing)
	}
	fmt.Printf("\n")
}

// CsvAdjusted outputs the line items and, when the reference period was
// found, their adjustment columns in comma-separated value format.
func CsvAdjusted(result indexation.Result) {
	headers := append([]string(nil), result.Headers...)
	if result.Matched {
		headers = append(headers, indexation.AdjustmentHeaders...)
	}
	fmt.Println(csvLine(headers))

	for _, item := range result.Items {
		fields := append([]string(nil), item.Raw...)
		if result.Matched && item.Adjustment != nil {
			for _, v := range item.Adjustment.Values() {
				fields = append(fields, format.CSVValue(v))
			}
		}
		fmt.Println(csvLine(fields))
	}
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
