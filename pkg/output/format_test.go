package output

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/fetch"
	"github.com/iwvelando/vatt-indexation/internal/indexation"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/store"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/mathutil"
)

// captureStdout runs fn and returns everything it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func testCombined() series.Combined {
	return series.Combined{Rows: []series.Row{
		{Period: datetime.Month(2024, time.November), IPC: mathutil.Ptr(127.34), Dollar: mathutil.Ptr(1045.2), CPI: mathutil.Ptr(315.493)},
		{Period: datetime.Month(2024, time.December), IPC: mathutil.Ptr(127.87), Dollar: nil, CPI: mathutil.Ptr(315.605)},
	}}
}

func testResult(matched bool) indexation.Result {
	table := indexation.Table{
		Headers: []string{"Tramo", "AVI US$"},
		Items: []indexation.LineItem{
			{Raw: []string{"T-1", "1000"}, AVIUSD: mathutil.Ptr(1000), COMAUSD: mathutil.Ptr(100), AEIRUSD: mathutil.Ptr(10),
				Alpha: mathutil.Ptr(1), Beta: mathutil.Ptr(0), Gamma: mathutil.Ptr(1), Delta: mathutil.Ptr(0)},
			{Raw: []string{`T-"2"`, ""}, COMAUSD: mathutil.Ptr(50)},
		},
	}
	combined := testCombined()
	if !matched {
		combined = series.Combined{}
	}
	return indexation.Compute(nil, table, combined, datetime.Month(2025, time.February), 3, indexation.DefaultConstants())
}

func TestPrettySeries(t *testing.T) {
	output := captureStdout(t, func() { PrettySeries(testCombined()) })

	if !strings.Contains(output, "--- Macro series (2 periods) ---") {
		t.Errorf("PrettySeries missing header")
	}
	if !strings.Contains(output, "Period  | IPC      | Dólar    | CPI") {
		t.Errorf("PrettySeries missing table header")
	}
	if !strings.Contains(output, "1,045.20") {
		t.Errorf("PrettySeries missing thousands separator: %s", output)
	}
	if !strings.Contains(output, "315.605") {
		t.Errorf("PrettySeries missing CPI value")
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if last := lines[len(lines)-1]; !strings.HasPrefix(last, "2024-12") || !strings.Contains(last, " - ") {
		t.Errorf("PrettySeries missing placeholder for missing dolar: %q", last)
	}
}

func TestCsvSeries(t *testing.T) {
	output := captureStdout(t, func() { CsvSeries(testCombined()) })

	expected := `"period","ipc","dolar","cpi"
"2024-11","127.34","1045.2","315.493"
"2024-12","127.87","","315.605"
`
	if output != expected {
		t.Errorf("CsvSeries output =\n%s\nexpected\n%s", output, expected)
	}
}

func TestPrettyFailures(t *testing.T) {
	if output := captureStdout(t, func() { PrettyFailures(nil) }); output != "" {
		t.Errorf("PrettyFailures(nil) printed %q", output)
	}

	failed := []fetch.Result{{
		Task:     fetch.Task{Indicator: series.CPI, Year: 2023},
		Err:      errors.New("timed out"),
		Attempts: 3,
	}}
	output := captureStdout(t, func() { PrettyFailures(failed) })
	if !strings.Contains(output, "1 fetch tasks failed") || !strings.Contains(output, "cpi   2023 | 3 attempts | timed out") {
		t.Errorf("PrettyFailures output = %q", output)
	}
}

func TestPrettyTaskLog(t *testing.T) {
	if output := captureStdout(t, func() { PrettyTaskLog(nil) }); output != "" {
		t.Errorf("PrettyTaskLog(nil) printed %q", output)
	}

	records := []store.TaskRecord{
		{Indicator: series.IPC, Year: 2024, Status: store.StatusFetched, Attempts: 1},
		{Indicator: series.IPC, Year: 2025, Status: store.StatusCached},
		{Indicator: series.CPI, Year: 2025, Status: store.StatusFailed, Attempts: 3},
	}
	output := captureStdout(t, func() { PrettyTaskLog(records) })
	if !strings.Contains(output, "Task log: 1 fetched, 1 cached, 1 failed (4 requests)") {
		t.Errorf("PrettyTaskLog output = %q", output)
	}
}

func TestPrettyAdjusted(t *testing.T) {
	output := captureStdout(t, func() { PrettyAdjusted(testResult(true)) })

	if !strings.Contains(output, "--- VATT for settlement 202502 (reference period 2024-11) ---") {
		t.Errorf("PrettyAdjusted missing header: %s", output)
	}
	if !strings.Contains(output, "R_IPC ") || !strings.Contains(output, "R_t 1.") || !strings.Contains(output, "R_Ta 1.000000") {
		t.Errorf("PrettyAdjusted missing ratios: %s", output)
	}
	if !strings.Contains(output, "Item | AVI") {
		t.Errorf("PrettyAdjusted missing table header")
	}
	if !strings.Contains(output, "(1 items with missing values excluded)") {
		t.Errorf("PrettyAdjusted missing the excluded count: %s", output)
	}
	if !strings.Contains(output, "Total VATT: $") {
		t.Errorf("PrettyAdjusted missing total")
	}
}

func TestPrettyAdjustedUnmatched(t *testing.T) {
	output := captureStdout(t, func() { PrettyAdjusted(testResult(false)) })

	if !strings.Contains(output, "No macro data for 2024-11; 2 line items left unadjusted") {
		t.Errorf("PrettyAdjusted unmatched output = %q", output)
	}
	if strings.Contains(output, "Item | AVI") {
		t.Errorf("PrettyAdjusted printed a table without a match")
	}
}

func TestCsvAdjusted(t *testing.T) {
	output := captureStdout(t, func() { CsvAdjusted(testResult(true)) })
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Fatalf("CsvAdjusted printed %d lines, expected 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], `"Tramo","AVI US$","IPC_k",`) || !strings.HasSuffix(lines[0], `"VATT"`) {
		t.Errorf("CsvAdjusted header = %s", lines[0])
	}
	if !strings.HasPrefix(lines[2], `"T-""2""",""`) {
		t.Errorf("CsvAdjusted did not escape quotes: %s", lines[2])
	}
	if !strings.HasSuffix(lines[2], `,""`) {
		t.Errorf("CsvAdjusted missing VATT should be empty: %s", lines[2])
	}

	unmatched := captureStdout(t, func() { CsvAdjusted(testResult(false)) })
	if first := strings.SplitN(unmatched, "\n", 2)[0]; first != `"Tramo","AVI US$"` {
		t.Errorf("CsvAdjusted unmatched header = %s", first)
	}
}
