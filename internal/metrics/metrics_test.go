package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTask(t *testing.T) {
	r := New()
	r.ObserveTask("ipc", "fetched", 1, 120*time.Millisecond)
	r.ObserveTask("ipc", "cached", 0, time.Millisecond)
	r.ObserveTask("cpi", "failed", 3, 2*time.Second)

	if got := testutil.ToFloat64(r.tasks.WithLabelValues("ipc", "fetched")); got != 1 {
		t.Errorf("ipc fetched = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(r.attempts.WithLabelValues("cpi")); got != 3 {
		t.Errorf("cpi attempts = %v, expected 3", got)
	}
	if got := testutil.ToFloat64(r.attempts.WithLabelValues("ipc")); got != 1 {
		t.Errorf("ipc attempts = %v, expected 1 (cached tasks make no requests)", got)
	}
	if n := testutil.CollectAndCount(r.duration); n != 2 {
		t.Errorf("duration series = %d, expected one per indicator", n)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveTask("ipc", "fetched", 1, time.Second)
	r.SetAdjusted(1, 2, 3)
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom"), time.Now()); err != nil {
		t.Errorf("WriteTextfile() on nil recorder error = %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.SetAdjusted(10, 2, 0)
	path := filepath.Join(t.TempDir(), "vatt.prom")
	finished := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	if err := r.WriteTextfile(path, finished); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`vatt_adjusted_items{state="adjusted"} 10`,
		`vatt_adjusted_items{state="missing"} 2`,
		"vatt_last_run_timestamp_seconds 1.7408304e+09",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestWriteTextfileBadPath(t *testing.T) {
	r := New()
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "vatt.prom"), time.Now()); err == nil {
		t.Errorf("WriteTextfile() expected an error for a missing directory")
	}
}
