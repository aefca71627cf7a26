package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Malformed YAML",
			configPath: writeConfig(t, "fetch: [unclosed"),
			wantError:  true,
		},
		{
			name:       "Empty file uses defaults",
			configPath: writeConfig(t, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	conf, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults() error = %v", err)
	}

	if conf.Fetch.StartYear != constants.DefaultStartYear || conf.Fetch.Workers != 1 || conf.Fetch.Attempts != 1 {
		t.Errorf("fetch defaults = %+v", conf.Fetch)
	}
	if conf.Cache.Enabled {
		t.Errorf("cache enabled by default")
	}
	if conf.Indexation.LookbackMonths != 3 {
		t.Errorf("lookbackMonths = %d, expected 3", conf.Indexation.LookbackMonths)
	}
	c := conf.Indexation.Constants
	if c.IPCBase != 97.89 || c.DollarBase != 629.55 || c.CPIBase != 246.663 || c.TaxBase != 0.255 || c.TaxCurrent != 0.27 {
		t.Errorf("constants = %+v", c)
	}
	if len(conf.Workbook.Owners) != 1 || conf.Workbook.Owners[0] != "Agricola Ponce" {
		t.Errorf("owners = %v", conf.Workbook.Owners)
	}
	if len(conf.Workbook.JoinKeys) != 3 || conf.Workbook.JoinKeys[2] != "Tipo Tramo (*)" {
		t.Errorf("joinKeys = %v", conf.Workbook.JoinKeys)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("default configuration warnings = %v", warnings)
	}
}

func TestLoadConfigurationFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: console
output:
  format: csv
fetch:
  startYear: 2020
  workers: 3
  attempts: 4
cache:
  enabled: true
  path: /tmp/vatt.db
workbook:
  input: itd.xlsx
  owners:
    - Agricola Ponce
    - Otra Empresa
indexation:
  lookbackMonths: 2
  constants:
    ipcBase: 100
`)

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" || conf.Output.Format != "csv" {
		t.Errorf("logging/output = %+v / %+v", conf.Logging, conf.Output)
	}
	if conf.Fetch.StartYear != 2020 || conf.Fetch.Workers != 3 || conf.Fetch.Attempts != 4 {
		t.Errorf("fetch = %+v", conf.Fetch)
	}
	// Unset keys in a set section keep their defaults.
	if conf.Fetch.RetryDelayMs != constants.DefaultRetryDelayMs {
		t.Errorf("retryDelayMs = %d, expected default", conf.Fetch.RetryDelayMs)
	}
	if !conf.Cache.Enabled || conf.Cache.Path != "/tmp/vatt.db" {
		t.Errorf("cache = %+v", conf.Cache)
	}
	if conf.Workbook.Input != "itd.xlsx" || len(conf.Workbook.Owners) != 2 {
		t.Errorf("workbook = %+v", conf.Workbook)
	}
	if conf.Workbook.ItemsSheet != constants.DefaultItemsSheet {
		t.Errorf("itemsSheet = %q, expected default", conf.Workbook.ItemsSheet)
	}
	if conf.Indexation.LookbackMonths != 2 || conf.Indexation.Constants.IPCBase != 100 {
		t.Errorf("indexation = %+v", conf.Indexation)
	}
	if conf.Indexation.Constants.DollarBase != constants.DefaultDollarBase {
		t.Errorf("dollarBase = %v, expected default", conf.Indexation.Constants.DollarBase)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("VATT_WORKBOOK_INPUT", "/data/itd.xlsx")
	t.Setenv("VATT_FETCH_WORKERS", "5")
	t.Setenv("VATT_INDEXATION_CONSTANTS_DOLLARBASE", "700.5")

	path := writeConfig(t, "fetch:\n  workers: 2\n")
	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Workbook.Input != "/data/itd.xlsx" {
		t.Errorf("workbook.input = %q", conf.Workbook.Input)
	}
	if conf.Fetch.Workers != 5 {
		t.Errorf("fetch.workers = %d, expected the environment to win", conf.Fetch.Workers)
	}
	if conf.Indexation.Constants.DollarBase != 700.5 {
		t.Errorf("dollarBase = %v", conf.Indexation.Constants.DollarBase)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Configuration)
		errContains string
	}{
		{"bad log level", func(c *Configuration) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"bad log format", func(c *Configuration) { c.Logging.Format = "xml" }, "invalid log format"},
		{"bad output format", func(c *Configuration) { c.Output.Format = "json" }, "output format"},
		{"zero timeout", func(c *Configuration) { c.Sources.TimeoutSeconds = 0 }, "timeoutSeconds"},
		{"negative rate", func(c *Configuration) { c.Sources.RatePerSecond = -1 }, "ratePerSecond"},
		{"bad sii url", func(c *Configuration) { c.Sources.SIIBaseURL = "sii.cl" }, "siiBaseURL"},
		{"zero workers", func(c *Configuration) { c.Fetch.Workers = 0 }, "workers"},
		{"zero attempts", func(c *Configuration) { c.Fetch.Attempts = 0 }, "attempts"},
		{"inverted retry delays", func(c *Configuration) { c.Fetch.MaxRetryDelayMs = 1 }, "retry delays"},
		{"cache without path", func(c *Configuration) { c.Cache.Enabled = true; c.Cache.Path = "" }, "cache.path"},
		{"no join keys", func(c *Configuration) { c.Workbook.JoinKeys = nil }, "joinKeys"},
		{"bad sheet name", func(c *Configuration) { c.Workbook.SeriesSheet = "a/b" }, "seriesSheet"},
		{"zero lookback", func(c *Configuration) { c.Indexation.LookbackMonths = 0 }, "lookbackMonths"},
		{"zero ipc base", func(c *Configuration) { c.Indexation.Constants.IPCBase = 0 }, "ipcBase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := LoadDefaults()
			if err != nil {
				t.Fatalf("LoadDefaults() error = %v", err)
			}
			tt.mutate(conf)
			err = conf.Validate()
			if err == nil {
				t.Fatal("Validate() expected an error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, expected it to mention %q", err, tt.errContains)
			}
		})
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	conf, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults() error = %v", err)
	}
	conf.Fetch.StartYear = 1985
	conf.Fetch.Workers = 16
	conf.Sources.RatePerSecond = 0
	conf.Workbook.Owners = nil
	conf.Indexation.LookbackMonths = 15
	conf.Metrics.Textfile = "/var/lib/node_exporter/vatt.txt"

	warnings := conf.ValidateConfiguration()
	if len(warnings) != 6 {
		t.Errorf("ValidateConfiguration() = %d warnings, expected 6: %v", len(warnings), warnings)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("warnings should not be errors: %v", err)
	}
}

func TestConversions(t *testing.T) {
	conf, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults() error = %v", err)
	}

	client := conf.Sources.ToClientConfig()
	if client.Timeout != 20*time.Second || client.RatePerSecond != 2 || client.Burst != 1 {
		t.Errorf("ToClientConfig() = %+v", client)
	}
	if b := conf.Sources.ToBLSConfig(); b.SeriesID != "CUUR0000SA0" {
		t.Errorf("ToBLSConfig() = %+v", b)
	}
	opts := conf.Fetch.ToFetchOptions("run-1")
	if opts.RunID != "run-1" || opts.RetryDelay != 500*time.Millisecond || opts.MaxRetryDelay != 8*time.Second {
		t.Errorf("ToFetchOptions() = %+v", opts)
	}
	items := conf.Workbook.ToItemsOptions()
	items.Owners[0] = "changed"
	if conf.Workbook.Owners[0] == "changed" {
		t.Errorf("ToItemsOptions() shares the owners slice with the configuration")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level     string
		expected  zapcore.Level
		expectErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"trace", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.level)
		if (err != nil) != tt.expectErr {
			t.Errorf("ParseLogLevel(%q) error = %v", tt.level, err)
		}
		if got != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", tt.level, got, tt.expected)
		}
	}
}
