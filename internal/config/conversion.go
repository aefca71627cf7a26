package config

import (
	"fmt"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/fetch"
	"github.com/iwvelando/vatt-indexation/internal/source"
	"github.com/iwvelando/vatt-indexation/internal/source/bls"
	"github.com/iwvelando/vatt-indexation/internal/workbook"
	"go.uber.org/zap/zapcore"
)

// ParseLogLevel maps a configured level name to its zap level.
func ParseLogLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// ToClientConfig converts the sources section to the shared HTTP client
// settings.
func (s SourcesConfig) ToClientConfig() source.ClientConfig {
	return source.ClientConfig{
		Timeout:       time.Duration(s.TimeoutSeconds) * time.Second,
		UserAgent:     s.UserAgent,
		RatePerSecond: s.RatePerSecond,
		Burst:         s.RateBurst,
	}
}

// ToBLSConfig converts the sources section to the CPI form settings.
func (s SourcesConfig) ToBLSConfig() bls.Config {
	return bls.Config{
		FormURL:  s.BLSFormURL,
		SeriesID: s.BLSSeriesID,
	}
}

// ToFetchOptions converts the fetch section to runner options.
func (f FetchConfig) ToFetchOptions(runID string) fetch.Options {
	return fetch.Options{
		Workers:       f.Workers,
		Attempts:      f.Attempts,
		RetryDelay:    time.Duration(f.RetryDelayMs) * time.Millisecond,
		MaxRetryDelay: time.Duration(f.MaxRetryDelayMs) * time.Millisecond,
		RunID:         runID,
	}
}

// ToItemsOptions converts the workbook section to the line item layout.
func (w WorkbookConfig) ToItemsOptions() workbook.ItemsOptions {
	return workbook.ItemsOptions{
		ItemsSheet:      w.ItemsSheet,
		IndexationSheet: w.IndexationSheet,
		JoinKeys:        append([]string(nil), w.JoinKeys...),
		OwnerColumn:     w.OwnerColumn,
		Owners:          append([]string(nil), w.Owners...),
	}
}
