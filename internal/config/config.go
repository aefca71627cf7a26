// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating it.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iwvelando/vatt-indexation/internal/indexation"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for vatt-indexation.
type Configuration struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Sources    SourcesConfig    `mapstructure:"sources" yaml:"sources"`
	Fetch      FetchConfig      `mapstructure:"fetch" yaml:"fetch"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Workbook   WorkbookConfig   `mapstructure:"workbook" yaml:"workbook"`
	Indexation IndexationConfig `mapstructure:"indexation" yaml:"indexation"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile"` // optional rotated file output
	MaxSizeMB  int    `mapstructure:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // pretty, csv
}

// SourcesConfig locates the indicator pages and bounds the requests to them.
type SourcesConfig struct {
	SIIBaseURL     string  `mapstructure:"siiBaseURL" yaml:"siiBaseURL"`
	BLSFormURL     string  `mapstructure:"blsFormURL" yaml:"blsFormURL"`
	BLSSeriesID    string  `mapstructure:"blsSeriesID" yaml:"blsSeriesID"`
	UserAgent      string  `mapstructure:"userAgent" yaml:"userAgent"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds" yaml:"timeoutSeconds"`
	RatePerSecond  float64 `mapstructure:"ratePerSecond" yaml:"ratePerSecond"`
	RateBurst      int     `mapstructure:"rateBurst" yaml:"rateBurst"`
}

// FetchConfig controls how the (indicator, year) fetch tasks are run.
type FetchConfig struct {
	StartYear       int `mapstructure:"startYear" yaml:"startYear"`
	Workers         int `mapstructure:"workers" yaml:"workers"`
	Attempts        int `mapstructure:"attempts" yaml:"attempts"`
	RetryDelayMs    int `mapstructure:"retryDelayMs" yaml:"retryDelayMs"`
	MaxRetryDelayMs int `mapstructure:"maxRetryDelayMs" yaml:"maxRetryDelayMs"`
}

// CacheConfig enables the sqlite cache of complete past years.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// MetricsConfig names the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"` // empty disables
}

// WorkbookConfig names the input and output workbooks and their sheets.
type WorkbookConfig struct {
	Input           string   `mapstructure:"input" yaml:"input"`
	SeriesOutput    string   `mapstructure:"seriesOutput" yaml:"seriesOutput"`
	AdjustedOutput  string   `mapstructure:"adjustedOutput" yaml:"adjustedOutput"`
	ItemsSheet      string   `mapstructure:"itemsSheet" yaml:"itemsSheet"`
	IndexationSheet string   `mapstructure:"indexationSheet" yaml:"indexationSheet"`
	SeriesSheet     string   `mapstructure:"seriesSheet" yaml:"seriesSheet"`
	AdjustedSheet   string   `mapstructure:"adjustedSheet" yaml:"adjustedSheet"`
	OwnerColumn     string   `mapstructure:"ownerColumn" yaml:"ownerColumn"`
	Owners          []string `mapstructure:"owners" yaml:"owners"`
	JoinKeys        []string `mapstructure:"joinKeys" yaml:"joinKeys"`
}

// IndexationConfig holds the reference-period rule and base constants.
type IndexationConfig struct {
	LookbackMonths int                  `mapstructure:"lookbackMonths" yaml:"lookbackMonths"`
	Constants      indexation.Constants `mapstructure:"constants" yaml:"constants"`
}

// setDefaults registers every key so that environment overrides apply even
// when the file omits the key.
func setDefaults(v *viper.Viper) {
	c := indexation.DefaultConstants()
	defaults := map[string]interface{}{
		"logging.level":      constants.DefaultLogLevel,
		"logging.format":     constants.DefaultLogFormat,
		"logging.outputFile": "",
		"logging.maxSizeMB":  constants.DefaultLogMaxSizeMB,
		"logging.maxBackups": constants.DefaultLogMaxBackups,
		"logging.maxAgeDays": constants.DefaultLogMaxAgeDays,
		"logging.compress":   false,

		"output.format": constants.DefaultOutputFormat,

		"sources.siiBaseURL":     constants.DefaultSIIBaseURL,
		"sources.blsFormURL":     constants.DefaultBLSFormURL,
		"sources.blsSeriesID":    constants.DefaultBLSSeriesID,
		"sources.userAgent":      constants.DefaultUserAgent,
		"sources.timeoutSeconds": constants.DefaultTimeoutSecs,
		"sources.ratePerSecond":  constants.DefaultRatePerSecond,
		"sources.rateBurst":      constants.DefaultRateBurst,

		"fetch.startYear":       constants.DefaultStartYear,
		"fetch.workers":         constants.DefaultWorkers,
		"fetch.attempts":        constants.DefaultAttempts,
		"fetch.retryDelayMs":    constants.DefaultRetryDelayMs,
		"fetch.maxRetryDelayMs": constants.DefaultMaxRetryDelayMs,

		"cache.enabled": false,
		"cache.path":    constants.DefaultCachePath,

		"metrics.textfile": "",

		"workbook.input":           "",
		"workbook.seriesOutput":    constants.DefaultSeriesOutput,
		"workbook.adjustedOutput":  constants.DefaultAdjustedOutput,
		"workbook.itemsSheet":      constants.DefaultItemsSheet,
		"workbook.indexationSheet": constants.DefaultIndexationSheet,
		"workbook.seriesSheet":     constants.DefaultSeriesSheet,
		"workbook.adjustedSheet":   constants.DefaultAdjustedSheet,
		"workbook.ownerColumn":     constants.DefaultOwnerColumn,
		"workbook.owners":          []string{constants.DefaultOwner},
		"workbook.joinKeys": []string{
			constants.DefaultJoinKeySystem,
			constants.DefaultJoinKeyZone,
			constants.DefaultJoinKeySegment,
		},

		"indexation.lookbackMonths":          constants.DefaultLookbackMonths,
		"indexation.constants.ipcBase":       c.IPCBase,
		"indexation.constants.dollarBase":    c.DollarBase,
		"indexation.constants.cpiBase":       c.CPIBase,
		"indexation.constants.tariffBase":    c.TariffBase,
		"indexation.constants.tariffCurrent": c.TariffCurrent,
		"indexation.constants.taxBase":       c.TaxBase,
		"indexation.constants.taxCurrent":    c.TaxCurrent,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there, layered over the defaults and under VATT_ environment
// overrides.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadDefaults returns the default configuration with environment overrides
// applied, for runs without a configuration file.
func LoadDefaults() (*Configuration, error) {
	return decode(newViper())
}

// Validate returns every setting that makes a run impossible.
func (c *Configuration) Validate() error {
	var errs []error

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("invalid log format: %s", c.Logging.Format))
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}

	if c.Sources.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("sources.timeoutSeconds must be positive, got %d", c.Sources.TimeoutSeconds))
	}
	if c.Sources.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("sources.ratePerSecond must not be negative, got %v", c.Sources.RatePerSecond))
	}
	for name, raw := range map[string]string{"sources.siiBaseURL": c.Sources.SIIBaseURL, "sources.blsFormURL": c.Sources.BLSFormURL} {
		if err := validation.ValidateURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.Fetch.StartYear <= 0 {
		errs = append(errs, fmt.Errorf("fetch.startYear must be positive, got %d", c.Fetch.StartYear))
	}
	if c.Fetch.Workers < 1 {
		errs = append(errs, fmt.Errorf("fetch.workers must be at least 1, got %d", c.Fetch.Workers))
	}
	if c.Fetch.Attempts < 1 {
		errs = append(errs, fmt.Errorf("fetch.attempts must be at least 1, got %d", c.Fetch.Attempts))
	}
	if c.Fetch.RetryDelayMs < 0 || c.Fetch.MaxRetryDelayMs < c.Fetch.RetryDelayMs {
		errs = append(errs, fmt.Errorf("fetch retry delays must satisfy 0 <= retryDelayMs <= maxRetryDelayMs, got %d and %d",
			c.Fetch.RetryDelayMs, c.Fetch.MaxRetryDelayMs))
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		errs = append(errs, errors.New("cache.path is required when the cache is enabled"))
	}

	if len(c.Workbook.JoinKeys) == 0 {
		errs = append(errs, errors.New("workbook.joinKeys must name at least one column"))
	}
	for name, sheet := range map[string]string{
		"workbook.itemsSheet":      c.Workbook.ItemsSheet,
		"workbook.indexationSheet": c.Workbook.IndexationSheet,
		"workbook.seriesSheet":     c.Workbook.SeriesSheet,
		"workbook.adjustedSheet":   c.Workbook.AdjustedSheet,
	} {
		if err := validation.ValidateSheetName(sheet); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.Indexation.LookbackMonths < 1 {
		errs = append(errs, fmt.Errorf("indexation.lookbackMonths must be at least 1, got %d", c.Indexation.LookbackMonths))
	}
	if err := c.Indexation.Constants.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("indexation.constants: %w", err))
	}

	return errors.Join(errs...)
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for settings that are legal but probably unintended.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Fetch.StartYear > 0 && c.Fetch.StartYear < constants.EarliestSupportedYear {
		warnings = append(warnings, fmt.Sprintf("fetch.startYear %d is before %d; the sources publish no earlier tables",
			c.Fetch.StartYear, constants.EarliestSupportedYear))
	}
	if c.Fetch.Workers > constants.MaxRecommendedWorkers {
		warnings = append(warnings, fmt.Sprintf("fetch.workers %d exceeds %d; requests are still limited to %v per second",
			c.Fetch.Workers, constants.MaxRecommendedWorkers, c.Sources.RatePerSecond))
	}
	if c.Sources.RatePerSecond == 0 {
		warnings = append(warnings, "sources.ratePerSecond is 0; requests are not rate limited")
	}
	if len(c.Workbook.Owners) == 0 {
		warnings = append(warnings, "workbook.owners is empty; every line item will be adjusted")
	}
	if c.Indexation.LookbackMonths > constants.MonthsPerYear {
		warnings = append(warnings, fmt.Sprintf("indexation.lookbackMonths %d reaches back more than a year",
			c.Indexation.LookbackMonths))
	}
	if c.Metrics.Textfile != "" && filepath.Ext(c.Metrics.Textfile) != ".prom" {
		warnings = append(warnings, fmt.Sprintf("metrics.textfile %s does not end in .prom; the node_exporter textfile collector skips it",
			c.Metrics.Textfile))
	}

	return warnings
}
