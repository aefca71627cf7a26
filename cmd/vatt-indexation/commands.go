package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/iwvelando/vatt-indexation/internal/indexation"
	"github.com/iwvelando/vatt-indexation/internal/macro"
	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/workbook"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/output"
	"github.com/iwvelando/vatt-indexation/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	flagStartYear   int
	flagSeriesOut   string
	flagSettlement  string
	flagInput       string
	flagAdjustedOut string
	flagSeriesIn    string
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Fetch the combined IPC, dollar and CPI series",
	RunE:  runSeries,
}

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Index the VATT of the line items for a settlement month",
	RunE:  runCompute,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE:  runConfig,
}

func init() {
	seriesCmd.Flags().IntVar(&flagStartYear, "start-year", 0, "first year to fetch (default from configuration)")
	seriesCmd.Flags().StringVar(&flagSeriesOut, "output", "", "series workbook path (default from configuration)")

	computeCmd.Flags().StringVarP(&flagSettlement, "settlement", "s", "", "settlement month as YYYYMM")
	computeCmd.Flags().StringVar(&flagInput, "input", "", "line items workbook (default from configuration)")
	computeCmd.Flags().StringVar(&flagAdjustedOut, "output", "", "adjusted workbook path (default from configuration)")
	computeCmd.Flags().StringVar(&flagSeriesIn, "series-input", "", "read the combined series from this workbook instead of fetching")
	_ = computeCmd.MarkFlagRequired("settlement")
}

func orDefault(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

func runSeries(cmd *cobra.Command, args []string) error {
	conf, logger := current.conf, current.logger

	startYear := conf.Fetch.StartYear
	if flagStartYear != 0 {
		startYear = flagStartYear
	}

	st := current.openStore()
	defer func() { _ = st.Close() }()

	report, err := macro.GetCombinedSeries(cmd.Context(), logger, current.newRunner(st), startYear)
	if err != nil {
		logger.Error("failed to build combined series",
			zap.String("op", "main.runSeries"),
			zap.Error(err),
		)
		return err
	}
	tasks := current.taskLog(cmd.Context(), st)

	path := orDefault(flagSeriesOut, conf.Workbook.SeriesOutput)
	if err := workbook.WriteCombined(path, conf.Workbook.SeriesSheet, report.Combined); err != nil {
		logger.Error("failed to write series workbook",
			zap.String("op", "main.runSeries"),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	logger.Info("series workbook written",
		zap.String("op", "main.runSeries"),
		zap.String("path", path),
		zap.Int("periods", report.Combined.Len()),
	)

	switch current.outputFormat {
	case constants.OutputFormatPretty:
		output.PrettySeries(report.Combined)
		output.PrettyTaskLog(tasks)
		output.PrettyFailures(report.Failed())
	case constants.OutputFormatCSV:
		output.CsvSeries(report.Combined)
	}
	return nil
}

func runCompute(cmd *cobra.Command, args []string) error {
	conf, logger := current.conf, current.logger

	if err := validation.ValidateSettlement(flagSettlement); err != nil {
		logger.Error("invalid settlement",
			zap.String("op", "main.runCompute"),
			zap.Error(err),
		)
		return err
	}
	settlement, _ := datetime.ParseSettlement(flagSettlement)
	reference := datetime.ReferencePeriod(settlement, conf.Indexation.LookbackMonths)

	input := orDefault(flagInput, conf.Workbook.Input)
	if input == "" {
		err := errors.New("no line items workbook: set workbook.input or pass --input")
		logger.Error(err.Error(), zap.String("op", "main.runCompute"))
		return err
	}
	table, err := workbook.ReadLineItems(input, conf.Workbook.ToItemsOptions())
	if err != nil {
		logger.Error("failed to read line items",
			zap.String("op", "main.runCompute"),
			zap.String("path", input),
			zap.Error(err),
		)
		return err
	}

	combined, err := loadCombined(cmd, reference.Year())
	if err != nil {
		return err
	}

	result := indexation.Compute(logger, table, combined, settlement, conf.Indexation.LookbackMonths, conf.Indexation.Constants)
	current.metrics.SetAdjusted(adjustedCounts(result))

	path := orDefault(flagAdjustedOut, conf.Workbook.AdjustedOutput)
	if err := workbook.WriteAdjusted(path, conf.Workbook.AdjustedSheet, result); err != nil {
		logger.Error("failed to write adjusted workbook",
			zap.String("op", "main.runCompute"),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	logger.Info("adjusted workbook written",
		zap.String("op", "main.runCompute"),
		zap.String("path", path),
		zap.Int("items", len(result.Items)),
		zap.Bool("matched", result.Matched),
	)

	switch current.outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyAdjusted(result)
	case constants.OutputFormatCSV:
		output.CsvAdjusted(result)
	}
	return nil
}

// loadCombined reads the series workbook given by --series-input or fetches
// the series from the reference year on.
func loadCombined(cmd *cobra.Command, fromYear int) (series.Combined, error) {
	conf, logger := current.conf, current.logger

	if flagSeriesIn != "" {
		combined, err := workbook.ReadCombined(flagSeriesIn, conf.Workbook.SeriesSheet)
		if err != nil {
			logger.Error("failed to read series workbook",
				zap.String("op", "main.loadCombined"),
				zap.String("path", flagSeriesIn),
				zap.Error(err),
			)
		}
		return combined, err
	}

	st := current.openStore()
	defer func() { _ = st.Close() }()

	report, err := macro.GetCombinedSeries(cmd.Context(), logger, current.newRunner(st), fromYear)
	if err != nil {
		logger.Error("failed to build combined series",
			zap.String("op", "main.loadCombined"),
			zap.Error(err),
		)
		return series.Combined{}, err
	}
	tasks := current.taskLog(cmd.Context(), st)
	if current.outputFormat == constants.OutputFormatPretty {
		output.PrettyTaskLog(tasks)
		output.PrettyFailures(report.Failed())
	}
	return report.Combined, nil
}

// adjustedCounts splits the items into adjusted, missing VATT and unmatched.
func adjustedCounts(result indexation.Result) (adjusted, missing, unmatched int) {
	if !result.Matched {
		return 0, 0, len(result.Items)
	}
	for _, item := range result.Items {
		if item.Adjustment == nil || item.Adjustment.VATT == nil {
			missing++
			continue
		}
		adjusted++
	}
	return adjusted, missing, 0
}

func runConfig(cmd *cobra.Command, args []string) error {
	out, err := yaml.Marshal(current.conf)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}
