package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/robotomize/go-allure/internal/allure"
	"github.com/robotomize/go-allure/internal/config"
	"github.com/robotomize/go-allure/internal/exporter"
	"github.com/robotomize/go-allure/internal/gotest"
	"github.com/robotomize/go-allure/internal/hook"
	"github.com/robotomize/go-allure/internal/logging"
	"github.com/robotomize/go-allure/internal/metrics"
	"github.com/robotomize/go-allure/internal/reporter"
	"github.com/robotomize/go-allure/internal/store"
)

var (
	configFileFlag        string
	verboseFlag           bool
	outputDirFlag         string
	invocationDirFlag     string
	cleanFlag             bool
	dedupFlag             string
	logFormatFlag         string
	forwardGoTestExitCode bool
	forwardGoTestLog      bool
	allureSuiteFlag       string
	allureTagsFlag        string
	allureLayersFlag      string
	allureLabelsFlag      string
	allureAttachmentForce bool
	silentOutput          bool
	metricsFlag           bool
	metricsPathFlag       string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFileFlag,
		"config",
		"c",
		"",
		"path to a YAML config file: -c golurectl.yaml",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verboseFlag,
		"verbose",
		"v",
		false,
		"verbose",
	)
	rootCmd.PersistentFlags().StringVarP(
		&logFormatFlag,
		"log-format",
		"",
		"",
		"log format: console or json",
	)
	rootCmd.Flags().StringVarP(
		&outputDirFlag,
		"output",
		"o",
		"",
		"output path to allure reports: -o <report-path>",
	)
	rootCmd.Flags().StringVarP(
		&invocationDirFlag,
		"invocation-dir",
		"",
		"",
		"directory a relative output path is resolved against, defaults to the working directory",
	)
	rootCmd.Flags().BoolVarP(
		&cleanFlag,
		"clean",
		"",
		false,
		"remove the output directory before writing",
	)
	rootCmd.Flags().StringVarP(
		&dedupFlag,
		"dedup",
		"",
		"",
		"attachment dedup failure policy: strict or warn",
	)
	rootCmd.Flags().BoolVarP(
		&forwardGoTestExitCode,
		"forward-exit",
		"e",
		false,
		"forward the origin go test exit code",
	)
	rootCmd.Flags().BoolVarP(
		&forwardGoTestLog,
		"forward-log",
		"l",
		false,
		"output the origin go test",
	)
	rootCmd.Flags().StringVarP(
		&allureSuiteFlag,
		"allure-suite",
		"",
		"",
		"add allure suite to all tests: --allure-suite MyFirstSuite",
	)
	rootCmd.Flags().StringVarP(
		&allureTagsFlag,
		"allure-tags",
		"",
		"",
		"add allure tags to all tests: --allure-tags UNIT,ACCEPTANCE",
	)
	rootCmd.Flags().StringVarP(
		&allureLayersFlag,
		"allure-layers",
		"",
		"",
		"add allure layers to all tests: --allure-layers UNIT,FUNCTIONAL",
	)
	rootCmd.Flags().StringVarP(
		&allureLabelsFlag,
		"allure-labels",
		"",
		"",
		"add allure custom labels to all tests: --allure-labels key:value,key:value1,key1:value",
	)
	rootCmd.Flags().BoolVarP(
		&allureAttachmentForce,
		"attachment-force",
		"a",
		false,
		"create attachments for passed tests",
	)
	rootCmd.Flags().BoolVarP(
		&silentOutput,
		"silent",
		"s",
		false,
		"silent allure report output(JSON)",
	)
	rootCmd.Flags().BoolVarP(
		&metricsFlag,
		"metrics",
		"",
		false,
		"write run metrics in the prometheus text format",
	)
	rootCmd.Flags().StringVarP(
		&metricsPathFlag,
		"metrics-path",
		"",
		"",
		"metrics file path: --metrics-path metrics.prom",
	)
}

var rootCmd = &cobra.Command{
	Use:          "golurectl",
	Long:         "Export go test output to allure reports",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		invocationDir := cfg.InvocationDir
		if invocationDir == "" {
			if invocationDir, err = os.Getwd(); err != nil {
				return fmt.Errorf("os.Getwd: %w", err)
			}
		}

		dir := store.ResolveDir(cfg.ResultsDir, invocationDir)
		if cfg.Clean {
			if err = os.RemoveAll(dir); err != nil {
				return fmt.Errorf("os.RemoveAll: %w", err)
			}
		}

		st, err := store.NewFS(dir)
		if err != nil {
			return fmt.Errorf("store.NewFS: %w", err)
		}

		writerOpts := []exporter.WriterOption{exporter.WriteToFile(dir)}
		if !silentOutput {
			writerOpts = append(writerOpts, exporter.WriteReportTo(cmd.OutOrStdout()))
		}

		builder := reporter.NewBuilder(
			st,
			reporter.WithSink(exporter.NewWriter(writerOpts...)),
			reporter.WithLogger(logger),
			reporter.WithDedupPolicy(dedupPolicy(cfg.Dedup)),
			reporter.WithDefaultLabels(cfg.AllureLabels()...),
		)

		dispatcher := hook.NewDispatcher(builder)

		var runMetrics *metrics.Collector
		if cfg.Metrics.Enabled {
			runMetrics = metrics.NewCollector()
			dispatcher.Register(runMetrics)
		}

		var input io.Reader = cmd.InOrStdin()
		if forwardGoTestLog {
			input = io.TeeReader(input, cmd.OutOrStdout())
		}

		set, err := gotest.NewReader(input).ReadAll(ctx)
		if err != nil {
			return fmt.Errorf("gotest.Reader ReadAll: %w", err)
		}

		if set.Err != nil {
			logger.Warn("skipped undecodable go test output", zap.Error(set.Err))
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nTrying to generate an allure report\n")

		replayer := gotest.NewReplayer(
			dispatcher,
			gotest.WithLogger(logger),
			gotest.WithForceAttachments(cfg.ForceAttachments),
		)

		summary, err := replayer.Replay(ctx, set)
		if err != nil {
			return fmt.Errorf("replayer Replay: %w", err)
		}

		if err = builder.Flush(ctx); err != nil {
			return fmt.Errorf("builder Flush: %w", err)
		}

		if runMetrics != nil {
			if err = runMetrics.Write(metricsPath(invocationDir, cfg.Metrics.Path)); err != nil {
				return fmt.Errorf("metrics Write: %w", err)
			}
		}

		_, _ = fmt.Fprint(cmd.OutOrStdout(), formatSummary(summary))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Conversion completed successfully\n")

		if forwardGoTestExitCode && hasFailures(summary) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "One or more go tests failed. exiting with error 1\n")
			os.Exit(1)
		}

		return nil
	},
}

// loadConfig layers the config file, ALLURE_* variables and explicitly set
// flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFileFlag)
	if err != nil {
		return cfg, fmt.Errorf("config.Load: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.ResultsDir = outputDirFlag
	}
	if flags.Changed("invocation-dir") {
		cfg.InvocationDir = invocationDirFlag
	}
	if flags.Changed("clean") {
		cfg.Clean = cleanFlag
	}
	if flags.Changed("dedup") {
		cfg.Dedup = dedupFlag
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormatFlag
	}
	if verboseFlag {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("attachment-force") {
		cfg.ForceAttachments = allureAttachmentForce
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Enabled = metricsFlag
	}
	if flags.Changed("metrics-path") {
		cfg.Metrics.Path = metricsPathFlag
	}
	if flags.Changed("allure-suite") {
		cfg.Labels.Suite = allureSuiteFlag
	}
	if flags.Changed("allure-tags") {
		cfg.Labels.Tags = strings.Split(allureTagsFlag, ",")
	}
	if flags.Changed("allure-layers") {
		cfg.Labels.Layers = strings.Split(allureLayersFlag, ",")
	}
	if flags.Changed("allure-labels") {
		cfg.Labels.Custom = strings.Split(allureLabelsFlag, ",")
	}

	if err = cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.NewLogger: %w", err)
	}

	return logger, nil
}

func dedupPolicy(value string) reporter.DedupPolicy {
	if value == "warn" {
		return reporter.DedupWarn
	}

	return reporter.DedupStrict
}

var summaryOrder = []allure.Status{
	allure.StatusPass,
	allure.StatusFail,
	allure.StatusBroken,
	allure.StatusSkip,
}

func formatSummary(summary gotest.Summary) string {
	caser := cases.Title(language.English)

	var b strings.Builder
	for _, status := range summaryOrder {
		if n := summary[status]; n > 0 {
			_, _ = fmt.Fprintf(&b, "%s: %d\n", caser.String(string(status)), n)
		}
	}

	return b.String()
}

func hasFailures(summary gotest.Summary) bool {
	return summary[allure.StatusFail] > 0 || summary[allure.StatusBroken] > 0
}

// metricsPath resolves a relative metrics path against the invocation dir.
func metricsPath(dir, pth string) string {
	if filepath.IsAbs(pth) {
		return pth
	}

	return filepath.Join(dir, pth)
}
