package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robotomize/go-allure/internal/objectstore"
	"github.com/robotomize/go-allure/internal/store"
)

var (
	publishProviderFlag string
	publishBucketFlag   string
	publishPrefixFlag   string
	publishRegionFlag   string
	publishEndpointFlag string
)

func init() {
	publishCmd.Flags().StringVarP(
		&publishProviderFlag,
		"provider",
		"",
		"",
		"object store provider: s3, minio, gcs or azure",
	)
	publishCmd.Flags().StringVarP(
		&publishBucketFlag,
		"bucket",
		"",
		"",
		"bucket or container name",
	)
	publishCmd.Flags().StringVarP(
		&publishPrefixFlag,
		"prefix",
		"",
		"",
		"key prefix for uploaded files: --prefix nightly/42",
	)
	publishCmd.Flags().StringVarP(
		&publishRegionFlag,
		"region",
		"",
		"",
		"s3 region",
	)
	publishCmd.Flags().StringVarP(
		&publishEndpointFlag,
		"endpoint",
		"",
		"",
		"custom endpoint, e.g. a minio server",
	)

	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:          "publish [results-dir]",
	Short:        "upload allure results",
	Long:         "Upload an allure results directory to an object store",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("provider") {
			cfg.Publish.Provider = publishProviderFlag
		}
		if flags.Changed("bucket") {
			cfg.Publish.Bucket = publishBucketFlag
		}
		if flags.Changed("prefix") {
			cfg.Publish.Prefix = publishPrefixFlag
		}
		if flags.Changed("region") {
			cfg.Publish.Region = publishRegionFlag
		}
		if flags.Changed("endpoint") {
			cfg.Publish.Endpoint = publishEndpointFlag
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		dir := cfg.ResultsDir
		if len(args) > 0 {
			dir = args[0]
		}
		dir = store.ResolveDir(dir, cfg.InvocationDir)

		provider, err := objectstore.NewProvider(ctx, cfg.ObjectStore())
		if err != nil {
			return fmt.Errorf("objectstore.NewProvider: %w", err)
		}
		defer func() {
			if closeErr := provider.Close(); closeErr != nil {
				logger.Warn("close object store provider", zap.Error(closeErr))
			}
		}()

		publisher := objectstore.NewPublisher(
			provider,
			objectstore.WithLogger(logger),
			objectstore.WithConcurrency(cfg.Publish.Concurrency),
		)

		report, err := publisher.Publish(ctx, dir)
		if err != nil {
			return fmt.Errorf("publisher Publish: %w", err)
		}

		_, _ = fmt.Fprintf(
			cmd.OutOrStdout(), "Published %s: %d uploaded, %d unchanged\n", dir, len(report.Uploaded), len(report.Skipped),
		)

		return nil
	},
}
