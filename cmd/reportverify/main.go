// Command reportverify checks generated CQ091 report workbooks against their
// design specification from the command line.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reportverify/internal/config"
	"reportverify/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// errVerificationFailed marks a run that completed but did not pass. It maps
// to exit status 1; every other error exits with 2.
var errVerificationFailed = errors.New("verification failed")

var rootCmd = &cobra.Command{
	Use:   "reportverify",
	Short: "Verify generated CQ091 reports against their design specification",
	Long: `reportverify compares a generated CQ091 report workbook with the design
specification workbook it was built from.

It checks the cover page, the column headers of every standard report, a
spot check of known case numbers, the summary field list, and recomputes every
count on the summary sheet from the detail sheets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logCfg := cfg.Log
		if verbose {
			logCfg.Level = "debug"
		}
		logger, err = logging.New(logCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $REPORTVERIFY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	verifyCmd.Flags().StringVar(&expectedVersion, "expected-version", "", "Expected report version (default: configured version)")
	verifyCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json, yaml or csv")
	verifyCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write output to a file instead of stdout")

	batchCmd.Flags().StringVar(&expectedVersion, "expected-version", "", "Expected report version (default: configured version)")
	batchCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json or yaml")
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write output to a file instead of stdout")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Reports verified at once (default: configured batch concurrency)")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject, e.g. the calling system (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default: configured expiry)")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil, "Granted scope, repeatable (default: read and write)")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errVerificationFailed) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
