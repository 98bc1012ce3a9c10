package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reportverify/internal/sheet"
	"reportverify/internal/verification"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <design-spec.xlsx> <report.xlsx>...",
	Short: "Verify several reports against one design specification",
	Long: `Verify every report against the same design specification. Reports are
checked concurrently; an unreadable report is recorded as a failed result and
does not stop the others. The command exits with status 1 when any report fails.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(outputFormat, formatText, formatJSON, formatYAML)
	if err != nil {
		return err
	}
	profile := runProfile()

	design, err := openWorkbook(args[0])
	if err != nil {
		return err
	}

	outs := verifyAll(cmd, design, args[0], args[1:], profile)

	w, closeOutput, err := openOutput(cmd)
	if err != nil {
		return err
	}
	if err := renderBatch(w, format, outs, profile); err != nil {
		closeOutput()
		return err
	}
	closeOutput()

	for _, out := range outs {
		if !out.Passed {
			return errVerificationFailed
		}
	}
	return nil
}

// verifyAll checks each report against design, keeping the argument order.
func verifyAll(cmd *cobra.Command, design *sheet.Workbook, designPath string, reports []string, p verification.Profile) []outcome {
	limit := batchConcurrency
	if limit <= 0 {
		limit = cfg.Verify.BatchConcurrency
	}
	if limit <= 0 {
		limit = 1
	}

	outs := make([]outcome, len(reports))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(limit)
	for i, path := range reports {
		g.Go(func() error {
			out := outcome{
				DesignSpec:      filepath.Base(designPath),
				Report:          filepath.Base(path),
				ExpectedVersion: p.ExpectedVersion,
			}
			if err := ctx.Err(); err != nil {
				out.Error = err.Error()
				outs[i] = out
				return nil
			}

			report, err := openWorkbook(path)
			if err != nil {
				logger.Warn("skipping unreadable report", zap.String("report", path), zap.Error(err))
				out.Error = err.Error()
				outs[i] = out
				return nil
			}
			out.Result = verification.Run(design, report, p)
			out.Passed = out.Result.Passed
			logger.Debug("report verified", zap.String("report", path), zap.Bool("passed", out.Passed))
			outs[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outs
}
