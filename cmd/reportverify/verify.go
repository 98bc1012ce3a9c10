package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reportverify/internal/domain"
	"reportverify/internal/sheet"
	"reportverify/internal/verification"
)

var (
	expectedVersion string
	outputFormat    string
	outputPath      string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <design-spec.xlsx> <report.xlsx>",
	Short: "Verify one report against a design specification",
	Long: `Verify one generated report against its design specification and print
the result. The command exits with status 1 when the report fails any check.`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

// outcome is the verification result of one report file.
type outcome struct {
	DesignSpec      string         `json:"design_spec" yaml:"design_spec"`
	Report          string         `json:"report" yaml:"report"`
	ExpectedVersion string         `json:"expected_version" yaml:"expected_version"`
	Passed          bool           `json:"passed" yaml:"passed"`
	Error           string         `json:"error,omitempty" yaml:"error,omitempty"`
	Result          *domain.Report `json:"result,omitempty" yaml:"result,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(outputFormat, formatText, formatJSON, formatYAML, formatCSV)
	if err != nil {
		return err
	}
	profile := runProfile()

	var design, report *sheet.Workbook
	var g errgroup.Group
	g.Go(func() (err error) {
		design, err = openWorkbook(args[0])
		return err
	})
	g.Go(func() (err error) {
		report, err = openWorkbook(args[1])
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	start := time.Now()
	res := verification.Run(design, report, profile)
	logger.Debug("verification finished",
		zap.String("report", args[1]),
		zap.Bool("passed", res.Passed),
		zap.Int("failed_cells", res.Reconciliation.FailedCells),
		zap.Duration("took", time.Since(start)),
	)

	out := outcome{
		DesignSpec:      filepath.Base(args[0]),
		Report:          filepath.Base(args[1]),
		ExpectedVersion: profile.ExpectedVersion,
		Passed:          res.Passed,
		Result:          res,
	}

	w, closeOutput, err := openOutput(cmd)
	if err != nil {
		return err
	}
	if err := render(w, format, out, profile); err != nil {
		closeOutput()
		return err
	}
	closeOutput()

	if !out.Passed {
		return errVerificationFailed
	}
	return nil
}

// runProfile is the configured CQ091 profile with the command line override.
func runProfile() verification.Profile {
	p := verification.ProfileFrom(&cfg.Verify)
	if v := strings.TrimSpace(expectedVersion); v != "" {
		p.ExpectedVersion = v
	}
	return p
}

func openWorkbook(path string) (*sheet.Workbook, error) {
	wb, err := sheet.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return wb, nil
}

// openOutput returns the command's output stream: the --output file when set,
// stdout otherwise.
func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if outputPath == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			logger.Warn("closing output file", zap.String("path", outputPath), zap.Error(err))
		}
	}, nil
}
