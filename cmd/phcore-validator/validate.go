package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/phcore/validator/pkg/batch"
	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/validator"
)

// validateOptions are the flags of the validate command.
type validateOptions struct {
	profile string
	verbose bool
	output  string
	quiet   bool
	workers int
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate <file|glob|->...",
		Short: "Validate resources from files or stdin",
		Example: `  phcore-validator validate patient.json
  phcore-validator validate --profile http://doh.gov.ph/fhir/ph-core/StructureDefinition/ph-core-patient patient.json
  phcore-validator validate --verbose --output json examples/*.json
  cat patient.json | phcore-validator validate -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := loadEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			valid, err := runValidate(cmd.Context(), eng.validator, args, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			if !valid {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.profile, "profile", "", "profile URL to validate against (default: meta.profile)")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "also apply the per-kind shape rules")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "only show errors and warnings")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parallel validations (default: one per CPU)")
	return cmd
}

// runValidate validates every input and reports whether all were valid.
func runValidate(ctx context.Context, v *validator.Validator, inputs []string, stdin io.Reader, out io.Writer, opts validateOptions) (bool, error) {
	var (
		jobs    []batch.Job
		reports []FileReport
		slots   []int
	)

	addJob := func(name string, data []byte) {
		slots = append(slots, len(reports))
		reports = append(reports, FileReport{Resource: name})
		jobs = append(jobs, batch.Job{Name: name, Data: data})
	}

	for _, input := range inputs {
		if input == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return false, errors.Wrap(err, "read stdin")
			}
			addJob("stdin", data)
			continue
		}

		matches, err := filepath.Glob(input)
		if err != nil {
			return false, errors.Wrapf(err, "pattern %q", input)
		}
		if len(matches) == 0 {
			reports = append(reports, failedReport(input, fmt.Sprintf("No files match pattern: %s", input)))
			continue
		}

		for _, match := range matches {
			data, err := os.ReadFile(match)
			if err != nil {
				reports = append(reports, failedReport(match, fmt.Sprintf("Failed to read file: %v", err)))
				continue
			}
			addJob(match, data)
		}
	}

	fn := func(ctx context.Context, data []byte) (*validator.Outcome, error) {
		if opts.verbose {
			return v.ValidateJSONVerbose(ctx, data, opts.profile)
		}
		return v.ValidateJSON(ctx, data, opts.profile)
	}
	for i, res := range batch.New(fn, opts.workers).Run(ctx, jobs) {
		if res.Err != nil {
			return false, errors.Wrapf(res.Err, "validate %s", res.Name)
		}
		reports[slots[i]] = fileReport(res)
	}

	allValid := true
	for _, r := range reports {
		allValid = allValid && r.Valid
	}

	r := NewReporter(out, Format(opts.output), opts.quiet)
	if err := r.Report(reports); err != nil {
		return false, err
	}
	return allValid, nil
}

func fileReport(res batch.Result) FileReport {
	return FileReport{
		Resource: res.Name,
		Valid:    res.Outcome.Valid,
		Errors:   res.Outcome.ErrorCount(),
		Warnings: res.Outcome.WarningCount(),
		Issues:   res.Outcome.Issues,
		Duration: res.Duration.Round(time.Microsecond).String(),
	}
}

func failedReport(name, details string) FileReport {
	return FileReport{
		Resource: name,
		Errors:   1,
		Issues: []issue.Issue{{
			Severity: issue.SeverityError,
			Code:     issue.CodeException,
			Details:  details,
		}},
	}
}
