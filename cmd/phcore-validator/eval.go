package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phcore/validator/pkg/logger"
	"github.com/phcore/validator/pkg/query"
)

func newEvalCmd() *cobra.Command {
	var asBool bool

	cmd := &cobra.Command{
		Use:   "eval <expression> <file|->...",
		Short: "Evaluate a FHIRPath expression against resources",
		Example: `  phcore-validator eval "Patient.name.given" patient.json
  phcore-validator eval --bool "extension.where(url.contains('indigenous')).exists()" a.json b.json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := query.New()
			expr, files := args[0], args[1:]
			for _, name := range files {
				data, err := readInput(name, cmd.InOrStdin())
				if err != nil {
					return err
				}
				if len(files) > 1 {
					fmt.Fprintln(cmd.OutOrStdout(), color.New(color.Bold).Sprintf("== %s ==", name))
				}
				if err := runEval(cmd, engine, expr, data, asBool); err != nil {
					return errors.Wrap(err, name)
				}
			}
			stats := engine.CacheStats()
			logger.Debug("expression cache: %d hits, %d misses", stats.Hits, stats.Misses)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asBool, "bool", false, "print the FHIRPath truthiness of the result")
	return cmd
}

func runEval(cmd *cobra.Command, engine *query.Engine, expr string, data []byte, asBool bool) error {
	out := cmd.OutOrStdout()
	if asBool {
		ok, err := engine.EvalBool(cmd.Context(), expr, data)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ok)
		return nil
	}

	items, err := engine.EvalStrings(cmd.Context(), expr, data)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, color.New(color.FgHiBlack).Sprint("(empty)"))
		return nil
	}
	for _, item := range items {
		fmt.Fprintln(out, item)
	}
	return nil
}

func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		return data, errors.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(name)
	return data, errors.Wrapf(err, "read %s", name)
}
