package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phcore/validator/pkg/registry"
)

func newProfilesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the indexed profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := loadEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			return printProfiles(cmd.OutOrStdout(), eng.index, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print profiles as JSON")
	return cmd
}

func printProfiles(out io.Writer, index *registry.Index, asJSON bool) error {
	profiles := index.Profiles()
	stats := index.Stats()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"profiles": profiles, "stats": stats})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, color.New(color.Bold).Sprint("TYPE\tNAME\tSTATUS\tURL"))
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Type, p.Name, p.Status, p.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d profiles, %d value sets (%d codes), %d code systems (%d concepts)\n",
		stats.Profiles, stats.ValueSets, stats.Codes, stats.CodeSystems, stats.Concepts)
	return nil
}
