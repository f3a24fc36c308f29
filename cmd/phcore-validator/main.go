// Command phcore-validator validates clinical documents against PH Core
// profiles, either once from the command line or as an HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

// Persistent flag values.
var (
	configPath  string
	logLevel    string
	logFormat   string
	resourceDir []string
	packages    []string
	databaseURL string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phcore-validator",
		Short: "PH Core FHIR profile validator",
		Long: `phcore-validator checks FHIR resources against the profiles of the
Philippine Core implementation guide.

Conformance resources are read from directories, .tgz packages and an
optional Postgres table, then indexed by canonical URL.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       version,
	}
	root.SetVersionTemplate("phcore-validator version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./config.yaml when present)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error, none")
	flags.StringVar(&logFormat, "log-format", "", "log format: console, json")
	flags.StringSliceVar(&resourceDir, "resources", nil, "resource directories to load")
	flags.StringSliceVar(&packages, "package", nil, "FHIR packages to load: .tgz paths or name#version from the package cache")
	flags.StringVar(&databaseURL, "database-url", "", "Postgres URL of the conformance_resources table")

	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newProfilesCmd())
	root.AddCommand(newEvalCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
