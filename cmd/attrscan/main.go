// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main implements the attrscan command line tool, which finds the instructions of a Go program that may
// read the values of configuration attributes.
package main

import (
	"fmt"
	"os"

	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/internal/formatutil"
	"github.com/spf13/cobra"
)

// Set via ldflags during build.
var version = "dev"

// options are the flags shared by every subcommand
type options struct {
	configPath string
	verbose    bool
	format     string
	reportsDir string
}

// env is the configuration and logger set up before any subcommand runs
type env struct {
	cfg    *config.Config
	logger *config.LogGroup
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	e := &env{}
	root := &cobra.Command{
		Use:   "attrscan",
		Short: "Find where configuration attribute values come from",
		Long: `attrscan walks backwards from the instructions reading typed attribute values and reports the
instructions that may produce them, along with their declared types, themes and default values.`,
		Example: `  attrscan scan ./...                       # Scan all packages
  attrscan scan --config=config.yaml ./ui   # Scan with a configuration file
  attrscan diff --base=main ./...           # Scan the lines changed since main
  attrscan branches ./ui                    # Print the branch predicates of each method`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(opts, e)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the yaml configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.format, "format", "", "Report format: text, yaml or sarif")
	root.PersistentFlags().StringVar(&opts.reportsDir, "reports-dir", "",
		"Directory where reports are written instead of standard output")

	root.AddCommand(newScanCmd(e), newDiffCmd(e), newBranchesCmd(e))
	return root
}

// setup loads the configuration, applies the flags overriding it and creates the logger
func setup(opts *options, e *env) error {
	cfg := config.NewDefault()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.verbose && cfg.LogLevel < int(config.DebugLevel) {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if opts.format != "" {
		cfg.ReportFormat = opts.format
	}
	if opts.reportsDir != "" {
		cfg.ReportsDir = opts.reportsDir
	}
	if err := cfg.Compile(); err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = config.NewLogGroup(cfg)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errExit(err)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", formatutil.ForWriter(os.Stderr).Red("error:"), err)
	if hint := hintForErrorMessage(err.Error()); hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
