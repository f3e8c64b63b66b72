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

package main

import (
	"fmt"
	"io"

	"github.com/awslabs/attr-provenance/analysis"
	"github.com/awslabs/attr-provenance/analysis/attrscan"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/analysis/report"
	"github.com/awslabs/attr-provenance/analysis/ssaprogram"
	"github.com/spf13/cobra"
)

func newScanCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [packages...]",
		Short: "Scan every method reading typed attribute values",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := analysis.BuildModel(e.logger, e.cfg, patterns(args))
			if err != nil {
				return err
			}
			scanner := newScanner(e, model, ssaprogram.NewFileSource())
			if err := scanner.ScanProgram(cmd.Context(), e.cfg.API); err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			return writeReport(e, cmd.OutOrStdout(), scanner.Results())
		},
	}
}

func patterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}

func newScanner(e *env, model *analysis.Model, src program.SourceText) *attrscan.Scanner {
	s := attrscan.NewScanner(e.logger, e.cfg, model.Program, model.Graph, src, nil)
	s.SetIgnored(model.Loaded.Directives.Ignored)
	return s
}

// writeReport writes the report of results in the reports directory if one is configured, and on out otherwise
func writeReport(e *env, out io.Writer, results *attrscan.Results) error {
	rep := report.New(results)
	if e.cfg.ReportsDir == "" {
		return report.Write(out, e.cfg.ReportFormat, rep)
	}
	name, err := report.WriteFile(e.cfg.ReportsDir, e.cfg.ReportFormat, rep)
	if err != nil {
		return err
	}
	e.logger.Infof("report written to %s\n", name)
	return nil
}
