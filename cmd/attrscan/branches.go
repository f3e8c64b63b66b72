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
	"strings"

	"github.com/awslabs/attr-provenance/analysis"
	"github.com/awslabs/attr-provenance/analysis/branchflow"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/internal/funcutil"
	"github.com/spf13/cobra"
)

func newBranchesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "branches [packages...]",
		Short: "Print the branch conditions known at each instruction of the methods with conditionals",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := analysis.BuildModel(e.logger, e.cfg, patterns(args))
			if err != nil {
				return err
			}
			analyzer := branchflow.NewAnalyzer(e.logger, e.cfg, model.Program)
			out := cmd.OutOrStdout()
			for _, m := range model.Program.Methods(e.cfg.ClassFilter) {
				if !hasConditional(m) {
					continue
				}
				res := analyzer.Analyze(m, nil)
				if _, err := fmt.Fprintln(out, strings.TrimRight(res.String(), "\n")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func hasConditional(m *program.Method) bool {
	if !m.HasBody() {
		return false
	}
	return funcutil.Exists(m.Body.Instructions(), func(instr *program.Instruction) bool {
		return instr.Kind == program.If
	})
}
