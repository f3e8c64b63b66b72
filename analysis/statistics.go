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

package analysis

import (
	"github.com/awslabs/attr-provenance/analysis/program"
	"golang.org/x/tools/go/ssa"
)

// SSAResult holds statistics about the SSA functions a program model is built from.
type SSAResult struct {
	NumberOfFunctions         uint
	NumberOfNonemptyFunctions uint
	NumberOfBlocks            uint
	NumberOfInstructions      uint
}

// SSAStatistics returns statistics about the functions for which include returns true.
func SSAStatistics(functions map[*ssa.Function]bool, include func(*ssa.Function) bool) SSAResult {
	result := SSAResult{}
	for f := range functions {
		if include != nil && !include(f) {
			continue
		}
		result.NumberOfFunctions++
		if len(f.Blocks) != 0 {
			result.NumberOfNonemptyFunctions++
			for _, b := range f.Blocks {
				result.NumberOfBlocks++
				result.NumberOfInstructions += uint(len(b.Instrs))
			}
		}
	}
	return result
}

// Result holds general statistics about a program model.
type Result struct {
	NumberOfMethods         uint
	NumberOfNonemptyMethods uint
	NumberOfClasses         uint
	NumberOfInstructions    uint
	NumberOfEdges           uint
}

// ProgramStatistics returns a Result with general statistics about the methods of prog and its call graph cg,
// which may be nil.
func ProgramStatistics(prog *program.Program, cg *program.Graph) Result {
	result := Result{}
	classes := map[string]bool{}

	for _, m := range prog.Methods("") {
		result.NumberOfMethods++
		classes[m.Class] = true
		if m.HasBody() {
			result.NumberOfNonemptyMethods++
			result.NumberOfInstructions += uint(m.Body.Len())
		}
	}
	result.NumberOfClasses = uint(len(classes))
	if cg != nil {
		result.NumberOfEdges = uint(cg.NumEdges())
	}

	return result
}
