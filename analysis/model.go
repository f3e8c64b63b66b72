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

// Package analysis loads Go programs into the program model analyzed by the attribute provenance scanner.
package analysis

import (
	"fmt"

	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/analysis/ssaprogram"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Model is a loaded program together with its program model.
type Model struct {
	Loaded  LoadedProgram
	Program *program.Program
	Graph   *program.Graph
}

// BuildModel loads the packages matched by patterns and builds the program model of their functions, minus the
// functions excluded by the configuration. Calls are resolved with the configured call-graph mode.
func BuildModel(logger *config.LogGroup, cfg *config.Config, patterns []string) (*Model, error) {
	loaded, err := LoadProgram(nil, "", ssa.InstantiateGenerics, patterns)
	if err != nil {
		return nil, fmt.Errorf("could not load program: %w", err)
	}
	mode, err := ParseCallgraphMode(cfg.Callgraph)
	if err != nil {
		return nil, err
	}
	logger.Infof("computing %s call graph\n", mode)
	cg, err := mode.ComputeCallgraph(loaded.Program)
	if err != nil {
		return nil, fmt.Errorf("could not compute call graph: %w", err)
	}

	paths := loaded.PackagePaths()
	exclude := cfg.ExcludePaths()
	include := func(f *ssa.Function) bool {
		return ssaprogram.DefaultInclude(f) && paths[f.Pkg.Pkg.Path()] && !IsExcluded(loaded.Program, f, exclude)
	}
	if cfg.Verbose() {
		ssaStats := SSAStatistics(ssautil.AllFunctions(loaded.Program), include)
		logger.Debugf("ssa: %d functions (%d with blocks), %d blocks, %d instructions\n",
			ssaStats.NumberOfFunctions, ssaStats.NumberOfNonemptyFunctions, ssaStats.NumberOfBlocks,
			ssaStats.NumberOfInstructions)
	}
	prog, graph := ssaprogram.Build(loaded.Program, cg, include)
	stats := ProgramStatistics(prog, graph)
	logger.Infof("program model: %d classes, %d methods (%d with a body), %d instructions, %d call edges\n",
		stats.NumberOfClasses, stats.NumberOfMethods, stats.NumberOfNonemptyMethods,
		stats.NumberOfInstructions, stats.NumberOfEdges)
	return &Model{Loaded: loaded, Program: prog, Graph: graph}, nil
}
