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
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const source = `package main

func Size(x int) int {
	return x * 2 //attrscan:ignore
}

func main() {
	_ = Size(3) // attrscan:unknown
}
`

func buildApp(t *testing.T) (*ssa.Package, *ast.File, *token.FileSet) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "/src/app/app.go", source, parser.ParseComments)
	require.NoError(t, err)
	pkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset,
		types.NewPackage("example.com/app", "main"), []*ast.File{f}, ssa.BuilderMode(0))
	require.NoError(t, err)
	return pkg, f, fset
}

func TestFindDirectives(t *testing.T) {
	_, f, fset := buildApp(t)
	directives := findDirectives([]*packages.Package{{Syntax: []*ast.File{f}}}, fset)

	require.Len(t, directives, 1)
	assert.True(t, directives.Ignored("/src/app/app.go", 4))
	assert.False(t, directives.Ignored("/src/app/app.go", 8))
	assert.False(t, directives.Ignored("/src/app/other.go", 4))
}

func TestIsExcluded(t *testing.T) {
	pkg, _, _ := buildApp(t)
	size := pkg.Func("Size")
	require.NotNil(t, size)

	assert.True(t, IsExcluded(pkg.Prog, size, []string{"/src/app/app.go"}))
	assert.True(t, IsExcluded(pkg.Prog, size, []string{"/src/"}))
	assert.True(t, IsExcluded(pkg.Prog, size, []string{"/other", "/src/app"}))
	assert.False(t, IsExcluded(pkg.Prog, size, []string{"/src/ap"}))
	assert.False(t, IsExcluded(pkg.Prog, size, nil))
}

func TestCallgraphModes(t *testing.T) {
	pkg, _, _ := buildApp(t)
	for _, name := range []string{"static", "cha", "VTA", "rta"} {
		mode, err := ParseCallgraphMode(name)
		require.NoError(t, err)
		cg, err := mode.ComputeCallgraph(pkg.Prog)
		require.NoError(t, err, "mode %s", mode)
		require.NotNil(t, cg)
		main := cg.Nodes[pkg.Func("main")]
		require.NotNil(t, main, "mode %s", mode)
		assert.NotEmpty(t, main.Out, "mode %s", mode)
	}
	_, err := ParseCallgraphMode("pointer")
	assert.Error(t, err)
	assert.Equal(t, "cha", ClassHierarchyAnalysis.String())
}

func TestProgramStatistics(t *testing.T) {
	prog := program.NewProgram()
	b := program.NewMethod("app.f", "app")
	b.Sequence(b.Add(&program.Instruction{Line: 1}), b.Add(&program.Instruction{Line: 2}))
	prog.AddMethod(b.Build())
	prog.AddMethod(program.NoBody("app.T.g", "app.T"))
	cg := program.NewGraph()
	cg.AddEdge("app.f", "app.T.g")

	assert.Equal(t, Result{
		NumberOfMethods:         2,
		NumberOfNonemptyMethods: 1,
		NumberOfClasses:         2,
		NumberOfInstructions:    2,
		NumberOfEdges:           1,
	}, ProgramStatistics(prog, cg))
}

func TestSSAStatistics(t *testing.T) {
	pkg, _, _ := buildApp(t)
	funcs := map[*ssa.Function]bool{pkg.Func("Size"): true, pkg.Func("main"): true}

	stats := SSAStatistics(funcs, nil)
	assert.Equal(t, uint(2), stats.NumberOfFunctions)
	assert.Equal(t, uint(2), stats.NumberOfNonemptyFunctions)
	assert.GreaterOrEqual(t, stats.NumberOfBlocks, uint(2))
	assert.Greater(t, stats.NumberOfInstructions, stats.NumberOfBlocks)

	onlyMain := SSAStatistics(funcs, func(f *ssa.Function) bool { return f.Name() == "main" })
	assert.Equal(t, uint(1), onlyMain.NumberOfFunctions)
}
