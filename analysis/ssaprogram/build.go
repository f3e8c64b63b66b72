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

// Package ssaprogram builds the program model from the SSA form of Go programs.
//
// Every SSA function becomes a method. The instructions of a basic block that share a source line are merged into
// one instruction, so that a walk ordered by source lines can move from one statement to the previous one. Blocks
// that only jump to another block are removed. Methods are grouped in classes: the methods of a named type form
// the class of that type, and the functions of a package form the class named by the package path. A function
// NewT returning a T of its package is an instance initializer of T, and the package initializer is the type
// initializer of the package class.
package ssaprogram

import (
	"go/types"
	"sort"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/program"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// DefaultInclude selects the non-synthetic functions of packages, and package initializers.
func DefaultInclude(f *ssa.Function) bool {
	if f.Pkg == nil {
		return false
	}
	return f.Synthetic == "" || f == f.Pkg.Func("init")
}

// Build converts the functions of prog selected by include into a program model and its call graph. Call sites are
// resolved with cg when it is not nil, and with their static callee otherwise. A nil include selects the functions
// accepted by DefaultInclude.
func Build(prog *ssa.Program, cg *callgraph.Graph, include func(*ssa.Function) bool) (*program.Program, *program.Graph) {
	if include == nil {
		include = DefaultInclude
	}
	var funcs []*ssa.Function
	for f := range ssautil.AllFunctions(prog) {
		if include(f) {
			funcs = append(funcs, f)
		}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].String() < funcs[j].String() })

	res := program.NewProgram()
	graph := program.NewGraph()
	for _, f := range funcs {
		sites := callSites(cg, f)
		res.AddMethod(convert(prog, f, sites))
		for _, site := range sortedSites(sites) {
			for _, callee := range sites[site] {
				graph.AddEdge(f.String(), callee)
			}
		}
	}
	return res, graph
}

// callSites returns the candidate callees of every call site of f
func callSites(cg *callgraph.Graph, f *ssa.Function) map[ssa.CallInstruction][]string {
	sites := map[ssa.CallInstruction][]string{}
	if cg != nil {
		if node := cg.Nodes[f]; node != nil {
			for _, e := range node.Out {
				if e.Site != nil && e.Callee != nil && e.Callee.Func != nil {
					sites[e.Site] = append(sites[e.Site], e.Callee.Func.String())
				}
			}
		}
	}
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			site, ok := instr.(ssa.CallInstruction)
			if !ok {
				continue
			}
			if _, resolved := sites[site]; resolved {
				continue
			}
			if callee := site.Common().StaticCallee(); callee != nil {
				sites[site] = []string{callee.String()}
			}
		}
	}
	for site, callees := range sites {
		sort.Strings(callees)
		sites[site] = dedup(callees)
	}
	return sites
}

func sortedSites(sites map[ssa.CallInstruction][]string) []ssa.CallInstruction {
	res := make([]ssa.CallInstruction, 0, len(sites))
	for site := range sites {
		res = append(res, site)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Pos() < res[j].Pos() })
	return res
}

func dedup(sorted []string) []string {
	res := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			res = append(res, s)
		}
	}
	return res
}

// classOf returns the class of f and its kind. Anonymous functions belong to the class of their enclosing function
// and are regular methods.
func classOf(f *ssa.Function) (string, program.MethodKind) {
	if f.Parent() != nil {
		top := f.Parent()
		for top.Parent() != nil {
			top = top.Parent()
		}
		class, _ := classOf(top)
		return class, program.Regular
	}
	if recv := f.Signature.Recv(); recv != nil {
		return typeName(recv.Type()), program.Regular
	}
	pkgPath := ""
	if f.Pkg != nil {
		pkgPath = f.Pkg.Pkg.Path()
	}
	if f.Pkg != nil && f == f.Pkg.Func("init") {
		return pkgPath, program.TypeInit
	}
	if name, ok := strings.CutPrefix(f.Name(), "New"); ok && f.Signature.Results().Len() > 0 {
		if named, ok := deref(f.Signature.Results().At(0).Type()).(*types.Named); ok {
			obj := named.Obj()
			if obj.Name() == name && obj.Pkg() != nil && obj.Pkg().Path() == pkgPath {
				return typeName(named), program.InstanceInit
			}
		}
	}
	return pkgPath, program.Regular
}

func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

// typeName returns the package-qualified name of a named type, dereferencing pointers
func typeName(t types.Type) string {
	t = deref(t)
	if named, ok := t.(*types.Named); ok && named.Obj().Pkg() != nil {
		return named.Obj().Pkg().Path() + "." + named.Obj().Name()
	}
	return types.TypeString(t, nil)
}
