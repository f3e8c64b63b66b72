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

// Package branchflow implements a forward, branch-sensitive intra-procedural dataflow analysis. At each
// instruction of a method, the analysis computes which branch conditions are known to be true, false or unknown.
//
// Calls to methods with a body spawn a nested, independent analysis of the callee seeded with the predicate known
// at the call site. Nesting stops on recursion (a callee already being analyzed) and at a configurable depth.
// Within one top-level analysis, a callee reached at the same depth with an equal predicate is analyzed once and its
// result is shared by all those call sites.
package branchflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/predicate"
	"github.com/awslabs/attr-provenance/analysis/program"
)

// Result is the per-instruction assignment of incoming predicates of one method, along with the results of the
// nested analyses spawned at its call sites.
type Result struct {
	Method *program.Method

	// In maps each reached instruction to the predicate holding before it executes
	In map[*program.Instruction]*predicate.Predicate

	// Nested maps call instructions to the analyses of their callees
	Nested map[*program.Instruction][]*Result

	// Iterations is the number of instruction visits needed to reach the fixpoint
	Iterations int
}

// At returns the predicate holding before instr, or nil if instr was not reached.
func (r *Result) At(instr *program.Instruction) *predicate.Predicate {
	return r.In[instr]
}

// String prints the assignment in instruction order, with nested results indented.
// A nested result shared by several call sites is printed in full once.
func (r *Result) String() string {
	b := &strings.Builder{}
	r.write(b, "", map[*Result]bool{})
	return b.String()
}

func (r *Result) write(b *strings.Builder, indent string, printed map[*Result]bool) {
	if printed[r] {
		fmt.Fprintf(b, "%s%s (shared)\n", indent, r.Method.Signature)
		return
	}
	printed[r] = true
	fmt.Fprintf(b, "%s%s\n", indent, r.Method.Signature)
	if !r.Method.HasBody() {
		return
	}
	for _, instr := range r.Method.Body.Instructions() {
		p, ok := r.In[instr]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "%s  %4d  %-40s %s\n", indent, instr.Line, instr.Text, p)
		for _, nested := range r.Nested[instr] {
			nested.write(b, indent+"    ", printed)
		}
	}
}

// Analyzer runs the forward analysis. An Analyzer holds the set of methods currently being analyzed, it must not be
// shared between goroutines.
type Analyzer struct {
	logger    *config.LogGroup
	prog      *program.Program
	maxNested int
	active    map[*program.Method]bool
	depth     int

	// memo and analyses are reset by each top-level Analyze
	memo     map[nestedKey]*Result
	analyses int
}

// nestedKey identifies a nested analysis: the callee, the nesting depth and the canonical seed predicate
type nestedKey struct {
	callee *program.Method
	depth  int
	seed   string
}

// NewAnalyzer returns an analyzer resolving callees in prog. When prog is nil, no nested analysis is spawned.
func NewAnalyzer(logger *config.LogGroup, cfg *config.Config, prog *program.Program) *Analyzer {
	maxNested := config.DefaultMaxNestedAnalysis
	if cfg != nil {
		maxNested = cfg.MaxNestedAnalysis
	}
	return &Analyzer{
		logger:    logger,
		prog:      prog,
		maxNested: maxNested,
		active:    map[*program.Method]bool{},
	}
}

// flows are the outgoing predicates of an instruction
type flows struct {
	fall   *predicate.Predicate
	branch *predicate.Predicate
}

// Analyze computes the incoming predicate of every instruction of m reachable from its heads, starting from
// initial (nil is the empty predicate).
func (a *Analyzer) Analyze(m *program.Method, initial *predicate.Predicate) *Result {
	res := &Result{
		Method: m,
		In:     map[*program.Instruction]*predicate.Predicate{},
		Nested: map[*program.Instruction][]*Result{},
	}
	if a.depth == 0 {
		a.memo = map[nestedKey]*Result{}
		a.analyses = 0
	}
	if !m.HasBody() {
		return res
	}
	a.analyses++
	a.active[m] = true
	a.depth++
	defer func() {
		delete(a.active, m)
		a.depth--
	}()

	body := m.Body
	out := make(map[*program.Instruction]*flows, body.Len())
	heads := map[*program.Instruction]bool{}
	for _, h := range body.Heads() {
		heads[h] = true
	}

	worklist := body.Heads()
	queued := map[*program.Instruction]bool{}
	for _, h := range worklist {
		queued[h] = true
	}

	for len(worklist) > 0 {
		instr := worklist[0]
		worklist = worklist[1:]
		queued[instr] = false
		res.Iterations++

		in := a.incoming(body, instr, heads[instr], initial, out)
		res.In[instr] = in
		next := transfer(instr, in)

		prev, seen := out[instr]
		if seen && prev.fall.SameKeys(next.fall) && prev.branch.SameKeys(next.branch) {
			// values may still change under the key-set equality; the stored flows are updated regardless
			out[instr] = next
			continue
		}
		out[instr] = next
		for _, s := range body.Succs(instr) {
			if !queued[s] {
				queued[s] = true
				worklist = append(worklist, s)
			}
		}
	}

	for _, instr := range body.Instructions() {
		if instr.Call == nil {
			continue
		}
		in, reached := res.In[instr]
		if !reached {
			continue
		}
		for _, callee := range a.resolve(instr.Call) {
			if nested := a.nested(callee, in); nested != nil {
				res.Nested[instr] = append(res.Nested[instr], nested)
			}
		}
	}
	return res
}

// incoming merges the flows arriving at instr from its predecessors that have already been processed.
func (a *Analyzer) incoming(body *program.Body, instr *program.Instruction, isHead bool,
	initial *predicate.Predicate, out map[*program.Instruction]*flows) *predicate.Predicate {
	var in *predicate.Predicate
	if isHead {
		in = predicate.Copy(initial)
	}
	for _, p := range body.Preds(instr) {
		f, ok := out[p]
		if !ok {
			continue
		}
		for _, s := range body.FallThrough(p) {
			if s == instr {
				in = join(in, f.fall)
			}
		}
		for _, s := range body.BranchTargets(p) {
			if s == instr {
				in = join(in, f.branch)
			}
		}
	}
	if in == nil {
		in = predicate.New()
	}
	return in
}

func join(acc, p *predicate.Predicate) *predicate.Predicate {
	if acc == nil {
		return predicate.Copy(p)
	}
	return predicate.Merge(acc, p)
}

// transfer computes the outgoing flows of instr. Only binary conditionals refine the predicate; switches are
// copied unchanged since no truth value can be assigned to their arms.
func transfer(instr *program.Instruction, in *predicate.Predicate) *flows {
	f := &flows{fall: predicate.Copy(in), branch: predicate.Copy(in)}
	if instr.Kind == program.If && instr.Cond != "" {
		f.branch.Put(instr.Cond, predicate.True)
		f.fall.Put(instr.Cond, predicate.False)
	}
	return f
}

// resolve returns the callees of call that have a body, sorted by signature.
func (a *Analyzer) resolve(call *program.Call) []*program.Method {
	if a.prog == nil {
		return nil
	}
	var res []*program.Method
	for _, sig := range call.Callees {
		if m := a.prog.Method(sig); m.HasBody() {
			res = append(res, m)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Signature < res[j].Signature })
	return res
}

// nested runs the analysis of callee seeded with the predicate at the call site, unless callee is already being
// analyzed or the nesting limit is reached. Results are memoized per callee, depth and seed.
func (a *Analyzer) nested(callee *program.Method, at *predicate.Predicate) *Result {
	if a.active[callee] {
		a.logger.Debugf("recursive call to %s, not analyzed again\n", callee.Signature)
		return nil
	}
	if a.depth >= a.maxNested {
		a.logger.Debugf("nesting limit %d reached at %s\n", a.maxNested, callee.Signature)
		return nil
	}
	key := nestedKey{callee: callee, depth: a.depth, seed: at.Key()}
	if r, ok := a.memo[key]; ok {
		return r
	}
	r := a.Analyze(callee, predicate.Copy(at))
	a.memo[key] = r
	return r
}

// Analyses returns the number of methods analyzed by the last top-level Analyze, nested analyses included.
func (a *Analyzer) Analyses() int {
	return a.analyses
}
