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

// Package defaults resolves the default values passed to attribute accessors.
package defaults

import (
	"sort"

	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/analysis/taintwalk"
)

// A Resolver computes textual descriptions of the values an argument may hold.
type Resolver struct {
	logger *config.LogGroup
}

// NewResolver returns a new resolver.
func NewResolver(logger *config.LogGroup) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve returns the descriptions of the values that arg may hold at the call instruction call in m. A literal or
// field argument describes itself. Otherwise, the predecessors of call are explored breadth-first while carrying,
// for each instruction, the set of candidate expressions that may hold the value; a definition of a candidate adds
// the expressions it reads, and the callee when it is a call. The invoked methods, fields and literals among the
// candidates reaching the heads of m are returned, sorted and without duplicates.
func (r *Resolver) Resolve(m *program.Method, call *program.Instruction, arg program.Ref) []string {
	if arg.IsLiteral() {
		return []string{arg.Text}
	}
	if !m.HasBody() || call == nil {
		return nil
	}

	candidates := map[*program.Instruction]taintwalk.RefSet{call: {arg.ID: arg}}
	queue := []*program.Instruction{call}
	queued := map[*program.Instruction]bool{call: true}
	found := map[string]bool{}

	for len(queue) > 0 {
		instr := queue[0]
		queue = queue[1:]
		queued[instr] = false
		cands := candidates[instr]

		for _, d := range instr.Defs {
			if !cands.Contains(d.ID) {
				continue
			}
			cands.Add(instr.Uses)
			if instr.Call != nil {
				for _, callee := range instr.Call.Callees {
					ref := program.Invoke(callee, d.Type)
					cands[ref.ID] = ref
				}
			}
		}

		if m.Body.IsHead(instr) {
			for _, c := range cands {
				if c.Kind == program.CallRef || c.IsLiteral() {
					found[c.Text] = true
				}
			}
		}

		for _, pred := range m.Body.AllPreds(instr) {
			if grow(candidates, pred, cands) && !queued[pred] {
				queued[pred] = true
				queue = append(queue, pred)
			}
		}
	}

	res := make([]string, 0, len(found))
	for desc := range found {
		res = append(res, desc)
	}
	sort.Strings(res)
	r.logger.Tracef("default values of %s at %s: %v\n", arg, call, res)
	return res
}

// grow adds refs to the candidates of instr and returns true if the set changed
func grow(candidates map[*program.Instruction]taintwalk.RefSet, instr *program.Instruction, refs taintwalk.RefSet) bool {
	cur, ok := candidates[instr]
	if !ok {
		cur = taintwalk.RefSet{}
		candidates[instr] = cur
	}
	changed := !ok
	for id, ref := range refs {
		if _, present := cur[id]; !present {
			cur[id] = ref
			changed = true
		}
	}
	return changed
}
