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

package graphutil

import (
	"sort"

	"github.com/awslabs/attr-provenance/analysis/program"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TopoPositions assigns to every instruction of body a position such that, for any edge a -> b of the control-flow
// graph (normal or exceptional) that is not inside a loop, pos[a] < pos[b]. Instructions of the same strongly
// connected component are ordered by their index in the body.
func TopoPositions(body *program.Body) map[*program.Instruction]int {
	instrs := body.Instructions()
	n := len(instrs)
	g := simple.NewDirectedGraph()
	for _, instr := range instrs {
		g.AddNode(simple.Node(instr.Index))
	}
	for _, instr := range instrs {
		for _, s := range body.AllSuccs(instr) {
			if s.Index == instr.Index {
				continue // simple graphs have no self edges; a self loop does not change the order
			}
			g.SetEdge(g.NewEdge(simple.Node(instr.Index), simple.Node(s.Index)))
		}
	}

	// TarjanSCC returns the components in reverse topological order
	sccs := topo.TarjanSCC(g)
	pos := make(map[*program.Instruction]int, n)
	for i, comp := range sccs {
		rank := len(sccs) - 1 - i
		ids := make([]int, len(comp))
		for k, node := range comp {
			ids[k] = int(node.ID())
		}
		sort.Ints(ids)
		for _, id := range ids {
			pos[instrs[id]] = rank*n + id
		}
	}
	return pos
}
