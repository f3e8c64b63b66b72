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
	"testing"

	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveClusters(t *testing.T) {
	g := program.NewGraph()
	g.AddEdge("main", "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	g.AddEdge("b", "c")
	g.AddEdge("self", "self")
	g.AddEdge("main", "self")

	assert.Equal(t, [][]string{{"a", "b"}, {"self"}}, RecursiveClusters(g))
	assert.Empty(t, RecursiveClusters(program.NewGraph()))

	c := NewCGraph(g)
	assert.Len(t, c.Names, 5)
	assert.True(t, c.Graph.Edge(c.IDs["main"], c.IDs["a"]))
	assert.False(t, c.Graph.Edge(c.IDs["a"], c.IDs["main"]))
}

func TestTopoPositions(t *testing.T) {
	b := program.NewMethod("pkg.loop", "pkg")
	entry := b.Add(&program.Instruction{Line: 9})
	head := b.Add(&program.Instruction{Line: 10, Kind: program.If, Cond: "i < n"})
	body := b.Add(&program.Instruction{Line: 11})
	exit := b.Add(&program.Instruction{Line: 12, Kind: program.Return})
	b.Sequence(entry, head).Branch(head, body).Fallthrough(head, exit).Fallthrough(body, head)
	m := b.Build()

	pos := TopoPositions(m.Body)
	require.Len(t, pos, 4)
	assert.Less(t, pos[entry], pos[head])
	assert.Less(t, pos[head], pos[body])
	assert.Less(t, pos[head], pos[exit])
	assert.Less(t, pos[body], pos[exit])
}

func TestTopoPositionsIgnoresLines(t *testing.T) {
	b := program.NewMethod("pkg.reordered", "pkg")
	// instruction order disagrees with the source lines
	first := b.Add(&program.Instruction{Line: 30})
	second := b.Add(&program.Instruction{Line: 5})
	b.Sequence(first, second)
	m := b.Build()

	pos := TopoPositions(m.Body)
	assert.Less(t, pos[first], pos[second])
}
