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

package program

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamond() (*Method, []*Instruction) {
	b := NewMethod("pkg.f", "pkg")
	i0 := b.Add(&Instruction{Line: 1, Kind: If, Cond: "x > 0"})
	i1 := b.Add(&Instruction{Line: 2})
	i2 := b.Add(&Instruction{Line: 3})
	i3 := b.Add(&Instruction{Line: 4, Kind: Return})
	b.Branch(i0, i1).Fallthrough(i0, i2).Sequence(i1, i3).Sequence(i2, i3)
	return b.Build(), []*Instruction{i0, i1, i2, i3}
}

func TestBodyEdges(t *testing.T) {
	m, is := diamond()
	require.True(t, m.HasBody())
	body := m.Body
	assert.Equal(t, []*Instruction{is[1]}, body.BranchTargets(is[0]))
	assert.Equal(t, []*Instruction{is[2]}, body.FallThrough(is[0]))
	assert.ElementsMatch(t, []*Instruction{is[1], is[2]}, body.Succs(is[0]))
	assert.ElementsMatch(t, []*Instruction{is[1], is[2]}, body.Preds(is[3]))
	assert.Equal(t, []*Instruction{is[0]}, body.Heads())
	assert.Equal(t, []*Instruction{is[3]}, body.Tails())
	assert.Equal(t, m, is[2].Method())

	inv := body.Inverse()
	assert.ElementsMatch(t, []*Instruction{is[1], is[2]}, inv.Succs(is[3]))
	assert.Empty(t, inv.Succs(is[0]))
}

func TestExceptionalEdges(t *testing.T) {
	b := NewMethod("pkg.g", "pkg")
	i0 := b.Add(&Instruction{Line: 1})
	i1 := b.Add(&Instruction{Line: 2, Kind: Return})
	h := b.Add(&Instruction{Line: 5, Kind: Return})
	b.Sequence(i0, i1).Exceptional(i0, h)
	m := b.Build()

	assert.Empty(t, m.Body.Preds(h))
	assert.Equal(t, []*Instruction{i0}, m.Body.AllPreds(h))
	assert.ElementsMatch(t, []*Instruction{i1, h}, m.Body.AllSuccs(i0))
	// the handler has an exceptional predecessor, it is not a head
	assert.Equal(t, []*Instruction{i0}, m.Body.Heads())
}

func TestInstructionsAtAndCallsTo(t *testing.T) {
	b := NewMethod("pkg.h", "pkg")
	i0 := b.Add(&Instruction{Line: 10, Call: &Call{Name: "g", Callees: []string{"pkg.g"}}})
	i1 := b.Add(&Instruction{Line: 10})
	i2 := b.Add(&Instruction{Line: 11, Call: &Call{Name: "g", Callees: []string{"pkg.g", "pkg.k"}}})
	b.Sequence(i0, i1, i2)
	m := b.Build()

	assert.Equal(t, []*Instruction{i0, i1}, m.InstructionsAt([]int{10}))
	assert.Empty(t, m.InstructionsAt([]int{42}))
	assert.Equal(t, []*Instruction{i2}, m.CallsTo("pkg.k"))
	assert.Len(t, m.CallsTo("pkg.g"), 2)
	assert.Nil(t, NoBody("pkg.x", "pkg").InstructionsAt([]int{1}))
}

func TestClassInitializer(t *testing.T) {
	p := NewProgram()
	small := NewMethod("C.<init>()", "C").Kind(InstanceInit)
	small.Add(&Instruction{Line: 1})
	big := NewMethod("C.<init>(int)", "C").Kind(InstanceInit)
	b0 := big.Add(&Instruction{Line: 3})
	b1 := big.Add(&Instruction{Line: 4})
	big.Sequence(b0, b1)
	clinit := NewMethod("C.<clinit>()", "C").Kind(TypeInit)
	c0 := clinit.Add(&Instruction{Line: 2})

	p.AddMethod(small.Build())
	bigM := p.AddMethod(big.Build())
	p.AddMethod(clinit.Build())

	c := p.Class("C")
	require.NotNil(t, c)
	assert.Equal(t, bigM, c.Initializer())
	assert.ElementsMatch(t, []*Instruction{c0, b1}, c.InitializerTails(false))
	assert.Len(t, c.InitializerTails(true), 3)

	empty := &Class{Name: "D"}
	assert.Nil(t, empty.Initializer())
	assert.Nil(t, (*Class)(nil).InitializerTails(false))
}

func TestProgramMethods(t *testing.T) {
	p := NewProgram()
	a := p.AddMethod(NoBody("a.f", "app.A"))
	p.AddMethod(NoBody("b.f", "lib.B"))
	assert.Equal(t, a, p.AddMethod(NoBody("a.f", "other")))
	assert.Equal(t, []*Method{a}, p.Methods("app."))
	assert.Len(t, p.Methods(""), 2)
	assert.Equal(t, a, p.Method("a.f"))
	assert.False(t, a.HasBody())
}

func TestGraph(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")
	g.AddEdge("c", "b")
	assert.Len(t, g.EdgesTargeting("b"), 2)
	assert.Equal(t, []Edge{{Caller: "a", Callee: "b"}}, g.EdgesFrom("a"))
	assert.Equal(t, []string{"a", "b", "c"}, g.Nodes())
	assert.Equal(t, 2, g.NumEdges())
}

func TestMapSource(t *testing.T) {
	m := NoBody("a.f", "A")
	src := MapSource{"a.f": {3: "x := 1"}}
	text, err := src.ReadLine("", m, 3)
	require.NoError(t, err)
	assert.Equal(t, "x := 1", text)
	_, err = src.ReadLine("", m, 4)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = src.ReadLine("", NoBody("b.f", "B"), 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRefs(t *testing.T) {
	assert.True(t, Receiver("T").Reserved())
	assert.True(t, Placeholder().Reserved())
	assert.False(t, Local("x", "int").Reserved())
	assert.True(t, Const("0", "int").IsLiteral())
	assert.True(t, Field("R.styleable.X", "int").IsLiteral())
	assert.Equal(t, Const("0", "int").ID, Const("0", "int").ID)
	assert.NotEqual(t, Const("0", "int").ID, Const("0", "float").ID)

	i := &Instruction{Uses: []Ref{Local("a", "")}, Defs: []Ref{Local("b", "")}}
	assert.Len(t, i.Refs(), 2)
	assert.True(t, i.Defines("b"))
	assert.False(t, i.Defines("a"))
}
