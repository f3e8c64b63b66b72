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

package defaults

import (
	"testing"

	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/stretchr/testify/assert"
)

func getInt(line int, def program.Ref) *program.Instruction {
	return &program.Instruction{
		Line: line,
		Text: "v = t.getInt(i, " + def.Text + ")",
		Uses: []program.Ref{program.Local("t", "*pkg.TypedArray"), program.Local("i", "int"), def},
		Defs: []program.Ref{program.Local("v", "int")},
		Call: &program.Call{Name: "getInt", Callees: []string{"pkg.TypedArray.getInt"},
			Args: []program.Ref{program.Local("i", "int"), def}},
	}
}

func TestResolveLiteral(t *testing.T) {
	b := program.NewMethod("pkg.V.f", "pkg.V")
	lit := program.Const("42", "int")
	call := b.Add(getInt(1, lit))
	m := b.Build()

	assert.Equal(t, []string{"42"}, NewResolver(nil).Resolve(m, call, lit))
	field := program.Field("R.attr.size", "int")
	assert.Equal(t, []string{"R.attr.size"}, NewResolver(nil).Resolve(m, call, field))
}

func TestResolveThroughLocals(t *testing.T) {
	d := program.Local("d", "int")
	b := program.NewMethod("pkg.V.f", "pkg.V")
	load := b.Add(&program.Instruction{Line: 1, Text: "d = this.defaultSize",
		Uses: []program.Ref{program.Receiver("pkg.V"), program.Field("this.defaultSize", "int")},
		Defs: []program.Ref{d}})
	other := b.Add(&program.Instruction{Line: 2, Text: "x = compute()", Defs: []program.Ref{program.Local("x", "int")},
		Call: &program.Call{Name: "compute", Callees: []string{"pkg.compute"}}})
	call := b.Add(getInt(3, d))
	b.Sequence(load, other, call)
	m := b.Build()

	assert.Equal(t, []string{"this.defaultSize"}, NewResolver(nil).Resolve(m, call, d))
}

func TestResolveBranches(t *testing.T) {
	d := program.Local("d", "int")
	b := program.NewMethod("pkg.V.f", "pkg.V")
	cond := b.Add(&program.Instruction{Line: 1, Kind: program.If, Cond: "c", Text: "if c"})
	lit := b.Add(&program.Instruction{Line: 2, Text: "d = 1", Uses: []program.Ref{program.Const("1", "int")},
		Defs: []program.Ref{d}})
	inv := b.Add(&program.Instruction{Line: 4, Text: "d = getDefault()", Defs: []program.Ref{d},
		Call: &program.Call{Name: "getDefault", Callees: []string{"pkg.getDefault"}}})
	call := b.Add(getInt(6, d))
	b.Branch(cond, lit).Fallthrough(cond, inv).Sequence(lit, call).Sequence(inv, call)
	m := b.Build()

	assert.Equal(t, []string{"1", "pkg.getDefault"}, NewResolver(nil).Resolve(m, call, d))
}

func TestResolveLoop(t *testing.T) {
	d := program.Local("d", "int")
	b := program.NewMethod("pkg.V.f", "pkg.V")
	init := b.Add(&program.Instruction{Line: 1, Text: "d = 0", Uses: []program.Ref{program.Const("0", "int")},
		Defs: []program.Ref{d}})
	head := b.Add(&program.Instruction{Line: 2, Kind: program.If, Cond: "d < n", Uses: []program.Ref{d}})
	inc := b.Add(&program.Instruction{Line: 3, Text: "d = d + 2", Uses: []program.Ref{d, program.Const("2", "int")},
		Defs: []program.Ref{d}})
	call := b.Add(getInt(4, d))
	b.Sequence(init, head).Branch(head, inc).Fallthrough(inc, head).Fallthrough(head, call)
	m := b.Build()

	assert.Equal(t, []string{"0", "2"}, NewResolver(nil).Resolve(m, call, d))
}

func TestResolveThroughExceptionalEdge(t *testing.T) {
	d := program.Local("d", "int")
	b := program.NewMethod("pkg.V.f", "pkg.V")
	def := b.Add(&program.Instruction{Line: 1, Text: "d = 7", Uses: []program.Ref{program.Const("7", "int")},
		Defs: []program.Ref{d}})
	risky := b.Add(&program.Instruction{Line: 2, Text: "x = parse()", Defs: []program.Ref{program.Local("x", "int")},
		Call: &program.Call{Name: "parse", Callees: []string{"pkg.parse"}}})
	ret := b.Add(&program.Instruction{Line: 3, Text: "return x", Kind: program.Return, Uses: []program.Ref{program.Local("x", "int")}})
	call := b.Add(getInt(5, d))
	b.Sequence(def, risky, ret).Exceptional(risky, call)
	m := b.Build()

	assert.Equal(t, []string{"7"}, NewResolver(nil).Resolve(m, call, d))
}

func TestResolveNoBody(t *testing.T) {
	m := program.NoBody("pkg.V.g", "pkg.V")
	assert.Nil(t, NewResolver(nil).Resolve(m, nil, program.Local("d", "int")))
}
