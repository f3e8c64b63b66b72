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

package attrscan

import (
	"bytes"
	"context"
	"testing"

	"github.com/awslabs/attr-provenance/analysis/classify"
	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func local(id string) program.Ref { return program.Local(id, "int") }

// fixture is a small program with its source text
type fixture struct {
	prog *program.Program
	cg   *program.Graph
	src  program.MapSource
}

func newFixture() *fixture {
	return &fixture{prog: program.NewProgram(), cg: program.NewGraph(), src: program.MapSource{}}
}

// add adds a method whose instructions are linked in sequence, and the source line of each instruction
func (f *fixture) add(sig, class string, instrs []*program.Instruction, lines []string) *program.Method {
	b := program.NewMethod(sig, class).At(class+".go", instrs[0].Line, instrs[len(instrs)-1].Line)
	for _, instr := range instrs {
		b.Add(instr)
	}
	b.Sequence(instrs...)
	m := f.prog.AddMethod(b.Build())
	f.src[sig] = map[int]string{}
	for i, line := range lines {
		if line != "" {
			f.src[sig][instrs[i].Line] = line
		}
	}
	return m
}

func (f *fixture) scanner(cfg *config.Config) *Scanner {
	return NewScanner(nil, cfg, f.prog, f.cg, f.src, nil)
}

// attributeMethod: v is read from the attribute table on line 10 and used on lines 50 and 60
func attributeMethod(f *fixture) *program.Method {
	return f.add("pkg.View.init", "pkg.View", []*program.Instruction{
		{Line: 10, Text: "v = lookup(R.styleable.View_size)", Uses: []program.Ref{program.Field("R.styleable.View_size", "int")}, Defs: []program.Ref{local("v")}},
		{Line: 20, Text: "x = other()", Defs: []program.Ref{local("x")}},
		{Line: 50, Text: "use(v)", Uses: []program.Ref{local("v")}},
		{Line: 60, Text: "w = v + x", Uses: []program.Ref{local("v"), local("x")}, Defs: []program.Ref{local("w")}},
	}, []string{
		"v := lookup(R.styleable.View_size)",
		"x := other()",
		"use(v)",
		"w := v + x",
	})
}

func TestScanSingleSource(t *testing.T) {
	f := newFixture()
	m := attributeMethod(f)
	s := f.scanner(nil)

	res := s.Scan(m, []int{50}, "")
	require.Len(t, res, 1)
	assert.Equal(t, Key{Line: 10, Signature: "pkg.View.init"}, res[0].Key())
	assert.Equal(t, "View_size", res[0].Attribute)
	assert.Equal(t, 0, res[0].Depth)
	assert.Equal(t, classify.None, res[0].DeclaredType)
	assert.Equal(t, classify.NoTheme, res[0].Theme)
	assert.Empty(t, res[0].Trace)
}

func TestScanDeduplicates(t *testing.T) {
	f := newFixture()
	m := attributeMethod(f)
	s := f.scanner(nil)

	res := s.Scan(m, []int{50, 60}, "")
	require.Len(t, res, 1)
	assert.Equal(t, 10, res[0].Line)

	// a second scan finds the same source and creates nothing
	assert.Empty(t, s.Scan(m, []int{60}, ""))
	assert.Equal(t, 1, s.Results().Len())
}

func TestScanMissingSource(t *testing.T) {
	f := newFixture()
	m := attributeMethod(f)
	delete(f.src["pkg.View.init"], 10)

	assert.Empty(t, f.scanner(nil).Scan(m, []int{50}, ""))
}

func TestScanNoBody(t *testing.T) {
	f := newFixture()
	m := f.prog.AddMethod(program.NoBody("pkg.View.native", "pkg.View"))
	assert.Empty(t, f.scanner(nil).Scan(m, []int{1}, ""))
}

// chain builds h -> g -> f where each method reads an attribute passed down to its callee
func chain(f *fixture) (callee *program.Method) {
	callee = f.add("pkg.V.f", "pkg.V", []*program.Instruction{
		{Line: 10, Text: "y = p * 2", Uses: []program.Ref{program.Param("p", "int"), program.Const("2", "int")}, Defs: []program.Ref{local("y")}},
		{Line: 11, Text: "use(y)", Uses: []program.Ref{local("y")}},
	}, []string{"y := p * 2 // R.styleable.V_p", "use(y)"})

	f.add("pkg.A.g", "pkg.A", []*program.Instruction{
		{Line: 95, Text: "x = lookup(R.styleable.A_x)", Uses: []program.Ref{program.Field("R.styleable.A_x", "int")}, Defs: []program.Ref{local("x")}},
		{Line: 100, Text: "r = v.f(x)", Uses: []program.Ref{local("x")}, Defs: []program.Ref{local("r")},
			Call: &program.Call{Name: "f", Callees: []string{"pkg.V.f"}, Args: []program.Ref{local("x")}}},
	}, []string{"x := lookup(R.styleable.A_x)", "r := v.f(x)"})
	f.cg.AddEdge("pkg.A.g", "pkg.V.f")

	f.add("pkg.B.h", "pkg.B", []*program.Instruction{
		{Line: 195, Text: "z = lookup(R.styleable.B_z)", Uses: []program.Ref{program.Field("R.styleable.B_z", "int")}, Defs: []program.Ref{local("z")}},
		{Line: 200, Text: "g(z)", Uses: []program.Ref{local("z")},
			Call: &program.Call{Name: "g", Callees: []string{"pkg.A.g"}, Args: []program.Ref{local("z")}}},
	}, []string{"z := lookup(R.styleable.B_z)", "g(z)"})
	f.cg.AddEdge("pkg.B.h", "pkg.A.g")
	return callee
}

func TestScanCallers(t *testing.T) {
	f := newFixture()
	callee := chain(f)

	res := f.scanner(nil).Scan(callee, []int{11}, "")
	require.Len(t, res, 2)
	assert.Equal(t, Key{Line: 95, Signature: "pkg.A.g"}, res[0].Key())
	assert.Equal(t, 1, res[0].Depth)
	assert.Equal(t, []string{"pkg.V.f"}, res[0].Trace)
	assert.Equal(t, "A_x", res[0].Attribute)
	assert.Equal(t, Key{Line: 10, Signature: "pkg.V.f"}, res[1].Key())
	assert.Equal(t, 0, res[1].Depth)
}

func TestScanDepthBound(t *testing.T) {
	for _, maxDepth := range []int{0, 1, 2, 3} {
		f := newFixture()
		callee := chain(f)
		// a recursive edge does not make the scan diverge
		f.cg.AddEdge("pkg.B.h", "pkg.B.h")

		cfg := config.NewDefault()
		cfg.MaxDepth = maxDepth
		res := f.scanner(cfg).Scan(callee, []int{11}, "")
		require.NotEmpty(t, res)
		for _, src := range res {
			assert.LessOrEqual(t, src.Depth, maxDepth+1)
			assert.LessOrEqual(t, src.Depth, maxDepth)
		}
		assert.Len(t, res, min(maxDepth, 2)+1)
	}
}

func TestScanDefaults(t *testing.T) {
	f := newFixture()
	d := local("d")
	m := f.add("pkg.View.init", "pkg.View", []*program.Instruction{
		{Line: 20, Text: "d = 5", Uses: []program.Ref{program.Const("5", "int")}, Defs: []program.Ref{d}},
		{Line: 30, Text: "v = a.getInt(R.styleable.View_count, d)",
			Uses: []program.Ref{local("a"), program.Field("R.styleable.View_count", "int"), d}, Defs: []program.Ref{local("v")},
			Call: &program.Call{Name: "getInt", Callees: []string{"pkg.TypedArray.getInt"},
				Args: []program.Ref{program.Field("R.styleable.View_count", "int"), d}}},
		{Line: 31, Text: "use(v)", Uses: []program.Ref{local("v")}},
	}, []string{"d := 5", "v := a.getInt(R.styleable.View_count, d)", "use(v)"})
	s := f.scanner(nil)

	res := s.Scan(m, []int{31}, "")
	require.Len(t, res, 1)
	assert.Equal(t, classify.Integer, res[0].DeclaredType)
	assert.Equal(t, []DefaultPair{{Attribute: "View_count", Default: "5"}}, s.Results().Defaults())
}

func TestScanNoDefaultForAttributeName(t *testing.T) {
	f := newFixture()
	ns, name := program.Local("ns", "string"), program.Local("name", "string")
	m := f.add("pkg.View.init", "pkg.View", []*program.Instruction{
		{Line: 20, Text: "name = \"size\"", Uses: []program.Ref{program.Const("\"size\"", "string")}, Defs: []program.Ref{name}},
		{Line: 30, Text: "v = set.getAttributeValue(ns, name)", Uses: []program.Ref{local("set"), ns, name}, Defs: []program.Ref{local("v")},
			Call: &program.Call{Name: "getAttributeValue", Callees: []string{"pkg.AttributeSet.getAttributeValue"}, Args: []program.Ref{ns, name}}},
		{Line: 31, Text: "use(v)", Uses: []program.Ref{local("v")}},
	}, []string{"name := \"size\"", "v := set.getAttributeValue(ns, name) // R.styleable.View_size", "use(v)"})
	s := f.scanner(nil)

	res := s.Scan(m, []int{31}, "")
	require.Len(t, res, 1)
	assert.Equal(t, classify.String, res[0].DeclaredType)
	assert.Empty(t, s.Results().Defaults())
}

// crossCaller builds a callee registered before its caller: pkg.C.c reads a boolean and pkg.A.a passes it a value
// read from the attribute table, then reads an integer from the same value
func crossCaller(f *fixture) {
	f.add("pkg.C.c", "pkg.C", []*program.Instruction{
		{Line: 30, Text: "b = t.getBoolean(p, false)", Uses: []program.Ref{local("t"), program.Param("p", "int")}, Defs: []program.Ref{local("b")}},
	}, []string{"b := t.getBoolean(p, false)"})
	f.add("pkg.A.a", "pkg.A", []*program.Instruction{
		{Line: 10, Text: "x = lookup(R.styleable.Foo)", Uses: []program.Ref{program.Field("R.styleable.Foo", "int")}, Defs: []program.Ref{local("x")}},
		{Line: 15, Text: "c(x)", Uses: []program.Ref{local("x")}, Call: &program.Call{Name: "c", Callees: []string{"pkg.C.c"}, Args: []program.Ref{local("x")}}},
		{Line: 20, Text: "y = t.getInt(x, 0)", Uses: []program.Ref{local("t"), local("x")}, Defs: []program.Ref{local("y")}},
	}, []string{"x := lookup(R.styleable.Foo)", "c(x)", "y := t.getInt(x, 0)"})
	f.cg.AddEdge("pkg.A.a", "pkg.C.c")
}

// sourceSummary is the part of a source that depends on which scan recorded it
type sourceSummary struct {
	Key   Key
	Depth int
	Trace []string
}

func summarize(srcs []*PotentialSource) []sourceSummary {
	res := make([]sourceSummary, len(srcs))
	for i, s := range srcs {
		res[i] = sourceSummary{Key: s.Key(), Depth: s.Depth, Trace: s.Trace}
	}
	return res
}

func TestScanProgramIndependentOfWorkers(t *testing.T) {
	f := newFixture()
	crossCaller(f)

	run := func(workers int) *Results {
		cfg := config.NewDefault()
		cfg.Workers = workers
		s := f.scanner(cfg)
		require.NoError(t, s.ScanProgram(context.Background(), ""))
		return s.Results()
	}

	want := run(1)
	srcs := want.Sources()
	require.Len(t, srcs, 3)
	// the callee is scanned first and reaches the attribute through its caller
	assert.Equal(t, sourceSummary{Key: Key{Line: 10, Signature: "pkg.A.a"}, Depth: 1, Trace: []string{"pkg.C.c"}},
		summarize(srcs)[0])

	for i := 0; i < 50; i++ {
		got := run(4)
		require.Equal(t, summarize(srcs), summarize(got.Sources()))
		require.Equal(t, want.Defaults(), got.Defaults())
	}
}

func TestResultsMerge(t *testing.T) {
	first, second := NewResults(), NewResults()
	first.AddSource(&PotentialSource{Signature: "pkg.f", Line: 1, Depth: 1, Attribute: "a", defaults: []string{"1"}})
	second.AddSource(&PotentialSource{Signature: "pkg.f", Line: 1, Depth: 0, Attribute: "a", defaults: []string{"2"}})
	second.AddSource(&PotentialSource{Signature: "pkg.g", Line: 2, Attribute: "b", defaults: []string{"3"}})

	merged := NewResults()
	merged.Merge(first)
	merged.Merge(second)
	srcs := merged.Sources()
	require.Len(t, srcs, 2)
	assert.Equal(t, 1, srcs[0].Depth)
	assert.Equal(t, []DefaultPair{{Attribute: "a", Default: "1"}, {Attribute: "b", Default: "3"}}, merged.Defaults())
}

func TestScanProgram(t *testing.T) {
	f := newFixture()
	attributeMethod(f)
	f.add("pkg.View.measure", "pkg.View", []*program.Instruction{
		{Line: 70, Text: "h = a.getDimensionPixelSize(R.styleable.View_height, 0)",
			Uses: []program.Ref{local("a"), program.Field("R.styleable.View_height", "int")}, Defs: []program.Ref{local("h")}},
	}, []string{"h := a.getDimensionPixelSize(R.styleable.View_height, 0)"})
	f.add("other.Widget.measure", "other.Widget", []*program.Instruction{
		{Line: 5, Text: "h = a.getBoolean(R.styleable.W_b, false)",
			Uses: []program.Ref{local("a")}, Defs: []program.Ref{local("h")}},
	}, []string{"h := a.getBoolean(R.styleable.W_b, false)"})

	cfg := config.NewDefault()
	cfg.ClassFilter = "pkg."
	s := f.scanner(cfg)
	require.NoError(t, s.ScanProgram(context.Background(), "HEAD"))

	srcs := s.Results().Sources()
	require.Len(t, srcs, 1)
	assert.Equal(t, "pkg.View.measure", srcs[0].Signature)
	assert.Equal(t, classify.DimensionPixel, srcs[0].DeclaredType)
	assert.Equal(t, "HEAD", srcs[0].API)
	assert.Equal(t, []int{70}, s.SinkLines(f.prog.Method("pkg.View.measure")))
	assert.Empty(t, s.SinkLines(f.prog.Method("pkg.View.init")))
}

func TestScanProgramLogsRecursiveClusters(t *testing.T) {
	f := newFixture()
	chain(f)
	f.cg.AddEdge("pkg.V.f", "pkg.A.g")
	buf := &bytes.Buffer{}
	logger := config.NewLogGroupWithLevel(config.DebugLevel, buf)

	s := NewScanner(logger, nil, f.prog, f.cg, f.src, nil)
	require.NoError(t, s.ScanProgram(context.Background(), ""))
	assert.Contains(t, buf.String(), "recursive call cluster: [pkg.A.g pkg.V.f]")
	assert.NotContains(t, buf.String(), "pkg.B.h]")
}

func TestScanProgramCancelled(t *testing.T) {
	f := newFixture()
	f.add("pkg.View.measure", "pkg.View", []*program.Instruction{
		{Line: 70, Text: "h = a.getInt(R.styleable.View_height, 0)", Uses: []program.Ref{local("a")}, Defs: []program.Ref{local("h")}},
	}, []string{"h := a.getInt(R.styleable.View_height, 0)"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := f.scanner(nil)
	assert.ErrorIs(t, s.ScanProgram(ctx, ""), context.Canceled)
	assert.Equal(t, 0, s.Results().Len())
}

func TestScanChanges(t *testing.T) {
	f := newFixture()
	m := attributeMethod(f)
	s := f.scanner(nil)

	changes := program.Changes{Added: map[*program.Method][]int{m: {50}}, Deleted: map[*program.Method][]int{m: {60}}}
	require.NoError(t, s.ScanChanges(context.Background(), changes, ""))
	assert.Equal(t, 1, s.Results().Len())
}

func TestAttributeID(t *testing.T) {
	token := config.DefaultAttributeToken
	assert.Equal(t, "View_size", AttributeID("a.getInt(R.styleable.View_size, 0)", token))
	assert.Equal(t, "View.inner_1", AttributeID("x(R.styleable.View.inner_1)", token))
	assert.Equal(t, "", AttributeID("a.getInt(i, 0)", token))
	assert.Equal(t, "", AttributeID("R.styleable.", token))
	assert.Equal(t, "", AttributeID("anything", ""))
}

func TestScanIgnoredLines(t *testing.T) {
	f := newFixture()
	m := attributeMethod(f)
	s := f.scanner(nil)
	s.SetIgnored(func(filename string, line int) bool {
		return filename == "pkg.View.go" && line == 10
	})
	assert.Empty(t, s.Scan(m, []int{50}, ""))
}
