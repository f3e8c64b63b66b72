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

package ssaprogram

import (
	"go/token"
	"go/types"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/program"
	"golang.org/x/tools/go/ssa"
)

// run is a sequence of SSA instructions of one block sharing a source line
type run struct {
	line   int
	instrs []ssa.Instruction
}

// converter converts one function
type converter struct {
	fset  *token.FileSet
	f     *ssa.Function
	sig   string
	sites map[ssa.CallInstruction][]string
	start int
	// bypass is the set of blocks that only jump to another block
	bypass map[*ssa.BasicBlock]bool
	// blocks holds the instructions of each converted block
	blocks map[*ssa.BasicBlock][]*program.Instruction
}

func convert(prog *ssa.Program, f *ssa.Function, sites map[ssa.CallInstruction][]string) *program.Method {
	class, kind := classOf(f)
	file, start, end := extent(prog.Fset, f)
	if len(f.Blocks) == 0 {
		m := program.NoBody(f.String(), class)
		m.Name = f.Name()
		m.Kind = kind
		m.File, m.StartLine, m.EndLine = file, start, end
		return m
	}

	c := &converter{
		fset:   prog.Fset,
		f:      f,
		sig:    f.String(),
		sites:  sites,
		start:  start,
		bypass: bypassed(f),
		blocks: map[*ssa.BasicBlock][]*program.Instruction{},
	}
	mb := program.NewMethod(f.String(), class).Named(f.Name()).Kind(kind).At(file, start, end)
	for _, b := range f.Blocks {
		if c.bypass[b] {
			continue
		}
		for _, r := range c.runs(b) {
			c.blocks[b] = append(c.blocks[b], mb.Add(c.instruction(r)))
		}
		mb.Sequence(c.blocks[b]...)
	}
	c.link(mb)
	return mb.Build()
}

func extent(fset *token.FileSet, f *ssa.Function) (string, int, int) {
	if syn := f.Syntax(); syn != nil {
		start := fset.Position(syn.Pos())
		return start.Filename, start.Line, fset.Position(syn.End()).Line
	}
	pos := fset.Position(f.Pos())
	return pos.Filename, pos.Line, pos.Line
}

// bypassed returns the blocks, other than the entry and recover blocks, that consist of a single jump. Blocks on a
// cycle of such blocks are kept.
func bypassed(f *ssa.Function) map[*ssa.BasicBlock]bool {
	res := map[*ssa.BasicBlock]bool{}
	for _, b := range f.Blocks[1:] {
		if b == f.Recover || len(b.Instrs) != 1 {
			continue
		}
		if _, ok := b.Instrs[0].(*ssa.Jump); ok {
			res[b] = true
		}
	}
	for _, b := range f.Blocks {
		if !res[b] {
			continue
		}
		seen := map[*ssa.BasicBlock]bool{b: true}
		for next := b.Succs[0]; res[next]; next = next.Succs[0] {
			if seen[next] {
				delete(res, b)
				break
			}
			seen[next] = true
		}
	}
	return res
}

// target returns the first instruction of the first converted block reached from b
func (c *converter) target(b *ssa.BasicBlock) *program.Instruction {
	for c.bypass[b] {
		b = b.Succs[0]
	}
	return c.blocks[b][0]
}

// link adds the edges between blocks
func (c *converter) link(mb *program.MethodBuilder) {
	for _, b := range c.f.Blocks {
		instrs := c.blocks[b]
		if len(instrs) == 0 {
			continue
		}
		last := instrs[len(instrs)-1]
		switch b.Instrs[len(b.Instrs)-1].(type) {
		case *ssa.If:
			mb.Branch(last, c.target(b.Succs[0]))
			mb.Fallthrough(last, c.target(b.Succs[1]))
		case *ssa.Jump:
			mb.Fallthrough(last, c.target(b.Succs[0]))
		}
		if c.f.Recover == nil {
			continue
		}
		handler := c.target(c.f.Recover)
		if b == c.f.Recover {
			continue
		}
		for _, instr := range instrs {
			if instr.Call != nil || instr.Kind == program.Panic {
				mb.Exceptional(instr, handler)
			}
		}
	}
}

// positionOf returns the source position of instr. Phi nodes take the position of the variable they merge, which is
// not where they execute; they have no position here.
func (c *converter) positionOf(instr ssa.Instruction) token.Pos {
	if _, ok := instr.(*ssa.Phi); ok {
		return token.NoPos
	}
	return instr.Pos()
}

// runs groups the instructions of b by line. An instruction without a position belongs to the run of the previous
// instruction, or to the next run when it starts the block.
func (c *converter) runs(b *ssa.BasicBlock) []*run {
	var res []*run
	var pending []ssa.Instruction
	for _, instr := range b.Instrs {
		if _, ok := instr.(*ssa.DebugRef); ok {
			continue
		}
		pos := c.positionOf(instr)
		if !pos.IsValid() {
			if len(res) > 0 {
				res[len(res)-1].instrs = append(res[len(res)-1].instrs, instr)
			} else {
				pending = append(pending, instr)
			}
			continue
		}
		line := c.fset.Position(pos).Line
		if len(res) > 0 && res[len(res)-1].line == line {
			res[len(res)-1].instrs = append(res[len(res)-1].instrs, instr)
			continue
		}
		res = append(res, &run{line: line, instrs: append(pending, instr)})
		pending = nil
	}
	if len(pending) > 0 {
		res = append(res, &run{line: c.start, instrs: pending})
	}
	return res
}

// instruction converts a run into an instruction of the program model
func (c *converter) instruction(r *run) *program.Instruction {
	instr := &program.Instruction{Line: r.line}
	texts := make([]string, 0, len(r.instrs))
	uses := map[string]bool{}
	defs := map[string]bool{}
	for _, si := range r.instrs {
		texts = append(texts, c.text(si))
		for _, op := range si.Operands(nil) {
			if op == nil || *op == nil {
				continue
			}
			if ref, ok := c.ref(*op); ok && !uses[ref.ID] {
				uses[ref.ID] = true
				instr.Uses = append(instr.Uses, ref)
			}
		}
		if ref, ok := c.fieldRef(si); ok && !uses[ref.ID] {
			uses[ref.ID] = true
			instr.Uses = append(instr.Uses, ref)
		}
		if v, ok := si.(ssa.Value); ok && defines(v) && !defs[v.Name()] {
			defs[v.Name()] = true
			instr.Defs = append(instr.Defs, c.local(v))
		}
		if site, ok := si.(ssa.CallInstruction); ok {
			instr.Call = c.call(site)
		}
		switch si := si.(type) {
		case *ssa.If:
			instr.Kind = program.If
			instr.Cond = condText(si.Cond)
		case *ssa.Return:
			instr.Kind = program.Return
		case *ssa.Panic:
			instr.Kind = program.Panic
		}
	}
	instr.Text = strings.Join(texts, "; ")
	return instr
}

// defines returns true if v is a value with a result
func defines(v ssa.Value) bool {
	if v.Name() == "" {
		return false
	}
	if tuple, ok := v.Type().(*types.Tuple); ok && tuple.Len() == 0 {
		return false
	}
	return true
}

func condText(cond ssa.Value) string {
	if _, ok := cond.(ssa.Instruction); ok {
		return cond.String()
	}
	return cond.Name()
}

// ref returns the reference of a value. Functions and builtins are not values of interest.
func (c *converter) ref(v ssa.Value) (program.Ref, bool) {
	switch v := v.(type) {
	case *ssa.Function, *ssa.Builtin:
		return program.Ref{}, false
	case *ssa.Const:
		return program.Const(constText(v), types.TypeString(v.Type(), nil)), true
	case *ssa.Global:
		return program.Field(v.String(), types.TypeString(v.Type(), nil)), true
	case *ssa.Parameter:
		if c.f.Signature.Recv() != nil && len(c.f.Params) > 0 && v == c.f.Params[0] {
			return program.Receiver(types.TypeString(v.Type(), nil)), true
		}
		return program.Ref{ID: c.sig + ":" + v.Name(), Type: types.TypeString(v.Type(), nil),
			Kind: program.ParamRef, Text: v.Name()}, true
	}
	if v.Name() == "" {
		return program.Ref{}, false
	}
	return c.local(v), true
}

// local returns the reference of a value defined in the function. Identities are qualified by the function so that
// walks crossing into initializers do not confuse values of different functions.
func (c *converter) local(v ssa.Value) program.Ref {
	return program.Ref{ID: c.sig + ":" + v.Name(), Type: types.TypeString(v.Type(), nil),
		Kind: program.LocalRef, Text: v.Name()}
}

// fieldRef returns the reference of the field accessed by instr, if any. Field identities are shared by all the
// functions of the program.
func (c *converter) fieldRef(instr ssa.Instruction) (program.Ref, bool) {
	switch instr := instr.(type) {
	case *ssa.FieldAddr:
		if p, ok := instr.X.Type().Underlying().(*types.Pointer); ok {
			return field(p.Elem(), instr.Field)
		}
	case *ssa.Field:
		return field(instr.X.Type(), instr.Field)
	}
	return program.Ref{}, false
}

func field(owner types.Type, index int) (program.Ref, bool) {
	st, ok := owner.Underlying().(*types.Struct)
	if !ok || index >= st.NumFields() {
		return program.Ref{}, false
	}
	f := st.Field(index)
	id := typeName(owner) + "." + f.Name()
	return program.Field(id, types.TypeString(f.Type(), nil)), true
}

func constText(c *ssa.Const) string {
	if c.Value == nil {
		return "nil"
	}
	return c.Value.ExactString()
}

// valueText is the short rendering of a value in call texts
func valueText(v ssa.Value) string {
	if c, ok := v.(*ssa.Const); ok {
		return constText(c)
	}
	return v.Name()
}

func argsText(args []ssa.Value) string {
	texts := make([]string, len(args))
	for i, a := range args {
		texts[i] = valueText(a)
	}
	return strings.Join(texts, ", ")
}

// text renders an SSA instruction. Calls are rendered as recv.Name(args) so that accessor names can be matched.
func (c *converter) text(instr ssa.Instruction) string {
	prefix := ""
	if v, ok := instr.(ssa.Value); ok && defines(v) {
		prefix = v.Name() + " = "
	}
	switch instr := instr.(type) {
	case *ssa.Call:
		return prefix + callText(instr.Common())
	case *ssa.Go:
		return "go " + callText(instr.Common())
	case *ssa.Defer:
		return "defer " + callText(instr.Common())
	}
	return prefix + instr.String()
}

func callText(cc *ssa.CallCommon) string {
	if cc.IsInvoke() {
		return valueText(cc.Value) + "." + cc.Method.Name() + "(" + argsText(cc.Args) + ")"
	}
	if callee := cc.StaticCallee(); callee != nil {
		if callee.Signature.Recv() != nil && len(cc.Args) > 0 {
			return valueText(cc.Args[0]) + "." + callee.Name() + "(" + argsText(cc.Args[1:]) + ")"
		}
		return callee.Name() + "(" + argsText(cc.Args) + ")"
	}
	return valueText(cc.Value) + "(" + argsText(cc.Args) + ")"
}

// call returns the call descriptor of a call site. The receiver of a method call is not an argument.
func (c *converter) call(site ssa.CallInstruction) *program.Call {
	cc := site.Common()
	call := &program.Call{Callees: c.sites[site]}
	args := cc.Args
	switch {
	case cc.IsInvoke():
		call.Name = cc.Method.Name()
	case cc.StaticCallee() != nil:
		callee := cc.StaticCallee()
		call.Name = callee.Name()
		if callee.Signature.Recv() != nil && len(args) > 0 {
			args = args[1:]
		}
	default:
		call.Name = valueText(cc.Value)
	}
	for _, a := range args {
		if ref, ok := c.ref(a); ok {
			call.Args = append(call.Args, ref)
		}
	}
	return call
}
