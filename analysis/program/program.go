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

// Package program defines the read-only program model consumed by the attribute provenance analyses: methods,
// their instructions and control-flow graphs, classes with their initializers, call graphs, source text
// providers and diff providers.
//
// The model is produced by a front end (see the ssaprogram package for the Go SSA front end, or MethodBuilder
// for hand-built programs) and is never mutated by the analyses.
package program

import (
	"fmt"
	"strings"
)

// RefKind is the kind of operand a value reference denotes.
type RefKind int

const (
	// LocalRef is a local variable or SSA register
	LocalRef RefKind = iota
	// ParamRef is a method parameter
	ParamRef
	// FieldRef is a field or a global (static) variable
	FieldRef
	// ConstRef is a literal
	ConstRef
	// CallRef is the result of an invocation; its Text is the invoked signature
	CallRef
	// ReceiverRef is the implicit receiver of a method
	ReceiverRef
	// PlaceholderRef is a generic placeholder operand
	PlaceholderRef
)

func (k RefKind) String() string {
	switch k {
	case LocalRef:
		return "local"
	case ParamRef:
		return "param"
	case FieldRef:
		return "field"
	case ConstRef:
		return "const"
	case CallRef:
		return "call"
	case ReceiverRef:
		return "receiver"
	case PlaceholderRef:
		return "placeholder"
	default:
		return "unknown"
	}
}

// A Ref is a value reference. Two references are the same iff their IDs are equal.
type Ref struct {
	ID   string
	Type string
	Kind RefKind
	Text string
}

// Local returns a reference to a local variable.
func Local(id, typ string) Ref { return Ref{ID: id, Type: typ, Kind: LocalRef, Text: id} }

// Param returns a reference to a parameter.
func Param(id, typ string) Ref { return Ref{ID: id, Type: typ, Kind: ParamRef, Text: id} }

// Field returns a reference to a field or global variable.
func Field(id, typ string) Ref { return Ref{ID: id, Type: typ, Kind: FieldRef, Text: id} }

// Const returns a reference to a literal. Literals of the same type and text share their identity.
func Const(text, typ string) Ref {
	return Ref{ID: text + ":" + typ, Type: typ, Kind: ConstRef, Text: text}
}

// Invoke returns a reference standing for the result of invoking the method with signature sig.
func Invoke(sig, typ string) Ref { return Ref{ID: "call:" + sig, Type: typ, Kind: CallRef, Text: sig} }

// Receiver returns the reserved reference to the implicit receiver.
func Receiver(typ string) Ref { return Ref{ID: "this", Type: typ, Kind: ReceiverRef, Text: "this"} }

// Placeholder returns the reserved placeholder reference.
func Placeholder() Ref { return Ref{ID: "_", Kind: PlaceholderRef, Text: "_"} }

// Reserved returns true for the references that never take part in taint comparisons.
func (r Ref) Reserved() bool {
	return r.Kind == ReceiverRef || r.Kind == PlaceholderRef
}

// IsLiteral returns true when the reference is a literal or a field expression, i.e. it describes itself.
func (r Ref) IsLiteral() bool {
	return r.Kind == ConstRef || r.Kind == FieldRef
}

func (r Ref) String() string {
	if r.Text != "" {
		return r.Text
	}
	return r.ID
}

// InstrKind distinguishes the instructions the analyses treat specially.
type InstrKind int

const (
	// Plain is any instruction that does not alter control flow
	Plain InstrKind = iota
	// If is a binary conditional branch
	If
	// Switch is a multi-way branch
	Switch
	// Return exits the method
	Return
	// Panic exits the method abnormally
	Panic
)

// A Call describes the invocation performed by an instruction.
type Call struct {
	// Name is the invoked method's simple name, e.g. "GetInt"
	Name string
	// Callees is the set of candidate callee signatures. It has more than one element for dynamic dispatch.
	Callees []string
	// Args are the arguments, not including the receiver of a method call
	Args []Ref
}

// Calls returns true if sig is one of the candidate callees.
func (c *Call) Calls(sig string) bool {
	for _, callee := range c.Callees {
		if callee == sig {
			return true
		}
	}
	return false
}

// An Instruction is one node of a method's control-flow graph.
type Instruction struct {
	// Index is the position of the instruction in its method's instruction list
	Index int
	// Line is the source line, or 0 when unknown
	Line int
	// Text is the textual rendering of the instruction
	Text string
	Kind InstrKind
	// Cond is the condition text of an If instruction
	Cond string
	Uses []Ref
	Defs []Ref
	// Call is nil when the instruction does not invoke anything
	Call *Call

	method *Method
}

// Method returns the method the instruction belongs to.
func (i *Instruction) Method() *Method { return i.method }

// Refs returns the used and defined references of the instruction.
func (i *Instruction) Refs() []Ref {
	refs := make([]Ref, 0, len(i.Uses)+len(i.Defs))
	refs = append(refs, i.Uses...)
	return append(refs, i.Defs...)
}

// Defines returns true if the instruction defines the reference with identity id.
func (i *Instruction) Defines(id string) bool {
	for _, d := range i.Defs {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (i *Instruction) String() string {
	if i.method == nil {
		return fmt.Sprintf("[%d] %s", i.Index, i.Text)
	}
	return fmt.Sprintf("%s:%d [%d] %s", i.method.Signature, i.Line, i.Index, i.Text)
}

// MethodKind distinguishes initializers from regular methods.
type MethodKind int

const (
	// Regular methods and functions
	Regular MethodKind = iota
	// TypeInit is the type (static) initializer of a class
	TypeInit
	// InstanceInit is an instance initializer (constructor) of a class
	InstanceInit
)

// A Method is a unit of analysis. Methods without a body are unanalyzable.
type Method struct {
	Signature string
	Name      string
	Class     string
	Kind      MethodKind
	File      string
	StartLine int
	EndLine   int
	// Body is nil when the method has no resolved body
	Body *Body
}

// HasBody returns true if the method has a non-empty control-flow graph.
func (m *Method) HasBody() bool {
	return m != nil && m.Body != nil && m.Body.Len() > 0
}

// InstructionsAt returns the instructions of m whose line is one of lines, in instruction order.
func (m *Method) InstructionsAt(lines []int) []*Instruction {
	if !m.HasBody() || len(lines) == 0 {
		return nil
	}
	want := make(map[int]bool, len(lines))
	for _, l := range lines {
		want[l] = true
	}
	var res []*Instruction
	for _, instr := range m.Body.instrs {
		if instr.Line > 0 && want[instr.Line] {
			res = append(res, instr)
		}
	}
	return res
}

// CallsTo returns the call instructions of m that may invoke the method with signature sig.
func (m *Method) CallsTo(sig string) []*Instruction {
	if !m.HasBody() {
		return nil
	}
	var res []*Instruction
	for _, instr := range m.Body.instrs {
		if instr.Call != nil && instr.Call.Calls(sig) {
			res = append(res, instr)
		}
	}
	return res
}

// ContainsLine returns true if line is within the method's line range.
func (m *Method) ContainsLine(line int) bool {
	return m.StartLine > 0 && m.StartLine <= line && line <= m.EndLine
}

func (m *Method) String() string { return m.Signature }

// A Class groups the methods sharing an owner, and exposes its initializers.
type Class struct {
	Name          string
	TypeInit      *Method
	InstanceInits []*Method
}

// Initializer returns the instance initializer with the most instructions, or nil if the class has none.
// Ties are broken by declaration order.
func (c *Class) Initializer() *Method {
	var best *Method
	for _, m := range c.InstanceInits {
		if !m.HasBody() {
			continue
		}
		if best == nil || m.Body.Len() > best.Body.Len() {
			best = m
		}
	}
	return best
}

// InitializerTails returns the tail instructions of the type initializer and of the chosen instance initializer.
// When all is true, the tails of every instance initializer are returned instead of only the chosen one.
func (c *Class) InitializerTails(all bool) []*Instruction {
	if c == nil {
		return nil
	}
	var res []*Instruction
	if c.TypeInit.HasBody() {
		res = append(res, c.TypeInit.Body.Tails()...)
	}
	if all {
		for _, m := range c.InstanceInits {
			if m.HasBody() {
				res = append(res, m.Body.Tails()...)
			}
		}
	} else if init := c.Initializer(); init != nil {
		res = append(res, init.Body.Tails()...)
	}
	return res
}

// A Program is the collection of methods under analysis.
type Program struct {
	methods []*Method
	bySig   map[string]*Method
	classes map[string]*Class
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		bySig:   map[string]*Method{},
		classes: map[string]*Class{},
	}
}

// AddMethod registers m in the program. A method with an already registered signature is ignored and the existing
// one is returned.
func (p *Program) AddMethod(m *Method) *Method {
	if prev, ok := p.bySig[m.Signature]; ok {
		return prev
	}
	p.methods = append(p.methods, m)
	p.bySig[m.Signature] = m
	c := p.classes[m.Class]
	if c == nil {
		c = &Class{Name: m.Class}
		p.classes[m.Class] = c
	}
	switch m.Kind {
	case TypeInit:
		c.TypeInit = m
	case InstanceInit:
		c.InstanceInits = append(c.InstanceInits, m)
	}
	return m
}

// Methods returns the methods whose class name starts with prefix, in registration order.
func (p *Program) Methods(prefix string) []*Method {
	var res []*Method
	for _, m := range p.methods {
		if strings.HasPrefix(m.Class, prefix) {
			res = append(res, m)
		}
	}
	return res
}

// Method returns the method with signature sig, or nil.
func (p *Program) Method(sig string) *Method { return p.bySig[sig] }

// Class returns the class named name, or nil.
func (p *Program) Class(name string) *Class { return p.classes[name] }

// Len returns the number of methods in the program.
func (p *Program) Len() int { return len(p.methods) }
