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

// A Body is the control-flow graph of a method. Edges are stored by instruction index and split into fall-through,
// branch-taken and exceptional edges.
type Body struct {
	instrs []*Instruction
	fall   [][]int
	branch [][]int
	exc    [][]int
	preds  [][]int // normal predecessors
	epreds [][]int // exceptional predecessors
	heads  []int
	tails  []int
}

// Len returns the number of instructions in the body.
func (b *Body) Len() int {
	if b == nil {
		return 0
	}
	return len(b.instrs)
}

// Instructions returns the instructions of the body, in order.
func (b *Body) Instructions() []*Instruction { return b.instrs }

// Heads returns the entry instruction and every instruction without any predecessor.
func (b *Body) Heads() []*Instruction { return b.get(b.heads) }

// Tails returns the instructions without any normal successor.
func (b *Body) Tails() []*Instruction { return b.get(b.tails) }

// IsHead returns true if instr is one of the heads of the body.
func (b *Body) IsHead(instr *Instruction) bool {
	for _, h := range b.heads {
		if h == instr.Index {
			return true
		}
	}
	return false
}

// FallThrough returns the successors reached when instr does not branch.
func (b *Body) FallThrough(instr *Instruction) []*Instruction { return b.get(b.fall[instr.Index]) }

// BranchTargets returns the successors reached when instr branches.
func (b *Body) BranchTargets(instr *Instruction) []*Instruction { return b.get(b.branch[instr.Index]) }

// Succs returns the normal (fall-through and branch) successors of instr.
func (b *Body) Succs(instr *Instruction) []*Instruction {
	return b.get(union(b.fall[instr.Index], b.branch[instr.Index]))
}

// ExceptionalSuccs returns the successors of instr reached when it panics.
func (b *Body) ExceptionalSuccs(instr *Instruction) []*Instruction { return b.get(b.exc[instr.Index]) }

// AllSuccs returns the normal and exceptional successors of instr.
func (b *Body) AllSuccs(instr *Instruction) []*Instruction {
	i := instr.Index
	return b.get(union(union(b.fall[i], b.branch[i]), b.exc[i]))
}

// Preds returns the normal predecessors of instr.
func (b *Body) Preds(instr *Instruction) []*Instruction { return b.get(b.preds[instr.Index]) }

// AllPreds returns the normal and exceptional predecessors of instr.
func (b *Body) AllPreds(instr *Instruction) []*Instruction {
	return b.get(union(b.preds[instr.Index], b.epreds[instr.Index]))
}

// Inverse returns the body with every edge reversed. The instructions are shared with b; fall-through and branch
// edges both become fall-through edges of the inverse.
func (b *Body) Inverse() *Body {
	n := len(b.instrs)
	inv := &Body{
		instrs: b.instrs,
		fall:   make([][]int, n),
		branch: make([][]int, n),
		exc:    make([][]int, n),
	}
	for i := 0; i < n; i++ {
		inv.fall[i] = append([]int(nil), b.preds[i]...)
		inv.exc[i] = append([]int(nil), b.epreds[i]...)
	}
	inv.index()
	return inv
}

func (b *Body) get(idx []int) []*Instruction {
	res := make([]*Instruction, len(idx))
	for k, i := range idx {
		res[k] = b.instrs[i]
	}
	return res
}

// index computes the predecessor lists, heads and tails from the successor lists.
func (b *Body) index() {
	n := len(b.instrs)
	b.preds = make([][]int, n)
	b.epreds = make([][]int, n)
	for i := 0; i < n; i++ {
		for _, s := range union(b.fall[i], b.branch[i]) {
			b.preds[s] = union(b.preds[s], []int{i})
		}
		for _, s := range b.exc[i] {
			b.epreds[s] = union(b.epreds[s], []int{i})
		}
	}
	b.heads = nil
	b.tails = nil
	for i := 0; i < n; i++ {
		if i == 0 || (len(b.preds[i]) == 0 && len(b.epreds[i]) == 0) {
			b.heads = append(b.heads, i)
		}
		if len(b.fall[i]) == 0 && len(b.branch[i]) == 0 {
			b.tails = append(b.tails, i)
		}
	}
}

// union returns a followed by the elements of b not in a.
func union(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	res := append([]int(nil), a...)
	for _, x := range b {
		found := false
		for _, y := range a {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			res = append(res, x)
		}
	}
	return res
}

// A MethodBuilder constructs a Method and its Body. Front ends add instructions in order and then link them.
type MethodBuilder struct {
	m    *Method
	body *Body
}

// NewMethod starts building a regular method with signature sig belonging to class.
func NewMethod(sig, class string) *MethodBuilder {
	return &MethodBuilder{
		m:    &Method{Signature: sig, Name: sig, Class: class},
		body: &Body{},
	}
}

// NoBody returns a method without a body.
func NoBody(sig, class string) *Method {
	return &Method{Signature: sig, Name: sig, Class: class}
}

// Named sets the simple name of the method.
func (b *MethodBuilder) Named(name string) *MethodBuilder {
	b.m.Name = name
	return b
}

// Kind sets the kind of the method.
func (b *MethodBuilder) Kind(k MethodKind) *MethodBuilder {
	b.m.Kind = k
	return b
}

// At sets the file and line range of the method.
func (b *MethodBuilder) At(file string, start, end int) *MethodBuilder {
	b.m.File = file
	b.m.StartLine = start
	b.m.EndLine = end
	return b
}

// Add appends instr to the method and returns it.
func (b *MethodBuilder) Add(instr *Instruction) *Instruction {
	instr.Index = len(b.body.instrs)
	instr.method = b.m
	b.body.instrs = append(b.body.instrs, instr)
	b.body.fall = append(b.body.fall, nil)
	b.body.branch = append(b.body.branch, nil)
	b.body.exc = append(b.body.exc, nil)
	return instr
}

// Fallthrough adds a fall-through edge.
func (b *MethodBuilder) Fallthrough(from, to *Instruction) *MethodBuilder {
	b.body.fall[from.Index] = union(b.body.fall[from.Index], []int{to.Index})
	return b
}

// Branch adds a branch-taken edge.
func (b *MethodBuilder) Branch(from, to *Instruction) *MethodBuilder {
	b.body.branch[from.Index] = union(b.body.branch[from.Index], []int{to.Index})
	return b
}

// Exceptional adds an exceptional edge.
func (b *MethodBuilder) Exceptional(from, to *Instruction) *MethodBuilder {
	b.body.exc[from.Index] = union(b.body.exc[from.Index], []int{to.Index})
	return b
}

// Sequence links each instruction to the next one with a fall-through edge.
func (b *MethodBuilder) Sequence(instrs ...*Instruction) *MethodBuilder {
	for i := 0; i+1 < len(instrs); i++ {
		b.Fallthrough(instrs[i], instrs[i+1])
	}
	return b
}

// Build finalizes the method. A method to which no instruction was added has no body.
func (b *MethodBuilder) Build() *Method {
	if len(b.body.instrs) > 0 {
		b.body.index()
		b.m.Body = b.body
	}
	return b.m
}
