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

// Package taintwalk implements the taint propagation walks shared by the attribute scanner, the default-value
// resolver and the theme classifier.
//
// A walk starts from seed instructions, whose value references form the initial taint set. Every visited
// instruction whose references intersect the taint set adds its references to the set and is reported to the
// visitor. The backward walk follows predecessors that come strictly earlier in the method; the forward walk
// follows normal successors.
package taintwalk

import (
	"sort"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/program"
)

// Action tells the walk whether to continue after a visit.
type Action int

const (
	// Continue the walk
	Continue Action = iota
	// Stop the walk immediately
	Stop
)

// VisitFunc is called on every visited instruction whose references intersect the taint set, after the taint set
// has been extended with the instruction's references. The taint set must not be modified by the visitor.
type VisitFunc func(instr *program.Instruction, taint RefSet) Action

// RefSet is a set of value references indexed by identity.
type RefSet map[string]program.Ref

// Add adds refs to the set.
func (s RefSet) Add(refs []program.Ref) {
	for _, r := range refs {
		s[r.ID] = r
	}
}

// Intersects returns true if one of refs is in the set.
func (s RefSet) Intersects(refs []program.Ref) bool {
	for _, r := range refs {
		if _, ok := s[r.ID]; ok {
			return true
		}
	}
	return false
}

// Contains returns true if the reference with identity id is in the set.
func (s RefSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the references of the set sorted by identity.
func (s RefSet) Sorted() []program.Ref {
	res := make([]program.Ref, 0, len(s))
	for _, r := range s {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s RefSet) String() string {
	ids := make([]string, 0, len(s))
	for _, r := range s.Sorted() {
		ids = append(ids, r.ID)
	}
	return "{" + strings.Join(ids, ", ") + "}"
}

// TaintRefs returns the references of instr that take part in taint comparisons: reserved references and
// literals are excluded.
func TaintRefs(instr *program.Instruction) []program.Ref {
	var res []program.Ref
	for _, r := range instr.Refs() {
		// literals are excluded in addition to the reserved references: equal literals share an identity and
		// would alias unrelated values
		if r.Reserved() || r.Kind == program.ConstRef {
			continue
		}
		res = append(res, r)
	}
	return res
}

// Stats summarizes a walk.
type Stats struct {
	// Visited is the number of instructions popped from the stack and visited
	Visited int
	// Tainted is the number of visited instructions whose references intersected the taint set
	Tainted int
	// Stopped is true if the visitor stopped the walk
	Stopped bool
}

// Walker runs walks over the methods of a program. A Walker is safe for concurrent use; each walk owns its state.
type Walker struct {
	logger     *config.LogGroup
	prog       *program.Program
	order      Ordering
	unionInits bool
}

// NewWalker returns a walker using the ordering and initializer options of cfg. The program prog is used to find the
// initializers of the class of the walked method; it may be nil.
func NewWalker(logger *config.LogGroup, cfg *config.Config, prog *program.Program) *Walker {
	w := &Walker{logger: logger, prog: prog, order: LineOrder{}}
	if cfg != nil {
		w.unionInits = cfg.UnionInitializers
		if cfg.Ordering == config.OrderByTopo {
			w.order = NewTopoOrder()
		}
	}
	return w
}

// WithOrdering returns a copy of w using order to decide which predecessors are earlier.
func (w *Walker) WithOrdering(order Ordering) *Walker {
	c := *w
	c.order = order
	return &c
}

// walkState is the state of one walk
type walkState struct {
	stack   []*program.Instruction
	visited map[*program.Instruction]bool
	queued  map[*program.Instruction]bool
	taint   RefSet
	stats   Stats
}

func newWalkState(seeds []*program.Instruction) *walkState {
	s := &walkState{
		visited: map[*program.Instruction]bool{},
		queued:  map[*program.Instruction]bool{},
		taint:   RefSet{},
	}
	// seeds are pushed in reverse so that the first seed is visited first
	for i := len(seeds) - 1; i >= 0; i-- {
		s.push(seeds[i])
	}
	for _, seed := range seeds {
		s.taint.Add(TaintRefs(seed))
	}
	return s
}

func (s *walkState) push(instr *program.Instruction) {
	if s.visited[instr] || s.queued[instr] {
		return
	}
	s.queued[instr] = true
	s.stack = append(s.stack, instr)
}

// run pops instructions until the stack is empty or the visitor stops, pushing next(instr) after each visit
func (s *walkState) run(visit VisitFunc, next func(*program.Instruction) []*program.Instruction) Stats {
	for len(s.stack) > 0 {
		instr := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		if s.visited[instr] {
			continue
		}
		s.visited[instr] = true
		s.stats.Visited++

		refs := TaintRefs(instr)
		if s.taint.Intersects(refs) {
			s.taint.Add(refs)
			s.stats.Tainted++
			if visit(instr, s.taint) == Stop {
				s.stats.Stopped = true
				return s.stats
			}
		}
		for _, n := range next(instr) {
			s.push(n)
		}
	}
	return s.stats
}

// Walk runs the backward walk over m from seeds. Predecessors are taken from the exception-aware inverse
// control-flow graph and are only followed when they are ordered strictly before the current instruction. The
// roots of m additionally have the tails of their class initializers as predecessors, regardless of the order.
func (w *Walker) Walk(m *program.Method, seeds []*program.Instruction, visit VisitFunc) Stats {
	if !m.HasBody() || len(seeds) == 0 {
		return Stats{}
	}
	inverses := map[*program.Method]*program.Body{m: m.Body.Inverse()}
	initTails := w.initializerTails(m)

	s := newWalkState(seeds)
	stats := s.run(visit, func(instr *program.Instruction) []*program.Instruction {
		owner := instr.Method()
		inv, ok := inverses[owner]
		if !ok {
			if !owner.HasBody() {
				return nil
			}
			inv = owner.Body.Inverse()
			inverses[owner] = inv
		}
		var res []*program.Instruction
		for _, p := range inv.AllSuccs(instr) {
			if w.order.Before(p, instr) {
				res = append(res, p)
			}
		}
		if owner == m && m.Body.IsHead(instr) {
			res = append(res, initTails...)
		}
		return res
	})
	w.logger.Tracef("backward walk in %s: %d visited, %d tainted\n", m.Signature, stats.Visited, stats.Tainted)
	return stats
}

// WalkForward runs the forward walk over m from seeds, following normal successors.
func (w *Walker) WalkForward(m *program.Method, seeds []*program.Instruction, visit VisitFunc) Stats {
	if !m.HasBody() || len(seeds) == 0 {
		return Stats{}
	}
	s := newWalkState(seeds)
	return s.run(visit, func(instr *program.Instruction) []*program.Instruction {
		owner := instr.Method()
		if !owner.HasBody() {
			return nil
		}
		return owner.Body.Succs(instr)
	})
}

// initializerTails returns the synthesized predecessors of the roots of m
func (w *Walker) initializerTails(m *program.Method) []*program.Instruction {
	if w.prog == nil {
		return nil
	}
	var res []*program.Instruction
	for _, tail := range w.prog.Class(m.Class).InitializerTails(w.unionInits) {
		if tail.Method() != m {
			res = append(res, tail)
		}
	}
	return res
}
