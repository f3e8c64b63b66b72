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

package taintwalk

import (
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/internal/graphutil"
	"github.com/puzpuzpuz/xsync/v4"
)

// Ordering decides whether an instruction comes strictly before another one of the same method. The backward walk
// only follows predecessors that come before the current instruction, which guarantees termination as long as
// the ordering is a strict order.
type Ordering interface {
	Before(a, b *program.Instruction) bool
}

// LineOrder orders instructions by source line. It approximates program order and is unsound for multi-statement
// lines and reordered code.
type LineOrder struct{}

// Before implements Ordering.
func (LineOrder) Before(a, b *program.Instruction) bool {
	return a.Line < b.Line
}

// TopoOrder orders instructions by their position in a topological order of the strongly connected components of
// their method's control-flow graph. Positions are computed once per method; a TopoOrder is safe for concurrent use.
type TopoOrder struct {
	positions *xsync.Map[*program.Method, map[*program.Instruction]int]
}

// NewTopoOrder returns an empty TopoOrder.
func NewTopoOrder() *TopoOrder {
	return &TopoOrder{positions: xsync.NewMap[*program.Method, map[*program.Instruction]int]()}
}

// Before implements Ordering. Instructions of different methods are never ordered.
func (o *TopoOrder) Before(a, b *program.Instruction) bool {
	if a.Method() != b.Method() || !a.Method().HasBody() {
		return false
	}
	pos := o.of(a.Method())
	return pos[a] < pos[b]
}

func (o *TopoOrder) of(m *program.Method) map[*program.Instruction]int {
	pos, _ := o.positions.LoadOrCompute(m, func() (map[*program.Instruction]int, bool) {
		return graphutil.TopoPositions(m.Body), false
	})
	return pos
}
