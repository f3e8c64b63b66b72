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
	"fmt"
	"sort"
)

// An Edge is a call-graph edge between two method signatures.
type Edge struct {
	Caller string
	Callee string
}

// CallGraph is queried in both directions by the analyses.
type CallGraph interface {
	// EdgesTargeting returns the edges whose callee is sig
	EdgesTargeting(sig string) []Edge
	// EdgesFrom returns the edges whose caller is sig
	EdgesFrom(sig string) []Edge
}

// Graph is a CallGraph stored as adjacency lists in both directions.
type Graph struct {
	in   map[string][]Edge
	out  map[string][]Edge
	seen map[Edge]bool
}

// NewGraph returns an empty call graph.
func NewGraph() *Graph {
	return &Graph{
		in:   map[string][]Edge{},
		out:  map[string][]Edge{},
		seen: map[Edge]bool{},
	}
}

// AddEdge adds the edge caller -> callee. Duplicate edges are ignored.
func (g *Graph) AddEdge(caller, callee string) {
	e := Edge{Caller: caller, Callee: callee}
	if g.seen[e] {
		return
	}
	g.seen[e] = true
	g.out[caller] = append(g.out[caller], e)
	g.in[callee] = append(g.in[callee], e)
}

// EdgesTargeting implements CallGraph.
func (g *Graph) EdgesTargeting(sig string) []Edge { return g.in[sig] }

// EdgesFrom implements CallGraph.
func (g *Graph) EdgesFrom(sig string) []Edge { return g.out[sig] }

// Nodes returns every signature appearing in an edge, sorted.
func (g *Graph) Nodes() []string {
	set := map[string]bool{}
	for e := range g.seen {
		set[e.Caller] = true
		set[e.Callee] = true
	}
	res := make([]string, 0, len(set))
	for s := range set {
		res = append(res, s)
	}
	sort.Strings(res)
	return res
}

// NumEdges returns the number of distinct edges.
func (g *Graph) NumEdges() int { return len(g.seen) }

// ErrNotFound is returned by source text providers when a line is not available.
var ErrNotFound = errors.New("source text not found")

// SourceText retrieves the original source text of a line of a method. The api argument selects which version of
// the sources is read; its meaning is up to the implementation.
type SourceText interface {
	ReadLine(api string, m *Method, line int) (string, error)
}

// MapSource is an in-memory SourceText mapping method signatures to line texts. The api argument is ignored.
type MapSource map[string]map[int]string

// ReadLine implements SourceText.
func (s MapSource) ReadLine(_ string, m *Method, line int) (string, error) {
	lines, ok := s[m.Signature]
	if !ok {
		return "", fmt.Errorf("method %s: %w", m.Signature, ErrNotFound)
	}
	text, ok := lines[line]
	if !ok {
		return "", fmt.Errorf("%s:%d: %w", m.Signature, line, ErrNotFound)
	}
	return text, nil
}

// Changes are the changed line numbers of methods between two revisions.
type Changes struct {
	Added   map[*Method][]int
	Deleted map[*Method][]int
}

// Empty returns true if no line changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Deleted) == 0
}

// DiffProvider computes the changed lines of the methods of a class.
type DiffProvider interface {
	Changes(class string) (Changes, error)
}
