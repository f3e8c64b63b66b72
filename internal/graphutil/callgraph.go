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

// Package graphutil contains graph algorithms over call graphs and control-flow graphs of the program model.
package graphutil

import (
	"sort"

	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/yourbasic/graph"
)

// CGraph is a numbered view of a call graph, usable with the yourbasic graph algorithms.
type CGraph struct {
	// Graph is the mutable graph over node ids
	Graph *graph.Mutable

	// Names maps node ids to method signatures
	Names []string

	// IDs maps method signatures to node ids
	IDs map[string]int
}

// NewCGraph numbers the nodes of cg in signature order and copies its edges.
func NewCGraph(cg *program.Graph) CGraph {
	names := cg.Nodes()
	ids := make(map[string]int, len(names))
	for i, n := range names {
		ids[n] = i
	}
	g := graph.New(len(names))
	for _, n := range names {
		for _, e := range cg.EdgesFrom(n) {
			g.Add(ids[e.Caller], ids[e.Callee])
		}
	}
	return CGraph{Graph: g, Names: names, IDs: ids}
}

// RecursiveClusters returns the groups of mutually recursive methods of cg: strongly connected components with more
// than one method, and methods calling themselves. Each cluster is sorted, and clusters are sorted by their first
// element.
func RecursiveClusters(cg *program.Graph) [][]string {
	c := NewCGraph(cg)
	var res [][]string
	for _, comp := range graph.StrongComponents(c.Graph) {
		if len(comp) == 1 && !c.Graph.Edge(comp[0], comp[0]) {
			continue
		}
		cluster := make([]string, len(comp))
		for i, id := range comp {
			cluster[i] = c.Names[id]
		}
		sort.Strings(cluster)
		res = append(res, cluster)
	}
	sort.Slice(res, func(i, j int) bool { return res[i][0] < res[j][0] })
	return res
}
