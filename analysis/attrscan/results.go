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
	"sort"

	"github.com/awslabs/attr-provenance/analysis/classify"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/puzpuzpuz/xsync/v4"
)

// A PotentialSource is an instruction that may read the value of a configuration attribute, found by walking
// backwards from a sink.
type PotentialSource struct {
	// Depth is the number of callers between the scanned method and the method of the source
	Depth int `yaml:"depth"`
	// Signature is the signature of the method of the source instruction
	Signature string `yaml:"method"`
	Line      int    `yaml:"line"`
	File      string `yaml:"file,omitempty"`
	// Source is the text of the source line
	Source       string                `yaml:"source"`
	DeclaredType classify.DeclaredType `yaml:"declared-type"`
	// Attribute is the identifier following the attribute token in the source line, if any
	Attribute string         `yaml:"attribute,omitempty"`
	Theme     classify.Theme `yaml:"theme"`
	// Trace is the list of the signatures of the callees traversed to reach the source, outermost first
	Trace []string `yaml:"trace,omitempty"`
	API   string   `yaml:"api,omitempty"`

	Instruction *program.Instruction `yaml:"-"`
	Method      *program.Method      `yaml:"-"`

	// defaults are the default values resolved when the source was recorded
	defaults []string
}

// Key returns the deduplication key of the source.
func (s *PotentialSource) Key() Key {
	return Key{Line: s.Line, Signature: s.Signature}
}

// Key identifies a source by line and method.
type Key struct {
	Line      int
	Signature string
}

// A DefaultPair associates an attribute with the description of one of its default values.
type DefaultPair struct {
	Attribute string `yaml:"attribute"`
	Default   string `yaml:"default"`
}

// Results accumulates the sources and default values found by scans. It is safe for concurrent use.
type Results struct {
	sources  *xsync.Map[Key, *PotentialSource]
	defaults *xsync.Map[DefaultPair, struct{}]
}

// NewResults returns an empty accumulator.
func NewResults() *Results {
	return &Results{
		sources:  xsync.NewMap[Key, *PotentialSource](),
		defaults: xsync.NewMap[DefaultPair, struct{}](),
	}
}

// Has returns true if a source with key k has been recorded.
func (r *Results) Has(k Key) bool {
	_, ok := r.sources.Load(k)
	return ok
}

// AddSource records s unless a source with the same key exists. It returns the recorded source and true if s was
// added.
func (r *Results) AddSource(s *PotentialSource) (*PotentialSource, bool) {
	actual, loaded := r.sources.LoadOrStore(s.Key(), s)
	return actual, !loaded
}

// Merge adds the sources of other that are not recorded yet, along with their default values. Merging the
// results of independent scans in a fixed order gives the same results as running those scans in that order on
// a single accumulator.
func (r *Results) Merge(other *Results) {
	for _, s := range other.Sources() {
		if _, added := r.AddSource(s); !added {
			continue
		}
		for _, d := range s.defaults {
			r.AddDefault(DefaultPair{Attribute: s.Attribute, Default: d})
		}
	}
}

// AddDefault records p and returns true if it was not present.
func (r *Results) AddDefault(p DefaultPair) bool {
	_, loaded := r.defaults.LoadOrStore(p, struct{}{})
	return !loaded
}

// Len returns the number of recorded sources.
func (r *Results) Len() int {
	return r.sources.Size()
}

// Sources returns the recorded sources sorted by signature and line.
func (r *Results) Sources() []*PotentialSource {
	res := make([]*PotentialSource, 0, r.sources.Size())
	r.sources.Range(func(_ Key, s *PotentialSource) bool {
		res = append(res, s)
		return true
	})
	SortSources(res)
	return res
}

// Defaults returns the recorded default values sorted by attribute and description.
func (r *Results) Defaults() []DefaultPair {
	res := make([]DefaultPair, 0, r.defaults.Size())
	r.defaults.Range(func(p DefaultPair, _ struct{}) bool {
		res = append(res, p)
		return true
	})
	sort.Slice(res, func(i, j int) bool {
		if res[i].Attribute != res[j].Attribute {
			return res[i].Attribute < res[j].Attribute
		}
		return res[i].Default < res[j].Default
	})
	return res
}

// SortSources sorts sources by signature and line.
func SortSources(sources []*PotentialSource) {
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Signature != sources[j].Signature {
			return sources[i].Signature < sources[j].Signature
		}
		return sources[i].Line < sources[j].Line
	})
}
