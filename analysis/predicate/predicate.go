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

// Package predicate implements the tri-state predicate lattice used by the branch-sensitive forward analysis.
// A Predicate maps branch condition texts to what is known about them at a program point.
package predicate

import (
	"sort"
	"strings"
)

// Value is the tri-state truth value of a condition.
type Value int8

const (
	// Unknown means the condition may be true or false
	Unknown Value = iota
	// True means the condition is known to hold
	True
	// False means the condition is known not to hold
	False
)

func (v Value) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// A Predicate is an insertion-ordered map from condition text to Value. The zero value is an empty predicate.
type Predicate struct {
	keys []string
	vals map[string]Value
}

// New returns an empty predicate.
func New() *Predicate {
	return &Predicate{vals: map[string]Value{}}
}

// Copy returns a full value copy of p. Copying a nil predicate returns an empty one.
func Copy(p *Predicate) *Predicate {
	c := &Predicate{vals: map[string]Value{}}
	if p == nil {
		return c
	}
	c.keys = append(c.keys, p.keys...)
	for k, v := range p.vals {
		c.vals[k] = v
	}
	return c
}

// Merge returns the join of a and b: the union of their keys, where a key present in both keeps its value when the
// values agree and becomes Unknown otherwise. Keys of a come first, then the keys only present in b.
func Merge(a, b *Predicate) *Predicate {
	res := Copy(a)
	if b == nil {
		return res
	}
	for _, k := range b.keys {
		bv := b.vals[k]
		av, ok := res.vals[k]
		switch {
		case !ok:
			res.keys = append(res.keys, k)
			res.vals[k] = bv
		case av != bv:
			res.vals[k] = Unknown
		}
	}
	return res
}

// Put sets the value of cond, adding it if needed.
func (p *Predicate) Put(cond string, v Value) {
	if p.vals == nil {
		p.vals = map[string]Value{}
	}
	if _, ok := p.vals[cond]; !ok {
		p.keys = append(p.keys, cond)
	}
	p.vals[cond] = v
}

// Get returns the value of cond and whether cond is present.
func (p *Predicate) Get(cond string) (Value, bool) {
	if p == nil {
		return Unknown, false
	}
	v, ok := p.vals[cond]
	return v, ok
}

// Keys returns the conditions in insertion order.
func (p *Predicate) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len returns the number of conditions.
func (p *Predicate) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// SameKeys is the equality of the lattice: two predicates are equal when they have the same set of conditions,
// regardless of the values.
func (p *Predicate) SameKeys(q *Predicate) bool {
	if p.Len() != q.Len() {
		return false
	}
	for _, k := range p.Keys() {
		if _, ok := q.Get(k); !ok {
			return false
		}
	}
	return true
}

// Key returns a canonical text of p, equal for predicates holding the same conditions with the same values,
// whatever their insertion order.
func (p *Predicate) Key() string {
	keys := p.Keys()
	sort.Strings(keys)
	b := &strings.Builder{}
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.vals[k].String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (p *Predicate) String() string {
	if p.Len() == 0 {
		return "{}"
	}
	b := &strings.Builder{}
	b.WriteString("{")
	for i, k := range p.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(p.vals[k].String())
	}
	b.WriteString("}")
	return b.String()
}
