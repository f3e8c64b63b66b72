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

// Package attrscan finds the potential sources of the configuration attributes read by a program.
//
// A scan starts from sink instructions of a method and walks backwards along the taint of the values they use.
// Every tainted instruction whose source line names an attribute, or which reads a typed attribute value, is
// recorded as a PotentialSource, together with the theme it flows into, the type it reads and the default values
// passed to it. When a method has been walked, the scan continues in its callers, up to the configured depth.
package attrscan

import (
	"errors"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/classify"
	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/defaults"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/analysis/taintwalk"
)

// A Scanner scans the methods of a program. The scanner only reads the program; all its results are recorded in
// its Results, and scans of different methods may run concurrently.
type Scanner struct {
	logger   *config.LogGroup
	cfg      *config.Config
	prog     *program.Program
	cg       program.CallGraph
	src      program.SourceText
	results  *Results
	walker   *taintwalk.Walker
	types    *classify.Classifier
	themes   *classify.ThemeClassifier
	defaults *defaults.Resolver
	ignored  func(filename string, line int) bool
}

// NewScanner returns a scanner of prog recording its results in results. A nil results is replaced by a new
// accumulator.
func NewScanner(logger *config.LogGroup, cfg *config.Config, prog *program.Program, cg program.CallGraph,
	src program.SourceText, results *Results) *Scanner {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if results == nil {
		results = NewResults()
	}
	walker := taintwalk.NewWalker(logger, cfg, prog)
	return &Scanner{
		logger:   logger,
		cfg:      cfg,
		prog:     prog,
		cg:       cg,
		src:      src,
		results:  results,
		walker:   walker,
		types:    classify.NewClassifier(cfg),
		themes:   classify.NewThemeClassifier(cfg, walker),
		defaults: defaults.NewResolver(logger),
	}
}

// Results returns the accumulator of the scanner.
func (s *Scanner) Results() *Results { return s.results }

// SetIgnored makes the scanner skip the instructions on the lines for which ignored returns true.
func (s *Scanner) SetIgnored(ignored func(filename string, line int) bool) {
	s.ignored = ignored
}

// Classifier returns the declared-type classifier of the scanner.
func (s *Scanner) Classifier() *classify.Classifier { return s.types }

// scanState is the state of one top-level scan
type scanState struct {
	api string
	// trace is the stack of callees traversed to reach the current method
	trace   []*program.Method
	created []*PotentialSource
}

// Scan walks backwards from the instructions of target at lines and returns the sources created by this scan,
// including the ones found in the callers of target. Sources already recorded by a previous scan are not
// returned. The api names the version of the source text to read.
func (s *Scanner) Scan(target *program.Method, lines []int, api string) []*PotentialSource {
	st := &scanState{api: api}
	s.scan(st, target, lines, 0)
	SortSources(st.created)
	return st.created
}

func (s *Scanner) scan(st *scanState, target *program.Method, lines []int, depth int) {
	seeds := target.InstructionsAt(lines)
	if len(seeds) == 0 && !target.HasBody() {
		s.logger.Debugf("%s has no body, skipping\n", target)
		return
	}

	stats := s.walker.Walk(target, seeds, func(instr *program.Instruction, _ taintwalk.RefSet) taintwalk.Action {
		s.visit(st, instr, depth)
		return taintwalk.Continue
	})
	s.logger.Tracef("%s at depth %d: %d instructions visited\n", target, depth, stats.Visited)

	if s.cfg.ExceedsMaxDepth(depth+1) || s.cg == nil {
		return
	}
	for _, edge := range s.cg.EdgesTargeting(target.Signature) {
		caller := s.prog.Method(edge.Caller)
		if !caller.HasBody() {
			s.logger.Debugf("caller %s of %s has no body\n", edge.Caller, target)
			continue
		}
		var callLines []int
		for _, call := range caller.CallsTo(target.Signature) {
			callLines = append(callLines, call.Line)
		}
		st.trace = append(st.trace, target)
		s.scan(st, caller, callLines, depth+1)
		st.trace = st.trace[:len(st.trace)-1]
	}
}

// visit records instr if it is a potential source
func (s *Scanner) visit(st *scanState, instr *program.Instruction, depth int) {
	m := instr.Method()
	key := Key{Line: instr.Line, Signature: m.Signature}
	if s.results.Has(key) || (s.ignored != nil && s.ignored(m.File, instr.Line)) {
		return
	}
	text, err := s.src.ReadLine(st.api, m, instr.Line)
	if err != nil {
		if !errors.Is(err, program.ErrNotFound) {
			s.logger.Warnf("reading line %d of %s: %v\n", instr.Line, m, err)
		}
		return
	}
	declared := s.types.ClassifyInstruction(instr)
	token := s.cfg.AttributeToken
	if !strings.Contains(text, token) && declared == classify.None {
		return
	}

	src := &PotentialSource{
		Depth:        depth,
		Signature:    m.Signature,
		Line:         instr.Line,
		File:         m.File,
		Source:       strings.TrimSpace(text),
		DeclaredType: declared,
		Attribute:    AttributeID(text, token),
		Theme:        s.themes.Classify([]*program.Instruction{instr}, m),
		Trace:        make([]string, len(st.trace)),
		API:          st.api,
		Instruction:  instr,
		Method:       m,
	}
	for i, callee := range st.trace {
		src.Trace[i] = callee.Signature
	}
	if arg, ok := s.types.DefaultArg(instr); ok {
		src.defaults = s.defaults.Resolve(m, instr, arg)
	}
	if _, added := s.results.AddSource(src); !added {
		return
	}
	st.created = append(st.created, src)
	s.logger.Debugf("source %s:%d (%s) at depth %d\n", m, instr.Line, declared, depth)

	for _, desc := range src.defaults {
		s.results.AddDefault(DefaultPair{Attribute: src.Attribute, Default: desc})
	}
}

// AttributeID returns the longest run of identifier characters and dots following the first occurrence of token
// in text, or the empty string if token does not occur.
func AttributeID(text, token string) string {
	if token == "" {
		return ""
	}
	i := strings.Index(text, token)
	if i < 0 {
		return ""
	}
	rest := text[i+len(token):]
	end := 0
	for end < len(rest) && isAttributeChar(rest[end]) {
		end++
	}
	return rest[:end]
}

func isAttributeChar(c byte) bool {
	return c == '_' || c == '.' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
