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
	"context"
	"fmt"
	"sort"

	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/internal/graphutil"
	"golang.org/x/sync/errgroup"
)

// SinkLines returns the lines of the instructions of m that read a typed attribute value.
func (s *Scanner) SinkLines(m *program.Method) []int {
	if !m.HasBody() {
		return nil
	}
	seen := map[int]bool{}
	var lines []int
	for _, instr := range m.Body.Instructions() {
		if instr.Line > 0 && !seen[instr.Line] && s.types.IsSink(instr) {
			seen[instr.Line] = true
			lines = append(lines, instr.Line)
		}
	}
	return lines
}

// ScanProgram scans every method of the classes matching the class filter, seeded with its sink lines. Methods
// are scanned concurrently by at most the configured number of workers, each into its own accumulator; the
// accumulators are merged in method order, so the results do not depend on the number of workers. The scan stops at
// the first method started after ctx is done, and the context error is returned with nothing recorded.
func (s *Scanner) ScanProgram(ctx context.Context, api string) error {
	// clusters are only reported; MaxDepth bounds the caller continuation through them
	if g, ok := s.cg.(*program.Graph); ok {
		for _, cluster := range graphutil.RecursiveClusters(g) {
			s.logger.Debugf("recursive call cluster: %v\n", cluster)
		}
	}

	methods := s.prog.Methods(s.cfg.ClassFilter)
	s.logger.Infof("scanning %d methods matching %q\n", len(methods), s.cfg.ClassFilter)

	parts := make([]*Results, len(methods))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.cfg.Workers)
	for i, m := range methods {
		lines := s.SinkLines(m)
		if len(lines) == 0 {
			continue
		}
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("scan of %s interrupted: %w", m, err)
			}
			part := s.withResults(NewResults())
			part.Scan(m, lines, api)
			parts[i] = part.results
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	for _, part := range parts {
		if part != nil {
			s.results.Merge(part)
		}
	}
	s.logger.Infof("found %d potential sources\n", s.results.Len())
	return nil
}

// withResults returns a scanner sharing the configuration and analyses of s and recording into results
func (s *Scanner) withResults(results *Results) *Scanner {
	c := *s
	c.results = results
	return &c
}

// ScanChanges scans the added and deleted lines of changes, method by method.
func (s *Scanner) ScanChanges(ctx context.Context, changes program.Changes, api string) error {
	for _, lines := range []map[*program.Method][]int{changes.Added, changes.Deleted} {
		methods := make([]*program.Method, 0, len(lines))
		for m := range lines {
			methods = append(methods, m)
		}
		sort.Slice(methods, func(i, j int) bool { return methods[i].Signature < methods[j].Signature })
		for _, m := range methods {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scan of %s interrupted: %w", m, err)
			}
			s.Scan(m, lines[m], api)
		}
	}
	return nil
}
