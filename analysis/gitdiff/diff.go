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

// Package gitdiff provides the changed lines of a git repository and its source text at any revision.
package gitdiff

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/internal/funcutil"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sourcegraph/go-diff/diff"
)

// FileChanges are the changed lines of one file.
type FileChanges struct {
	// Added are the added lines, numbered in the new version of the file
	Added []int
	// Deleted are the deleted lines, numbered in the old version of the file
	Deleted []int
}

// Provider maps the lines changed between two commits to the methods of a program. It implements
// program.DiffProvider.
type Provider struct {
	logger *config.LogGroup
	prog   *program.Program
	root   string
	files  map[string]*FileChanges
}

// NewProvider computes the changes between the revisions base and head of the repository at repoPath. Revisions
// are anything git rev-parse accepts, e.g. a hash, a branch or HEAD~1.
func NewProvider(logger *config.LogGroup, prog *program.Program, repoPath, base, head string) (*Provider, error) {
	repo, root, err := openRepository(repoPath)
	if err != nil {
		return nil, err
	}
	baseCommit, err := commit(repo, base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base commit %q: %w", base, err)
	}
	headCommit, err := commit(repo, head)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve head commit %q: %w", head, err)
	}
	files, err := ChangedLines(baseCommit, headCommit)
	if err != nil {
		return nil, err
	}
	logger.Debugf("%d files changed between %s and %s\n", len(files), base, head)
	p := &Provider{logger: logger, prog: prog, root: root, files: files}
	unmatched := p.UnmatchedDeletions()
	for _, path := range funcutil.SortedKeys(unmatched) {
		logger.Debugf("%s: deleted lines %v are outside every method at %s, they are not scanned\n",
			path, unmatched[path], head)
	}
	return p, nil
}

func openRepository(repoPath string) (*git.Repository, string, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open repository %q: %w", repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", fmt.Errorf("repository %q has no worktree: %w", repoPath, err)
	}
	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return nil, "", err
	}
	return repo, root, nil
}

func commit(repo *git.Repository, rev string) (*object.Commit, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, err
	}
	return repo.CommitObject(*hash)
}

// ChangedLines returns the changes of every file modified between the commits base and head, indexed by
// slash-separated path relative to the repository root. Files created or deleted between the two commits only
// have additions or deletions respectively.
func ChangedLines(base, head *object.Commit) (map[string]*FileChanges, error) {
	baseTree, err := base.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load base tree: %w", err)
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load head tree: %w", err)
	}
	patch, err := baseTree.Patch(headTree)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	parsed, err := diff.ParseMultiFileDiff([]byte(patch.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	res := map[string]*FileChanges{}
	for _, fd := range parsed {
		if fd == nil || len(fd.Hunks) == 0 {
			continue
		}
		var added, deleted []int
		for _, h := range fd.Hunks {
			a, d := hunkLines(h)
			added = append(added, a...)
			deleted = append(deleted, d...)
		}
		if len(added) > 0 && fd.NewName != "/dev/null" {
			changes := fileChanges(res, strings.TrimPrefix(fd.NewName, "b/"))
			changes.Added = append(changes.Added, added...)
		}
		if len(deleted) > 0 && fd.OrigName != "/dev/null" {
			changes := fileChanges(res, strings.TrimPrefix(fd.OrigName, "a/"))
			changes.Deleted = append(changes.Deleted, deleted...)
		}
	}
	return res, nil
}

func fileChanges(files map[string]*FileChanges, path string) *FileChanges {
	c, ok := files[path]
	if !ok {
		c = &FileChanges{}
		files[path] = c
	}
	return c
}

// hunkLines returns the added lines, in new-file numbering, and the deleted lines, in old-file numbering, of h
func hunkLines(h *diff.Hunk) (added, deleted []int) {
	if h == nil {
		return nil, nil
	}
	newLine := max(int(h.NewStartLine), 1)
	origLine := max(int(h.OrigStartLine), 1)
	for _, line := range bytes.Split(h.Body, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '+':
			added = append(added, newLine)
			newLine++
		case '-':
			deleted = append(deleted, origLine)
			origLine++
		case '\\':
			// "\ No newline at end of file"
		default:
			newLine++
			origLine++
		}
	}
	return added, deleted
}

// Files returns the changes indexed by repository-relative path.
func (p *Provider) Files() map[string]*FileChanges {
	return p.files
}

// relPath returns the slash-separated path of filename relative to the repository root, and false if the file is
// outside the repository
func relPath(root, filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Changes implements program.DiffProvider: it returns the changed lines of the methods of class that fall in the
// line range of each method. Deleted lines are matched against the current line ranges.
func (p *Provider) Changes(class string) (program.Changes, error) {
	res := program.Changes{Added: map[*program.Method][]int{}, Deleted: map[*program.Method][]int{}}
	for _, m := range p.prog.Methods(class) {
		if m.Class != class {
			continue
		}
		rel, ok := relPath(p.root, m.File)
		if !ok {
			continue
		}
		fc, ok := p.files[rel]
		if !ok {
			continue
		}
		if lines := funcutil.Filter(fc.Added, m.ContainsLine); len(lines) > 0 {
			res.Added[m] = lines
		}
		if lines := funcutil.Filter(fc.Deleted, m.ContainsLine); len(lines) > 0 {
			res.Deleted[m] = lines
		}
	}
	return res, nil
}

// UnmatchedDeletions returns, per file, the deleted lines that fall outside the line range of every method of the
// program. Deleted lines are numbered in the base revision and method ranges come from the head revision.
func (p *Provider) UnmatchedDeletions() map[string][]int {
	byFile := map[string][]*program.Method{}
	for _, m := range p.prog.Methods("") {
		if rel, ok := relPath(p.root, m.File); ok {
			byFile[rel] = append(byFile[rel], m)
		}
	}
	res := map[string][]int{}
	for path, fc := range p.files {
		methods := byFile[path]
		lines := funcutil.Filter(fc.Deleted, func(line int) bool {
			return !funcutil.Exists(methods, func(m *program.Method) bool { return m.ContainsLine(line) })
		})
		if len(lines) > 0 {
			res[path] = lines
		}
	}
	return res
}

// ChangedClasses returns the sorted names of the classes having a method in a changed file.
func (p *Provider) ChangedClasses() []string {
	seen := map[string]bool{}
	for _, m := range p.prog.Methods("") {
		if rel, ok := relPath(p.root, m.File); ok && p.files[rel] != nil {
			seen[m.Class] = true
		}
	}
	return funcutil.SetToOrderedSlice(seen)
}
