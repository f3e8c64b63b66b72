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

package gitdiff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/puzpuzpuz/xsync/v4"
)

// Source reads source lines from the committed contents of a git repository. The api argument of ReadLine is the
// revision to read, HEAD when empty. Contents are cached per revision and file; a Source is safe for concurrent use.
type Source struct {
	repo  *git.Repository
	root  string
	cache *xsync.Map[string, []string]
}

// NewSource returns a Source reading the repository at repoPath.
func NewSource(repoPath string) (*Source, error) {
	repo, root, err := openRepository(repoPath)
	if err != nil {
		return nil, err
	}
	return &Source{repo: repo, root: root, cache: xsync.NewMap[string, []string]()}, nil
}

// ReadLine implements program.SourceText.
func (s *Source) ReadLine(api string, m *program.Method, line int) (string, error) {
	rel, ok := relPath(s.root, m.File)
	if !ok {
		return "", fmt.Errorf("%s is not in the repository: %w", m.File, program.ErrNotFound)
	}
	lines, err := s.lines(api, rel)
	if err != nil {
		return "", err
	}
	if line < 1 || line > len(lines) {
		return "", fmt.Errorf("%s:%d at %q: %w", rel, line, api, program.ErrNotFound)
	}
	return lines[line-1], nil
}

func (s *Source) lines(rev, rel string) ([]string, error) {
	key := rev + "\x00" + rel
	if lines, ok := s.cache.Load(key); ok {
		return lines, nil
	}
	c, err := commit(s.repo, rev)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	file, err := c.File(rel)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%s at %q: %w", rel, rev, program.ErrNotFound)
	} else if err != nil {
		return nil, err
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at %q: %w", rel, rev, err)
	}
	lines, _ := s.cache.LoadOrStore(key, strings.Split(contents, "\n"))
	return lines, nil
}
