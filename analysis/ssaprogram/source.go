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

package ssaprogram

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/puzpuzpuz/xsync/v4"
)

// FileSource reads source lines from the files of the working tree. The api argument of ReadLine is ignored.
// Files are read once; a FileSource is safe for concurrent use.
type FileSource struct {
	files *xsync.Map[string, []string]
}

// NewFileSource returns an empty FileSource.
func NewFileSource() *FileSource {
	return &FileSource{files: xsync.NewMap[string, []string]()}
}

// ReadLine implements program.SourceText.
func (s *FileSource) ReadLine(_ string, m *program.Method, line int) (string, error) {
	lines, err := s.lines(m.File)
	if err != nil {
		return "", err
	}
	if line < 1 || line > len(lines) {
		return "", fmt.Errorf("%s:%d: %w", m.File, line, program.ErrNotFound)
	}
	return lines[line-1], nil
}

func (s *FileSource) lines(filename string) ([]string, error) {
	if lines, ok := s.files.Load(filename); ok {
		return lines, nil
	}
	if filename == "" {
		return nil, fmt.Errorf("no file: %w", program.ErrNotFound)
	}
	b, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filename, program.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("could not read source file: %w", err)
	}
	lines, _ := s.files.LoadOrStore(filename, strings.Split(string(b), "\n"))
	return lines, nil
}
