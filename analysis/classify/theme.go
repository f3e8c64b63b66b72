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

package classify

import (
	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/awslabs/attr-provenance/analysis/taintwalk"
)

// Theme is the result of the theme classifier.
type Theme string

const (
	// NoTheme means the value does not reach any theme construct
	NoTheme Theme = "none"
	// ContextThemeWrapper means the value flows into a theme wrapping construct
	ContextThemeWrapper Theme = "context_theme_wrapper"
	// HasTheme means the value flows into a reference whose type is a theme
	HasTheme Theme = "has_theme"
)

// ThemeClassifier classifies values by following them forward from the instructions that produce them.
type ThemeClassifier struct {
	cfg    *config.Config
	walker *taintwalk.Walker
}

// NewThemeClassifier returns a theme classifier matching instruction text and reference types with the theme
// patterns of cfg.
func NewThemeClassifier(cfg *config.Config, walker *taintwalk.Walker) *ThemeClassifier {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	return &ThemeClassifier{cfg: cfg, walker: walker}
}

// Classify walks m forward from seeds and returns the first theme construct reached. An instruction denoting a
// theme wrapper is checked before the types of the tainted references.
func (t *ThemeClassifier) Classify(seeds []*program.Instruction, m *program.Method) Theme {
	res := NoTheme
	t.walker.WalkForward(m, seeds, func(instr *program.Instruction, taint taintwalk.RefSet) taintwalk.Action {
		if t.cfg.IsThemeWrapper(instr.Text) {
			res = ContextThemeWrapper
			return taintwalk.Stop
		}
		for _, r := range taint {
			if t.cfg.IsThemeType(r.Type) {
				res = HasTheme
				return taintwalk.Stop
			}
		}
		return taintwalk.Continue
	})
	return res
}
