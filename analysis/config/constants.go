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

package config

const (
	// DefaultMaxDepth is the default number of call-graph hops crossed by the attribute scanner
	DefaultMaxDepth = 1

	// DefaultMaxNestedAnalysis bounds the nesting of forward analyses spawned at call sites
	DefaultMaxNestedAnalysis = 8

	// DefaultAttributeToken is the text that denotes a read from the attribute table in source lines
	DefaultAttributeToken = "R.styleable."

	// DefaultThemeWrapperPattern matches instructions that wrap a context with a theme
	DefaultThemeWrapperPattern = `ContextThemeWrapper`

	// DefaultThemeTypePattern matches the static types of theme objects
	DefaultThemeTypePattern = `\bTheme\b`

	// OrderByLine orders instructions by source line in the backward walk
	OrderByLine = "line"

	// OrderByTopo orders instructions by their position in a topological order of the control-flow graph
	OrderByTopo = "topo"

	// FormatText is the default, human-readable report format
	FormatText = "text"

	// FormatYaml reports the results as a yaml document
	FormatYaml = "yaml"

	// FormatSarif reports the results as a SARIF log
	FormatSarif = "sarif"
)
