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

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains the options of the attribute provenance analyses.
// If some field is not defined in the config file, it keeps its default value.
// Private fields are not populated from a yaml file, but computed after loading.
type Config struct {
	Options `yaml:",inline"`

	// Accessors are additional declared-type accessors, tried after the built-in ones
	Accessors []AccessorSpec `yaml:"accessors"`

	// Exclude lists source files and directories whose functions are not loaded. A directory ends with a slash.
	// Relative paths are relative to the config file.
	Exclude []string `yaml:"exclude"`

	sourceFile string

	themeWrapperRegex *regexp.Regexp
	themeTypeRegex    *regexp.Regexp
}

// AccessorSpec maps a pattern over instruction text to a declared type.
type AccessorSpec struct {
	// Pattern is a regular expression matched against the instruction text
	Pattern string `yaml:"pattern"`
	// Type is the declared type reported for matching instructions
	Type string `yaml:"type"`
	// Default is true when the last argument of a matching call with two arguments or more is a default value
	Default bool `yaml:"default"`

	regex *regexp.Regexp
}

// Regex returns the compiled pattern, or nil if the accessor has not been loaded through Load or Compile.
func (a AccessorSpec) Regex() *regexp.Regexp { return a.regex }

// Options are the scalar settings of the configuration.
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// MaxDepth is the number of call-graph hops the scanner crosses when the intra-procedural search is exhausted
	MaxDepth int `yaml:"max-depth"`

	// MaxNestedAnalysis bounds the nesting of forward analyses spawned at call sites
	MaxNestedAnalysis int `yaml:"max-nested-analysis"`

	// ClassFilter is a prefix; only methods whose class starts with it are scanned
	ClassFilter string `yaml:"class-filter"`

	// AttributeToken is the text denoting the attribute table in source lines
	AttributeToken string `yaml:"attribute-token"`

	// ThemeWrapperPattern is a regex over instruction text identifying theme wrapping constructs
	ThemeWrapperPattern string `yaml:"theme-wrapper-pattern"`

	// ThemeTypePattern is a regex over static types identifying theme objects
	ThemeTypePattern string `yaml:"theme-type-pattern"`

	// Ordering selects how the backward walk decides an instruction is earlier: "line" or "topo"
	Ordering string `yaml:"ordering"`

	// UnionInitializers makes the walker use the tails of every instance initializer of a class instead of the
	// largest one only
	UnionInitializers bool `yaml:"union-initializers"`

	// Workers is the number of methods scanned concurrently. If <= 0, the number of CPUs is used.
	Workers int `yaml:"workers"`

	// Callgraph is the call-graph construction mode: static, cha, vta or rta
	Callgraph string `yaml:"callgraph"`

	// API selects the version of the sources read by the source text provider (e.g. a git revision)
	API string `yaml:"api"`

	// ReportsDir is the directory where reports are written. If empty, reports are written on standard output.
	ReportsDir string `yaml:"reports-dir"`

	// ReportFormat is one of text, yaml or sarif
	ReportFormat string `yaml:"report-format"`
}

// NewDefault returns the default config.
func NewDefault() *Config {
	c := &Config{
		Options: Options{
			LogLevel:            int(InfoLevel),
			MaxDepth:            DefaultMaxDepth,
			MaxNestedAnalysis:   DefaultMaxNestedAnalysis,
			AttributeToken:      DefaultAttributeToken,
			ThemeWrapperPattern: DefaultThemeWrapperPattern,
			ThemeTypePattern:    DefaultThemeTypePattern,
			Ordering:            OrderByLine,
			Workers:             runtime.NumCPU(),
			Callgraph:           "cha",
			ReportFormat:        FormatText,
		},
	}
	// the default patterns always compile
	_ = c.Compile()
	return c
}

// Load reads a configuration from a yaml file.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	cfg.sourceFile = filename
	return cfg, nil
}

// Parse reads a configuration from yaml contents.
func Parse(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Compile normalizes the options and compiles the regexes of the configuration. It must be called after
// modifying a Config by hand.
func (c *Config) Compile() error {
	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if c.LogLevel <= 0 {
		c.LogLevel = int(InfoLevel)
	}
	if c.MaxDepth < 0 {
		c.MaxDepth = 0
	}
	if c.MaxNestedAnalysis <= 0 {
		c.MaxNestedAnalysis = DefaultMaxNestedAnalysis
	}
	if c.AttributeToken == "" {
		c.AttributeToken = DefaultAttributeToken
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	switch c.Ordering {
	case "":
		c.Ordering = OrderByLine
	case OrderByLine, OrderByTopo:
	default:
		return fmt.Errorf("invalid ordering %q, expected %q or %q", c.Ordering, OrderByLine, OrderByTopo)
	}
	switch c.ReportFormat {
	case "":
		c.ReportFormat = FormatText
	case FormatText, FormatYaml, FormatSarif:
	default:
		return fmt.Errorf("invalid report format %q", c.ReportFormat)
	}

	var err error
	if c.themeWrapperRegex, err = compileOptional(c.ThemeWrapperPattern); err != nil {
		return fmt.Errorf("theme-wrapper-pattern: %w", err)
	}
	if c.themeTypeRegex, err = compileOptional(c.ThemeTypePattern); err != nil {
		return fmt.Errorf("theme-type-pattern: %w", err)
	}
	for i := range c.Accessors {
		if c.Accessors[i].Type == "" {
			return fmt.Errorf("accessor %q has no type", c.Accessors[i].Pattern)
		}
		r, err := regexp.Compile(c.Accessors[i].Pattern)
		if err != nil {
			return fmt.Errorf("accessor %q: %w", c.Accessors[i].Pattern, err)
		}
		c.Accessors[i].regex = r
	}
	return nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// ExcludePaths returns the excluded paths, made absolute with respect to the config file or the working directory.
func (c Config) ExcludePaths() []string {
	res := make([]string, 0, len(c.Exclude))
	for _, e := range c.Exclude {
		if filepath.IsAbs(e) {
			res = append(res, e)
			continue
		}
		abs, err := filepath.Abs(c.RelPath(e))
		if err != nil {
			abs = e
		}
		if strings.HasSuffix(e, "/") {
			abs += "/"
		}
		res = append(res, abs)
	}
	return res
}

// MatchClassFilter returns true if the class name matches the class filter. An empty filter matches every class.
func (c Config) MatchClassFilter(class string) bool {
	return strings.HasPrefix(class, c.ClassFilter)
}

// IsThemeWrapper returns true if the instruction text denotes a theme wrapping construct.
func (c Config) IsThemeWrapper(text string) bool {
	return c.themeWrapperRegex != nil && c.themeWrapperRegex.MatchString(text)
}

// IsThemeType returns true if the static type denotes a theme object.
func (c Config) IsThemeType(typ string) bool {
	return c.themeTypeRegex != nil && c.themeTypeRegex.MatchString(typ)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// ExceedsMaxDepth returns true if the call-graph depth d is beyond the configured maximum depth.
func (c Config) ExceedsMaxDepth(d int) bool {
	return d > c.MaxDepth
}
