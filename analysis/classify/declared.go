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

// Package classify implements the classifiers attached to attribute sources: the declared-type classifier, which
// maps the text of an accessor call to the type of the value it reads, and the theme classifier, which decides
// whether a value flows into a theme construct.
package classify

import (
	"regexp"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/analysis/program"
)

// DeclaredType is the type of value read by an attribute accessor.
type DeclaredType string

// The declared types of the built-in accessor table
const (
	None           DeclaredType = "none"
	Integer        DeclaredType = "integer"
	Float          DeclaredType = "float"
	String         DeclaredType = "string"
	ColorStateList DeclaredType = "color_state_list"
	Dimension      DeclaredType = "dimension"
	HasValue       DeclaredType = "has_value"
	DimensionPixel DeclaredType = "dimension_pixel"
	Fraction       DeclaredType = "fraction"
	Drawable       DeclaredType = "drawable"
	Boolean        DeclaredType = "boolean"
	ComplexColor   DeclaredType = "complex_color"
	PeekValue      DeclaredType = "peek_value"
	ResourceID     DeclaredType = "resource_id"
)

// noExclusion marks an accessor without an excluded overload
const noExclusion = -1

type accessor struct {
	typ   DeclaredType
	regex *regexp.Regexp
	// excludeArgs is the number of arguments of the overload that does not read an attribute
	excludeArgs int
	// hasDefault is true when the last argument of a call with two arguments or more is the default value
	hasDefault bool
}

// builtins is the accessor table, in priority order
var builtins = []accessor{
	newAccessor(Integer, noExclusion, "getInt", "getInteger").withDefault(),
	newAccessor(Float, noExclusion, "getFloat").withDefault(),
	newAccessor(Integer, noExclusion, "getColor").withDefault(),
	newAccessor(String, noExclusion, "getString", "getText", "getNonResourceString"),
	newAccessor(ColorStateList, noExclusion, "getColorStateList"),
	newAccessor(Dimension, 0, "getDimension").withDefault(),
	newAccessor(HasValue, noExclusion, "hasValue", "hasValueOrEmpty"),
	newAccessor(DimensionPixel, noExclusion, "getDimensionPixelSize", "getDimensionPixelOffset",
		"getLayoutDimension").withDefault(),
	newAccessor(Fraction, 2, "getFraction").withDefault(),
	newAccessor(Drawable, noExclusion, "getDrawable"),
	newAccessor(Boolean, noExclusion, "getBoolean").withDefault(),
	newAccessor(ComplexColor, noExclusion, "getComplexColor", "getGradientColor"),
	newAccessor(PeekValue, noExclusion, "peekValue"),
	newAccessor(Float, noExclusion, "getAttributeFloatValue").withDefault(),
	newAccessor(Integer, noExclusion, "getAttributeIntValue", "getAttributeUnsignedIntValue").withDefault(),
	newAccessor(String, noExclusion, "getAttributeValue"),
	newAccessor(Boolean, noExclusion, "getAttributeBooleanValue").withDefault(),
	newAccessor(ResourceID, noExclusion, "getResourceId", "getAttributeResourceValue").withDefault(),
}

// newAccessor returns the accessor matching a call to one of names. The first letter of a name matches in either
// case, so that exported Go methods classify like their lower-case counterparts.
func newAccessor(typ DeclaredType, excludeArgs int, names ...string) accessor {
	alts := make([]string, len(names))
	for i, name := range names {
		first := name[:1]
		alts[i] = "[" + strings.ToLower(first) + strings.ToUpper(first) + "]" + regexp.QuoteMeta(name[1:])
	}
	return accessor{
		typ:         typ,
		regex:       regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\(`),
		excludeArgs: excludeArgs,
	}
}

func (a accessor) withDefault() accessor {
	a.hasDefault = true
	return a
}

// matches returns true if the accessor matches a call in text whose argument count is not excluded
func (a accessor) matches(text string) bool {
	for _, loc := range a.regex.FindAllStringIndex(text, -1) {
		if a.excludeArgs == noExclusion || countArgs(text[loc[1]:]) != a.excludeArgs {
			return true
		}
	}
	return false
}

// countArgs returns the number of top-level arguments of the argument list starting at s, just after the opening
// parenthesis. An unterminated list counts the arguments seen so far.
func countArgs(s string) int {
	depth := 0
	n := 0
	empty := true
	for _, c := range s {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				if empty {
					return 0
				}
				return n + 1
			}
			depth--
		case ',':
			if depth == 0 {
				n++
				continue
			}
		case ' ', '\t':
			continue
		}
		empty = false
	}
	if empty {
		return n
	}
	return n + 1
}

// A Classifier maps instruction text to declared types. The zero value is not usable; use NewClassifier.
type Classifier struct {
	accessors []accessor
}

// NewClassifier returns a classifier using the built-in accessor table followed by the accessors of cfg.
func NewClassifier(cfg *config.Config) *Classifier {
	c := &Classifier{accessors: builtins}
	if cfg == nil {
		return c
	}
	for _, spec := range cfg.Accessors {
		if spec.Regex() == nil {
			continue
		}
		c.accessors = append(c.accessors, accessor{
			typ:         DeclaredType(spec.Type),
			regex:       spec.Regex(),
			excludeArgs: noExclusion,
			hasDefault:  spec.Default,
		})
	}
	return c
}

// Classify returns the declared type of the first accessor matching text, or None.
func (c *Classifier) Classify(text string) DeclaredType {
	if a := c.match(text); a != nil {
		return a.typ
	}
	return None
}

func (c *Classifier) match(text string) *accessor {
	for i := range c.accessors {
		if c.accessors[i].matches(text) {
			return &c.accessors[i]
		}
	}
	return nil
}

// DefaultArg returns the argument of the call of instr that holds the default value of the attribute read, if
// the accessor matching instr takes one.
func (c *Classifier) DefaultArg(instr *program.Instruction) (program.Ref, bool) {
	if instr == nil || instr.Call == nil || len(instr.Call.Args) < 2 {
		return program.Ref{}, false
	}
	a := c.match(instr.Text)
	if a == nil || !a.hasDefault {
		return program.Ref{}, false
	}
	return instr.Call.Args[len(instr.Call.Args)-1], true
}

// ClassifyInstruction classifies the text of instr.
func (c *Classifier) ClassifyInstruction(instr *program.Instruction) DeclaredType {
	if instr == nil {
		return None
	}
	return c.Classify(instr.Text)
}

// IsSink returns true if instr reads a typed attribute value.
func (c *Classifier) IsSink(instr *program.Instruction) bool {
	return c.ClassifyInstruction(instr) != None
}

// Classify classifies text with the built-in accessor table.
func Classify(text string) DeclaredType {
	return (&Classifier{accessors: builtins}).Classify(text)
}
