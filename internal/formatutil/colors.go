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

// Package formatutil manipulates string colors and other formatting operations.
package formatutil

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	bold    = "\033[1m%s\033[0m"
	faint   = "\033[2m%s\033[0m"
	red     = "\033[1;31m%s\033[0m"
	green   = "\033[1;32m%s\033[0m"
	yellow  = "\033[1;33m%s\033[0m"
	magenta = "\033[1;35m%s\033[0m"
	cyan    = "\033[1;36m%s\033[0m"
)

// A Style colors strings when it writes to a terminal, and leaves them unchanged otherwise.
type Style struct {
	color bool
}

// ForWriter returns the style for w: colored if w is a terminal.
func ForWriter(w io.Writer) Style {
	if f, ok := w.(*os.File); ok {
		return Style{color: term.IsTerminal(int(f.Fd()))}
	}
	return Style{}
}

// Colored returns a style that always colors.
func Colored() Style { return Style{color: true} }

func (s Style) apply(colorString string, args []any) string {
	if s.color {
		return fmt.Sprintf(colorString, fmt.Sprint(args...))
	}
	return fmt.Sprint(args...)
}

func (s Style) Bold(args ...any) string    { return s.apply(bold, args) }
func (s Style) Faint(args ...any) string   { return s.apply(faint, args) }
func (s Style) Red(args ...any) string     { return s.apply(red, args) }
func (s Style) Green(args ...any) string   { return s.apply(green, args) }
func (s Style) Yellow(args ...any) string  { return s.apply(yellow, args) }
func (s Style) Magenta(args ...any) string { return s.apply(magenta, args) }
func (s Style) Cyan(args ...any) string    { return s.apply(cyan, args) }

// Sanitize is a simple sanitizer that removes all escape sequences
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	if len(r) >= 2 {
		return r[1 : len(r)-1]
	}
	return r
}
