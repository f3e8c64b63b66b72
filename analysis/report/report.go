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

// Package report renders the potential sources and default values found by a scan as text, YAML or SARIF.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/attr-provenance/analysis/attrscan"
	"github.com/awslabs/attr-provenance/analysis/config"
	"github.com/awslabs/attr-provenance/internal/formatutil"
	"github.com/awslabs/attr-provenance/internal/funcutil"
	"github.com/owenrumney/go-sarif/v2/sarif"
	"gopkg.in/yaml.v3"
)

const (
	toolName = "attrscan"
	toolURI  = "https://github.com/awslabs/attr-provenance"
)

// A Report is the serializable content of scan results.
type Report struct {
	Sources  []*attrscan.PotentialSource `yaml:"sources"`
	Defaults []attrscan.DefaultPair      `yaml:"defaults"`
}

// New returns the report of results, with sources and defaults in deterministic order.
func New(results *attrscan.Results) Report {
	return Report{Sources: results.Sources(), Defaults: results.Defaults()}
}

// defaultsOf groups the default descriptions by attribute
func (r Report) defaultsOf() map[string][]string {
	res := map[string][]string{}
	for attr, pairs := range funcutil.GroupBy(r.Defaults, func(d attrscan.DefaultPair) string { return d.Attribute }) {
		res[attr] = funcutil.Map(pairs, func(d attrscan.DefaultPair) string { return d.Default })
	}
	return res
}

// Write renders r on w in the given format (one of config.FormatText, FormatYaml or FormatSarif).
func Write(w io.Writer, format string, r Report) error {
	switch format {
	case config.FormatText, "":
		return WriteText(w, r)
	case config.FormatYaml:
		return WriteYaml(w, r)
	case config.FormatSarif:
		return WriteSarif(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile writes r in a new file of dir, created if needed, and returns the file name.
func WriteFile(dir, format string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("could not create reports directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "attrscan-*."+extension(format))
	if err != nil {
		return "", fmt.Errorf("could not create report file: %w", err)
	}
	return f.Name(), writeAndClose(f, format, r)
}

// writeAndClose writes r to w and closes it. The write error takes precedence over the close error.
func writeAndClose(w io.WriteCloser, format string, r Report) error {
	err := Write(w, format, r)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("could not close report file: %w", cerr)
	}
	return err
}

func extension(format string) string {
	switch format {
	case config.FormatYaml:
		return "yaml"
	case config.FormatSarif:
		return "sarif"
	default:
		return "txt"
	}
}

// WriteText writes a human-readable rendering of r, colored when w is a terminal.
func WriteText(w io.Writer, r Report) error {
	style := formatutil.ForWriter(w)
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s %d\n", style.Bold("Potential sources:"), len(r.Sources))
	defaults := r.defaultsOf()
	for _, s := range r.Sources {
		attr := s.Attribute
		if attr == "" {
			attr = "-"
		}
		fmt.Fprintf(b, "  [%s] %s %s:%d (depth %d, theme %s)\n",
			style.Green(s.DeclaredType), style.Cyan(attr), s.Signature, s.Line, s.Depth, style.Yellow(s.Theme))
		fmt.Fprintf(b, "      %s\n", style.Faint(formatutil.Sanitize(strings.TrimSpace(s.Source))))
		if len(s.Trace) > 0 {
			fmt.Fprintf(b, "      via %s\n", style.Magenta(strings.Join(s.Trace, " <- ")))
		}
		if ds := defaults[s.Attribute]; s.Attribute != "" && len(ds) > 0 {
			fmt.Fprintf(b, "      defaults: %s\n", strings.Join(ds, ", "))
		}
	}
	if len(r.Defaults) > 0 {
		fmt.Fprintf(b, "%s\n", style.Bold("Default values:"))
		for _, attr := range funcutil.SortedKeys(defaults) {
			fmt.Fprintf(b, "  %s = %s\n", style.Cyan(attr), strings.Join(defaults[attr], " | "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteYaml writes r as a YAML document.
func WriteYaml(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode yaml report: %w", err)
	}
	return enc.Close()
}

// Sarif returns the SARIF log of r. Each declared type is a rule; each source is a result of the rule of its type.
func Sarif(r Report) (*sarif.Report, error) {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}
	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	defaults := r.defaultsOf()
	for _, s := range r.Sources {
		rule := run.AddRule(string(s.DeclaredType)).
			WithDescription(fmt.Sprintf("attribute value read with declared type %s", s.DeclaredType))

		uri := s.File
		if uri == "" {
			uri = s.Signature
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
				WithRegion(sarif.NewRegion().WithStartLine(s.Line).
					WithSnippet(sarif.NewArtifactContent().WithText(s.Source))),
		)

		msg := fmt.Sprintf("potential source in %s", s.Signature)
		if s.Attribute != "" {
			msg = fmt.Sprintf("potential source of attribute %s in %s", s.Attribute, s.Signature)
		}
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLevel("note").
			WithLocations([]*sarif.Location{location})
		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("depth", s.Depth)
		result.Add("theme", string(s.Theme))
		if s.Attribute != "" {
			result.Add("attribute", s.Attribute)
			if ds := defaults[s.Attribute]; len(ds) > 0 {
				result.Add("defaults", ds)
			}
		}
		if len(s.Trace) > 0 {
			result.Add("trace", s.Trace)
		}
		run.AddResult(result)
	}
	log.AddRun(run)
	return log, nil
}

// WriteSarif writes r as an indented SARIF log.
func WriteSarif(w io.Writer, r Report) error {
	log, err := Sarif(r)
	if err != nil {
		return err
	}
	return log.PrettyWrite(w)
}
