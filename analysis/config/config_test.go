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
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, int(DebugLevel), cfg.LogLevel)
	assert.Equal(t, 2, cfg.MaxDepth)
	assert.Equal(t, "Styleable.", cfg.AttributeToken)
	assert.Equal(t, OrderByTopo, cfg.Ordering)
	assert.True(t, cfg.UnionInitializers)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, FormatSarif, cfg.ReportFormat)
	// unset fields keep their defaults
	assert.Equal(t, DefaultMaxNestedAnalysis, cfg.MaxNestedAnalysis)
	assert.Equal(t, DefaultThemeWrapperPattern, cfg.ThemeWrapperPattern)
	assert.True(t, cfg.Verbose())

	require.Len(t, cfg.Accessors, 1)
	require.NotNil(t, cfg.Accessors[0].Regex())
	assert.True(t, cfg.Accessors[0].Regex().MatchString("t0.ReadLength(t1)"))
	assert.Equal(t, filepath.Join("testdata", "other.yaml"), cfg.RelPath("other.yaml"))

	abs, err := filepath.Abs(filepath.Join("testdata", "gen"))
	require.NoError(t, err)
	assert.Equal(t, []string{abs + "/", "/abs/file.go"}, cfg.ExcludePaths())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(filepath.Join("testdata", "bad-regex.yaml"))
	assert.ErrorContains(t, err, "theme-type-pattern")

	_, err = Parse([]byte("ordering: sideways"))
	assert.ErrorContains(t, err, "invalid ordering")

	_, err = Parse([]byte("accessors:\n  - pattern: x\n"))
	assert.ErrorContains(t, err, "has no type")
}

func TestDefaults(t *testing.T) {
	cfg := NewDefault()
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, OrderByLine, cfg.Ordering)
	assert.True(t, cfg.IsThemeWrapper("new android.view.ContextThemeWrapper(ctx, id)"))
	assert.True(t, cfg.IsThemeType("android.content.res.Resources$Theme"))
	assert.True(t, cfg.IsThemeType("*ui.Theme"))
	assert.False(t, cfg.IsThemeType("*ui.Themed"))
	assert.True(t, cfg.MatchClassFilter("anything"))
	assert.False(t, cfg.ExceedsMaxDepth(1))
	assert.True(t, cfg.ExceedsMaxDepth(2))

	cfg.ThemeWrapperPattern = ""
	require.NoError(t, cfg.Compile())
	assert.False(t, cfg.IsThemeWrapper("ContextThemeWrapper"))
}

func TestLogGroupLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLogGroupWithLevel(WarnLevel, buf)
	l.SetAllFlags(0)
	l.Infof("hidden %d", 1)
	l.Debugf("hidden")
	l.Warnf("shown %s", "warning")
	l.Errorf("shown error")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, "[WARN] shown warning")
	assert.Contains(t, out, "[ERROR] shown error")
	assert.Equal(t, WarnLevel, l.Level())

	other := &bytes.Buffer{}
	l.SetAllOutput(other)
	l.Errorf("moved")
	assert.Contains(t, other.String(), "[ERROR] moved")
	assert.NotContains(t, buf.String(), "moved")

	var nilGroup *LogGroup
	nilGroup.Infof("no panic on nil group")
}
