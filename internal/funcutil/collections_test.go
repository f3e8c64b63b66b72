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

package funcutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, SortedKeys(map[int]bool{}))
	assert.Equal(t, []int{1, 3}, SetToOrderedSlice(map[int]bool{3: true, 2: false, 1: true}))
}

func TestSliceHelpers(t *testing.T) {
	words := []string{"apple", "bean", "avocado", "corn"}
	assert.Equal(t, []int{5, 4, 7, 4}, Map(words, func(s string) int { return len(s) }))
	assert.Equal(t, []string{"apple", "avocado"}, Filter(words, func(s string) bool { return strings.HasPrefix(s, "a") }))
	assert.True(t, Exists(words, func(s string) bool { return len(s) == 7 }))
	assert.False(t, Exists(words, func(s string) bool { return s == "" }))

	groups := GroupBy(words, func(s string) byte { return s[0] })
	assert.Equal(t, []string{"apple", "avocado"}, groups['a'])
	assert.Len(t, groups, 3)
}
