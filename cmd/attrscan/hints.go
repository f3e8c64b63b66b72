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

package main

import "regexp"

// Captures errors happening before any analysis starts (program could not load)
var regexCouldNotLoad = regexp.MustCompile("could not load program")

// Captures the kind of error that happen when you put a flag at the end instead of go files
var namedFilesMustBeGoFiles = regexp.MustCompile(`-: named files must be .go files: -(\w)`)

// Captures the rta call-graph mode used on a library
var missingMain = regexp.MustCompile("rapid type analysis needs a main package")

// Captures a diff run outside of a repository
var notARepository = regexp.MustCompile("failed to open repository")

// hintForErrorMessage looks for specific error messages and returns some other message that might help the user
// resolve the problem.
func hintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		if namedFilesMustBeGoFiles.MatchString(errMsg) {
			return "all command line flags should be before the packages to analyze"
		}
		return "make sure you have provided the right package patterns to load a Go program"
	}
	if missingMain.MatchString(errMsg) {
		return "use callgraph: cha or vta in the configuration to analyze a library"
	}
	if notARepository.MatchString(errMsg) {
		return "the diff command must run inside a git repository, or be given one with --repo"
	}
	return ""
}
