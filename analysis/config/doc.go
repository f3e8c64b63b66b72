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

/*
Package config provides the configuration of the attribute provenance analyses and the leveled logger they share.

Use [Load](filename) to load a configuration from a yaml file, or [NewDefault]() for the default configuration.
Every field that is not set in the file keeps its default value. For example, a valid config file is:

	log-level: 4
	max-depth: 2
	class-filter: example.com/app
	attribute-token: "R.styleable."
	ordering: topo
	accessors:
	  - pattern: '\.ReadLength\('
	    type: dimension

The [LogGroup] returned by [NewLogGroup] filters messages according to the log-level option.
*/
package config
