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

import (
	"errors"
	"fmt"

	"github.com/awslabs/attr-provenance/analysis"
	"github.com/awslabs/attr-provenance/analysis/gitdiff"
	"github.com/awslabs/attr-provenance/analysis/program"
	"github.com/spf13/cobra"
)

type diffOptions struct {
	repo string
	base string
	head string
}

func newDiffCmd(e *env) *cobra.Command {
	opts := &diffOptions{}
	cmd := &cobra.Command{
		Use:   "diff [packages...]",
		Short: "Scan the lines changed between two revisions",
		Long: `diff scans the lines added and deleted between the base and head revisions of a git repository.
The packages are loaded from the working tree, which should be at the head revision. Added lines are read at the
head revision and deleted lines at the base revision.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := analysis.BuildModel(e.logger, e.cfg, patterns(args))
			if err != nil {
				return err
			}
			provider, err := gitdiff.NewProvider(e.logger, model.Program, opts.repo, opts.base, opts.head)
			if err != nil {
				return err
			}
			src, err := gitdiff.NewSource(opts.repo)
			if err != nil {
				return err
			}
			scanner := newScanner(e, model, src)

			var errs []error
			for _, class := range provider.ChangedClasses() {
				if !e.cfg.MatchClassFilter(class) {
					continue
				}
				changes, err := provider.Changes(class)
				if err != nil {
					errs = append(errs, fmt.Errorf("class %s: %w", class, err))
					continue
				}
				e.logger.Debugf("class %s: %d methods with additions, %d with deletions\n",
					class, len(changes.Added), len(changes.Deleted))
				ctx := cmd.Context()
				if err := scanner.ScanChanges(ctx, program.Changes{Added: changes.Added}, opts.head); err != nil {
					return err
				}
				if err := scanner.ScanChanges(ctx, program.Changes{Deleted: changes.Deleted}, opts.base); err != nil {
					return err
				}
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}
			return writeReport(e, cmd.OutOrStdout(), scanner.Results())
		},
	}
	cmd.Flags().StringVar(&opts.repo, "repo", ".", "Path of the git repository")
	cmd.Flags().StringVar(&opts.base, "base", "HEAD~1", "Base revision")
	cmd.Flags().StringVar(&opts.head, "head", "HEAD", "Head revision")
	return cmd
}
