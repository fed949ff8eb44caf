// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"github.com/spf13/cobra"

	"github.com/bartekus/gitexam/cmd/gitexam/internal/clierr"
	"github.com/bartekus/gitexam/internal/decision"
	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/transcript"
)

func NewCommitCommand() *cobra.Command {
	var (
		message     string
		answersPath string
	)

	cmd := &cobra.Command{
		Use:   "commit [-- git commit args]",
		Short: "Examine the staged diff and commit when the exam passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, p, err := openRepo(ctx)
			if err != nil {
				return err
			}

			diff, files, err := repo.DiffStaged(ctx)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "reading staged diff", err)
			}
			ec, err := buildContext(ctx, repo, p, diff, files)
			if err != nil {
				return err
			}

			s, err := runSession(ctx, p, ec, func(e *exam.Exam) (*exam.Answers, error) {
				if answersPath != "" {
					return exam.LoadAnswers(answersPath)
				}
				return exam.PromptAnswers(e, cmd.InOrStdin(), cmd.OutOrStdout())
			})
			if err != nil {
				return err
			}
			printSessionReport(cmd.OutOrStdout(), s)
			if s.Decision != decision.Pass {
				return clierr.Newf(clierr.CodeDecisionFail, "commit blocked: %s", s.Reason)
			}

			tr := transcript.Assemble(p, s.Ctx, s.Exam, s.Answers, s.Score, s.Decision, s.Meta)

			// The commit happens before the transcript is stored: the notes
			// store needs the new HEAD to attach to.
			if err := repo.Commit(ctx, message, args); err != nil {
				return clierr.Wrap(clierr.CodeError, "committing", err)
			}
			head, err := repo.Head(ctx)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "resolving new HEAD", err)
			}
			if err := tr.BindCommit(head); err != nil {
				return clierr.Wrap(clierr.CodeError, "binding transcript", err)
			}

			store, err := transcript.Open(p, repo)
			if err != nil {
				return clierr.Wrap(clierr.CodeVerifyFail, "opening transcript store", err)
			}
			defer store.Close()
			if err := store.Put(ctx, head, tr); err != nil {
				return clierr.Wrap(clierr.CodeVerifyFail, "storing transcript", err)
			}
			cmd.Printf("committed %s with transcript %s\n", head[:min(10, len(head))], tr.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message, passed to git commit")
	cmd.Flags().StringVar(&answersPath, "answers", "", "read answers from a JSON file ('-' for stdin) instead of prompting")

	return cmd
}
