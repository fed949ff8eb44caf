// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bartekus/gitexam/cmd/gitexam/internal/clierr"
	"github.com/bartekus/gitexam/internal/decision"
	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/examiner"
)

// examPacketSchemaVersion identifies the packet wire format for external
// answer-collecting tools.
const examPacketSchemaVersion = "gitexam-exam/0.1"

// examPacket is the machine-readable form of a generated exam, emitted so
// an external tool can collect answers and feed them back via --answers.
type examPacket struct {
	SchemaVersion string     `json:"schema_version"`
	Exam          *exam.Exam `json:"exam"`
	PatchID       string     `json:"patch_id"`
	ChangedFiles  []string   `json:"changed_files"`
}

// examReport is the machine-readable outcome of a graded session.
type examReport struct {
	Decision decision.Decision `json:"decision"`
	Reason   string            `json:"reason,omitempty"`
	Score    *exam.Score       `json:"score"`
	Provider examiner.Metadata `json:"provider"`
	PatchID  string            `json:"patch_id"`
}

func NewExamCommand() *cobra.Command {
	var (
		staged      bool
		rangeSpec   string
		format      string
		answersPath string
	)

	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Run the exam over a diff without committing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, p, err := openRepo(ctx)
			if err != nil {
				return err
			}
			// The policy's exam_mode is the default; the flag overrides it.
			if !cmd.Flags().Changed("format") && p.ExamMode != "" {
				format = p.ExamMode
			}
			if format != "tui" && format != "json" {
				return clierr.Newf(clierr.CodeError, "unknown format %q (want tui or json)", format)
			}

			if rangeSpec == "" && !staged {
				return clierr.New(clierr.CodeError, "nothing selected: pass --staged or --range")
			}
			var diff string
			var files []string
			if rangeSpec != "" {
				diff, files, err = repo.DiffRange(ctx, rangeSpec)
			} else {
				diff, files, err = repo.DiffStaged(ctx)
			}
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "reading diff", err)
			}
			ec, err := buildContext(ctx, repo, p, diff, files)
			if err != nil {
				return err
			}

			// JSON mode without answers emits the exam itself so the
			// caller can answer out of band.
			if format == "json" && answersPath == "" {
				ex, _, err := examiner.New(p)
				if err != nil {
					return clierr.Wrap(clierr.CodeError, "configuring examiner", err)
				}
				e, err := ex.GenerateExam(ctx, ec)
				if err != nil {
					return clierr.Wrap(clierr.CodeError, "generating exam", err)
				}
				return printJSON(cmd.OutOrStdout(), examPacket{
					SchemaVersion: examPacketSchemaVersion,
					Exam:          e,
					PatchID:       ec.PatchID,
					ChangedFiles:  ec.ChangedFiles,
				})
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

			if format == "json" {
				if err := printJSON(cmd.OutOrStdout(), examReport{
					Decision: s.Decision,
					Reason:   s.Reason,
					Score:    s.Score,
					Provider: s.Meta,
					PatchID:  s.Ctx.PatchID,
				}); err != nil {
					return err
				}
			} else {
				printSessionReport(cmd.OutOrStdout(), s)
			}
			if s.Decision != decision.Pass {
				return clierr.Newf(clierr.CodeDecisionFail, "exam failed: %s", s.Reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&staged, "staged", true, "examine the staged diff")
	cmd.Flags().StringVar(&rangeSpec, "range", "", "examine a commit range like HEAD~1..HEAD instead of the staged diff")
	cmd.Flags().StringVar(&format, "format", "tui", "output format: tui or json")
	cmd.Flags().StringVar(&answersPath, "answers", "", "read answers from a JSON file ('-' for stdin) instead of prompting")
	cmd.MarkFlagsMutuallyExclusive("staged", "range")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSessionReport(w io.Writer, s *session) {
	fmt.Fprintf(w, "decision: %s", s.Decision)
	if s.Reason != "" {
		fmt.Fprintf(w, " (%s)", s.Reason)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "score:    %.2f\n", s.Score.TotalScore)
	for _, q := range s.Score.PerQuestion {
		fmt.Fprintf(w, "  %-20s %.2f", q.ID, q.Score)
		if len(q.Notes) > 0 {
			fmt.Fprintf(w, "  %s", strings.Join(q.Notes, "; "))
		}
		fmt.Fprintln(w)
	}
	for _, f := range s.Score.HallucinationFlags {
		fmt.Fprintf(w, "  flag: %s\n", f)
	}
}
