// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"github.com/spf13/cobra"

	"github.com/bartekus/gitexam/cmd/gitexam/internal/clierr"
	"github.com/bartekus/gitexam/internal/fingerprint"
	"github.com/bartekus/gitexam/internal/redact"
	"github.com/bartekus/gitexam/internal/transcript"
)

func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <commitish>",
		Short: "Re-verify a commit's transcript against the current policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, p, err := openRepo(ctx)
			if err != nil {
				return err
			}
			commit, err := repo.ResolveCommitish(ctx, args[0])
			if err != nil {
				return clierr.Wrapf(clierr.CodeError, err, "resolving %q", args[0])
			}

			store, err := transcript.Open(p, repo)
			if err != nil {
				return clierr.Wrap(clierr.CodeVerifyFail, "opening transcript store", err)
			}
			defer store.Close()

			tr, err := store.Get(ctx, commit)
			if err != nil {
				return clierr.Wrapf(clierr.CodeVerifyFail, err, "loading transcript for %s", commit)
			}

			// Structural integrity first: the transcript must be bound to
			// this commit and its fingerprint must match the commit's
			// actual diff. Only then is the policy predicate re-run.
			if tr.CommitSHA() != commit {
				return clierr.Newf(clierr.CodeVerifyFail, "transcript is not bound to %s", commit)
			}
			diff, err := repo.CommitDiff(ctx, commit)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "reading commit diff", err)
			}
			redacted, _, err := redact.Diff(p, diff)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "applying redactions", err)
			}
			patchID, err := fingerprint.PatchID(redacted)
			if err != nil {
				return clierr.Wrap(clierr.CodeVerifyFail, "fingerprinting commit diff", err)
			}
			if patchID != tr.PatchID() {
				return clierr.Newf(clierr.CodeVerifyFail, "patch-id mismatch: transcript covers %s, commit diff is %s", tr.PatchID(), patchID)
			}

			if err := tr.VerifyAgainstPolicy(p); err != nil {
				return clierr.Wrapf(clierr.CodeVerifyFail, err, "transcript for %s does not verify", commit)
			}
			cmd.Print(tr.Summary())
			cmd.Println("verified OK")
			return nil
		},
	}
	return cmd
}
