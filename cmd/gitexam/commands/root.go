// SPDX-License-Identifier: AGPL-3.0-or-later

/*
gitexam - commit gating through proof of understanding.

It examines the author of a change about the change itself before the commit
is allowed, records a tamper-evident transcript of the exam next to the
commit, and re-verifies transcripts against the policy currently in force.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the gitexam root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("GITEXAM_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	var verbose bool

	cmd := &cobra.Command{
		Use:           "gitexam",
		Short:         "gitexam - commit gating through proof of understanding",
		Long:          "gitexam examines the author about a change before letting it through, and stores a re-verifiable transcript alongside the commit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of gitexam",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "gitexam version %s\n", version)
		},
	})

	cmd.AddCommand(NewExamCommand())
	cmd.AddCommand(NewCommitCommand())
	cmd.AddCommand(NewVerifyCommand())
	cmd.AddCommand(NewHookCommand())
	cmd.AddCommand(NewDashboardCommand())
	cmd.AddCommand(NewPolicyCommand())
	cmd.AddCommand(NewConfigCommand())

	return cmd
}
