// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"github.com/spf13/cobra"

	"github.com/bartekus/gitexam/cmd/gitexam/internal/clierr"
)

func NewHookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the pre-commit hook that routes commits through the exam",
	}

	var force bool
	install := &cobra.Command{
		Use:   "install",
		Short: "Install the pre-commit hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, p, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			if p.Hooks.Enforce != nil && !*p.Hooks.Enforce {
				cmd.Println("hooks.enforce is false in policy; not installing")
				return nil
			}
			path, err := repo.InstallPreCommitHook(force)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "installing hook", err)
			}
			cmd.Printf("installed %s\n", path)
			return nil
		},
	}
	install.Flags().BoolVar(&force, "force", false, "overwrite an existing pre-commit hook")

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the pre-commit hook if gitexam installed it",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			if err := repo.UninstallPreCommitHook(); err != nil {
				return clierr.Wrap(clierr.CodeError, "removing hook", err)
			}
			cmd.Println("removed pre-commit hook")
			return nil
		},
	}

	cmd.AddCommand(install, uninstall)
	return cmd
}
