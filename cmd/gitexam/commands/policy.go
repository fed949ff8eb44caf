// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"github.com/spf13/cobra"

	"github.com/bartekus/gitexam/cmd/gitexam/internal/clierr"
	"github.com/bartekus/gitexam/internal/policy"
)

func NewPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the policy in force",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the policy file",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, p, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			// openRepo already validated; report what is in force.
			cmd.Printf("policy OK (%s)\n", repo.Workdir+"/"+policy.FileName)
			cmd.Printf("  provider:   %s\n", p.Provider)
			cmd.Printf("  store:      %s\n", p.Store)
			cmd.Printf("  min score:  %.2f\n", p.MinTotalScore)
			cmd.Printf("  required:   %v\n", p.RequiredCategories)
			cmd.Printf("  max flags:  %d\n", p.MaxHallucinationFlags)
			return nil
		},
	})

	return cmd
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Modify the policy file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a policy key and write the file back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, p, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.Set(args[0], args[1]); err != nil {
				return clierr.Wrapf(clierr.CodeError, err, "setting %s", args[0])
			}
			path, err := p.Save(repo.Workdir)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "saving policy", err)
			}
			cmd.Printf("updated %s\n", path)
			return nil
		},
	})

	return cmd
}
