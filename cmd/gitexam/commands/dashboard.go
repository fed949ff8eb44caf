// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bartekus/gitexam/cmd/gitexam/internal/clierr"
	"github.com/bartekus/gitexam/internal/dashboard"
	"github.com/bartekus/gitexam/internal/transcript"
)

func NewDashboardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Export or serve the transcript dashboard",
	}

	var (
		outPath        string
		includeAnswers bool
		limit          int
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the transcript export as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, p, err := openRepo(ctx)
			if err != nil {
				return err
			}
			store, err := transcript.Open(p, repo)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "opening transcript store", err)
			}
			defer store.Close()

			doc, err := dashboard.Build(ctx, repo, store, dashboard.Options{
				IncludeAnswers: includeAnswers,
				Limit:          limit,
			})
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "building export", err)
			}
			data, err := doc.Encode()
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "encoding export", err)
			}
			if outPath == "" || outPath == "-" {
				cmd.Println(string(data))
				return nil
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return clierr.Wrapf(clierr.CodeError, err, "writing %s", outPath)
			}
			cmd.Printf("wrote %d entries to %s\n", len(doc.Entries), outPath)
			return nil
		},
	}
	export.Flags().StringVar(&outPath, "out", "-", "output path, '-' for stdout")
	export.Flags().BoolVar(&includeAnswers, "include-answers", false, "keep free-text answers in the export")
	export.Flags().IntVar(&limit, "limit", 0, "cap the number of entries, 0 means all")

	var (
		host string
		port int
	)
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, p, err := openRepo(ctx)
			if err != nil {
				return err
			}
			store, err := transcript.Open(p, repo)
			if err != nil {
				return clierr.Wrap(clierr.CodeError, "opening transcript store", err)
			}
			defer store.Close()

			addr := fmt.Sprintf("%s:%d", host, port)
			cmd.Printf("serving dashboard on http://%s\n", addr)
			return dashboard.Serve(ctx, addr, repo, store, dashboard.Options{IncludeAnswers: includeAnswers})
		},
	}
	serve.Flags().StringVar(&host, "host", "127.0.0.1", "listen host")
	serve.Flags().IntVar(&port, "port", 8377, "listen port")
	serve.Flags().BoolVar(&includeAnswers, "include-answers", false, "expose free-text answers over HTTP")

	cmd.AddCommand(export, serve)
	return cmd
}
