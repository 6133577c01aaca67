package main

import (
	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/cli"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index size, ledger consistency and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if serverURL != "" {
				format, err := cli.ParseOutputFormat(opts.output)
				if err != nil {
					return err
				}
				status, err := newAPIClient(serverURL).status(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteStatus(cmd.OutOrStdout(), status, format)
			}
			return opts.withComponents(cmd.Context(), func(e *env, c *app.Components) error {
				status, err := c.Status(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteStatus(cmd.OutOrStdout(), status, e.format)
			})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "read status from a running server at this URL")
	return cmd
}

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the vector index from the embedding backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd.Context(), func(e *env, c *app.Components) error {
				if err := c.Matcher.Rebuild(cmd.Context()); err != nil {
					return err
				}
				status, err := c.Status(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteStatus(cmd.OutOrStdout(), status, e.format)
			})
		},
	}
}
