package main

import (
	"errors"

	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/cli"
	"github.com/spf13/cobra"
)

func newInsightsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insights <resume-id>",
		Short: "Summarize a stored resume with the configured LLM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withComponents(cmd.Context(), func(e *env, c *app.Components) error {
				if c.Insights == nil {
					return errors.New("insights require llm.model and an API key or llm.base_url")
				}
				resume, err := c.Storage.GetResume(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				summary, err := c.Insights.Extract(cmd.Context(), resume.Content)
				if err != nil {
					return err
				}
				return cli.WriteInsights(cmd.OutOrStdout(), summary.Fields(), e.format)
			})
		},
	}
}
