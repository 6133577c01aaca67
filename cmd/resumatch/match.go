package main

import (
	"errors"

	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/cli"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/spf13/cobra"
)

type matchFlags struct {
	k              int
	serverURL      string
	title          string
	location       string
	yearsExp       string
	skills         string
	qualifications string
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	f := &matchFlags{}
	cmd := &cobra.Command{
		Use:   "match [job description...]",
		Short: "Find the resumes closest to a job description",
		Long: `Match resumes against a free-text job description, or against structured fields
(--title, --location and --years are then required).`,
		Example: `  resumatch match senior go engineer with kubernetes
  resumatch match --title "Data Engineer" --location Berlin --years 5 --skills "Spark, Airflow"
  resumatch match -k 10 -o json "backend developer"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := f.query(args)
			if f.serverURL != "" {
				format, err := cli.ParseOutputFormat(opts.output)
				if err != nil {
					return err
				}
				resp, err := newAPIClient(f.serverURL).match(cmd.Context(), query)
				if err != nil {
					return err
				}
				return cli.WriteMatchResults(cmd.OutOrStdout(), resp, format)
			}
			return opts.withComponents(cmd.Context(), func(e *env, c *app.Components) error {
				resp, err := c.Search.Match(cmd.Context(), query)
				if err != nil {
					return matchError(err)
				}
				return cli.WriteMatchResults(cmd.OutOrStdout(), resp, e.format)
			})
		},
	}
	cmd.Flags().IntVarP(&f.k, "k", "k", 0, "number of matches (default from config)")
	cmd.Flags().StringVar(&f.serverURL, "server", "", "query a running server at this URL instead of opening the index")
	cmd.Flags().StringVar(&f.title, "title", "", "job title")
	cmd.Flags().StringVar(&f.location, "location", "", "job location")
	cmd.Flags().StringVar(&f.yearsExp, "years", "", "years of experience")
	cmd.Flags().StringVar(&f.skills, "skills", "", "required skills")
	cmd.Flags().StringVar(&f.qualifications, "qualifications", "", "required qualifications")
	return cmd
}

func (f *matchFlags) query(args []string) *models.MatchQuery {
	return &models.MatchQuery{
		JobDescription: joinArgs(args),
		JobTitle:       f.title,
		Location:       f.location,
		YearsExp:       f.yearsExp,
		Skills:         f.skills,
		Qualifications: f.qualifications,
		K:              f.k,
	}
}

func matchError(err error) error {
	if errors.Is(err, models.ErrIncompleteQuery) {
		return errors.New("give a job description, or --title, --location and --years")
	}
	return err
}
