package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/cli"
	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/matcher"
	"github.com/spf13/cobra"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "index <file-or-directory>",
		Short: "Extract, embed and index resumes",
		Long: `Index a single resume file or every supported file in a directory.
Use "-" to read resume text from stdin (requires --id).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withComponents(cmd.Context(), func(e *env, c *app.Components) error {
				return runIndex(cmd, e, c, args[0], id)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "resume id (single file or stdin only; derived from the path when empty)")
	return cmd
}

func runIndex(cmd *cobra.Command, e *env, c *app.Components, path, id string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if path == "-" {
		if id == "" {
			return errors.New("--id is required when reading from stdin")
		}
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		rec, err := c.Indexer.IndexText(ctx, id, string(text), "")
		return reportIndexed(cmd, e, rec, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if id != "" {
			return errors.New("--id cannot be used with a directory")
		}
		results, err := c.Indexer.IndexDirectory(ctx, path)
		if err != nil {
			return fmt.Errorf("indexing directory failed: %w", err)
		}
		if err := cli.WriteIndexResults(out, results, e.format); err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
		}
		return nil
	}

	rec, err := c.Indexer.IndexFile(ctx, path, id)
	return reportIndexed(cmd, e, rec, err)
}

func reportIndexed(cmd *cobra.Command, e *env, rec matcher.Record, err error) error {
	if errors.Is(err, matcher.ErrPersistence) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	} else if errors.Is(err, indexer.ErrDuplicateID) {
		return fmt.Errorf("%w: use a different --id", err)
	} else if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	if e.format == cli.OutputJSON {
		return cli.WriteIndexResults(cmd.OutOrStdout(), []indexer.FileResult{{ResumeID: rec.ExternalID, Position: rec.Position}}, e.format)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resume indexed: %s (position %d)\n", rec.ExternalID, rec.Position)
	return nil
}
