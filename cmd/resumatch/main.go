// Package main is the resumatch CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/cli"
	"github.com/hyperjump/resumatch/internal/config"
	"github.com/hyperjump/resumatch/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/resumatch/config.yaml"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	debug      bool
	output     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "resumatch",
		Short:         "Index resumes and match them against job descriptions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file with secrets (default .env when present)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newServeCmd(opts),
		newIndexCmd(opts),
		newMatchCmd(opts),
		newStatusCmd(opts),
		newRebuildCmd(opts),
		newInsightsCmd(opts),
	)
	return root
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// env is what a command needs once flags are parsed.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	format     cli.OutputFormat
}

func (o *rootOptions) setup() (*env, error) {
	format, err := cli.ParseOutputFormat(o.output)
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}
	cfg, resolved, err := loadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || o.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return &env{cfg: cfg, configPath: resolved, logger: logger, format: format}, nil
}

// withComponents opens every component for the duration of fn.
func (o *rootOptions) withComponents(ctx context.Context, fn func(e *env, c *app.Components) error) error {
	e, err := o.setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	c, err := app.Open(ctx, e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	return errors.Join(fn(e, c), c.Close())
}

// joinArgs joins positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
