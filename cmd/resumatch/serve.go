package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/server"
	"github.com/hyperjump/resumatch/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noInbox bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the inbox watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return opts.withComponents(ctx, func(e *env, c *app.Components) error {
				return serve(ctx, e, c, !noInbox)
			})
		},
	}
	cmd.Flags().BoolVar(&noInbox, "no-inbox", false, "do not watch the configured inbox directories")
	return cmd
}

func serve(ctx context.Context, e *env, c *app.Components, inbox bool) error {
	logger := e.logger
	var inboxSvc server.InboxService
	if dirs := e.cfg.Inbox.Directories; inbox && len(dirs) > 0 {
		w := watcher.NewWatcher(dirs, c.Indexer,
			watcher.WithExtensions(e.cfg.Inbox.Extensions),
			watcher.WithRecursive(e.cfg.Inbox.RecursiveOrDefault()),
			watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		go w.SyncExisting(ctx)
		inboxSvc = w
	}

	srv := server.NewServer(c, inboxSvc, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	return nil
}
