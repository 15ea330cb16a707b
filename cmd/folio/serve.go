package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"folio/internal/logger"
	"folio/internal/serve"
	"folio/internal/watch"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the collection over HTTP and reload it when posts change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	srv := serve.New(serve.Options{
		Service:         a.svc,
		Site:            a.cfg.Site,
		PageSize:        a.cfg.Content.PageSize,
		InvalidateToken: a.cfg.Server.InvalidateToken,
		Logger:          a.log,
		Gatherer:        a.registry,
	})

	// The first load provisions a missing content directory for the watcher.
	if _, err := a.svc.Snapshot(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Watch.Enabled {
		w, err := watch.NewWatcher(a.cfg.Content.Dir, a.cfg.Watch.Debounce, a.cfg.Content.Extensions, srv, a.log)
		if err != nil {
			a.log.Warn("file watching disabled", logger.String("dir", a.cfg.Content.Dir), logger.Error(err))
		} else {
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	if client := a.redisClient(); client != nil {
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s: %w", a.cfg.Redis.Addr, err)
		}
		stopSub, err := watch.Subscribe(ctx, client, a.cfg.Redis.Channel, srv, a.log)
		if err != nil {
			return err
		}
		defer stopSub()
	}

	g.Go(func() error { return srv.ListenAndServe(ctx, a.cfg.Server.Addr) })
	return g.Wait()
}
