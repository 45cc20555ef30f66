package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/config"
	"github.com/lotas/readlater/internal/server"
	"github.com/lotas/readlater/internal/syncer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the extension bridge and the HTTP API",
		Long: `Serve the browser extension bridge (WebSocket on /ws), the share target
(/share) and the JSON API (/api/...). With cloud sync configured, the stored
session is restored, remote changes are followed and queued changes are
delivered in the background. The config file is watched for changes to the
log level and the server Gemini key.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	var serverKey atomic.Value
	serverKey.Store(a.cfg.Gemini.APIKey)

	a.restore(ctx)

	bridge := server.NewBridge()
	defer bridge.Close()
	dispatcher := &server.Dispatcher{Bridge: bridge, Saver: a.svc, Inject: a.injector()}

	deps := server.Deps{
		Pages:     a.svc,
		Tags:      a.tags,
		ServerKey: func() string { return serverKey.Load().(string) },
		Bridge:    bridge,
		StaleDays: a.cfg.StaleDays,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, addr, server.NewRouter(deps))
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	if a.outbox != nil {
		g.Go(func() error {
			return a.outbox.Run(gctx, a.cfg.Cloud.FlushInterval)
		})
	}
	if _, err := os.Stat(a.cfgPath); err == nil {
		g.Go(func() error {
			return config.Watch(gctx, a.cfgPath, func(next *config.Config) {
				applog.SetLevel(next.LogLevel)
				serverKey.Store(next.Gemini.APIKey)
			})
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", addr)
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// injector applies sessions handed over by the extension.
func (a *app) injector() server.SessionInjector {
	return func(ctx context.Context, blob string) error {
		if a.session == nil {
			return syncer.ErrSyncDisabled
		}
		_, err := a.session.Inject(ctx, a.vault, blob)
		return err
	}
}
