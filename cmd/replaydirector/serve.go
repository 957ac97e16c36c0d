package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/replaydirector/internal/api"
	"github.com/ivlev/replaydirector/internal/engine"
	"github.com/ivlev/replaydirector/internal/renderer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Drive the replay and expose the command API",
	Long:  `Runs the playback sync loop, the playback poll and autosave, and serves the command surface over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			a.cfg.Listen = listen
		}

		sync := renderer.NewSync(a.manager, a.host, a.host,
			renderer.WithTimeout(a.cfg.SetTimeout),
			renderer.WithLogger(a.logger),
			renderer.WithMetrics(a.metrics),
		)
		scheduler := engine.NewScheduler(a.manager, sync, a.cfg.Ticks, engine.WithLogger(a.logger))

		handler := api.NewHandler(&api.Server{
			Manager:  a.manager,
			Sync:     sync,
			Gatherer: a.registry,
			Logger:   a.logger,
		})
		srv := &http.Server{
			Addr:              a.cfg.Listen,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
		g.Go(func() error {
			a.logger.Info("serving command API", "addr", srv.Addr, "dir", a.cfg.SequenceDir, "version", a.cfg.BuildVersion)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
			a.logger.Info("server stopped")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides config)")
}
