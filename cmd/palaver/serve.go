package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/palaver"
	"github.com/aretw0/palaver/internal/cli"
	httpAdapter "github.com/aretw0/palaver/pkg/adapters/http"
	"github.com/aretw0/palaver/pkg/adapters/ws"
	"github.com/aretw0/palaver/pkg/observability"
	"github.com/aretw0/palaver/pkg/tick"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conversations over HTTP and websockets",
	Long: `Starts the engine with a tick loop for commands, a JSON API, a websocket
per player on /ws/{player} and, when enabled, Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("watch") {
			cfg.Watch, _ = cmd.Flags().GetBool("watch")
		}

		hub := ws.NewHub(ws.WithLogger(logger))
		loop := tick.NewLoop(tick.WithInterval(cfg.TickInterval), tick.WithLogger(logger))
		opts := []palaver.Option{
			palaver.WithPresenter(hub),
			palaver.WithScheduler(loop),
		}
		var metrics *observability.Metrics
		if cfg.Server.Metrics {
			metrics = observability.NewMetrics()
			opts = append(opts, palaver.WithMetrics(metrics))
		}

		eng, stores, err := cli.NewEngine(cfg, logger, opts...)
		if err != nil {
			return err
		}
		defer stores.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			_ = loop.Run(ctx)
		}()
		if cfg.Watch {
			changes, err := eng.Watch(ctx)
			if err != nil {
				return err
			}
			go func() {
				for name := range changes {
					logger.Info("document reloaded", "document", name)
				}
			}()
		}

		handlerOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithWebSocket(hub.Handler(eng)),
		}
		if metrics != nil {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(metrics.Handler()))
		}
		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: httpAdapter.NewHandler(eng, handlerOpts...),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("palaver server starting", "addr", srv.Addr, "documents", cfg.Documents, "store", cfg.Store.Kind)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("palaver server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload documents when they change")
}
