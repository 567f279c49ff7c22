package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cedric-sd/Camus/internal/config"
	"github.com/cedric-sd/Camus/internal/logging"
	"github.com/cedric-sd/Camus/internal/server"
	"github.com/cedric-sd/Camus/internal/signaling"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the presence relay server",
	Long: `Start the websocket presence relay. Configuration is read from the
environment (CAMUS_ADDR, CAMUS_LOG_LEVEL, ...) with an optional .env file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var flagAddr string

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides CAMUS_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	log := logging.New(cfg.LogLevel)

	registry := signaling.NewRegistry()
	hub := signaling.NewHub(registry, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The hub's main event loop runs until shutdown.
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(hub, cfg, log).Routes(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting presence relay", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
