package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"summary-backend/internal/bootstrap"
	"summary-backend/internal/shared/config"
	"summary-backend/internal/shared/server"
	"summary-backend/internal/shared/telemetry"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "summary-api",
		Short:        "document summarization API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if err := telemetry.Init(cfg.Env); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer telemetry.Sync()
			return run(cfg)
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "optional env file; process environment wins")

	if err := rootCmd.Execute(); err != nil {
		telemetry.L().Error("startup error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:    server.Addr(cfg.Port),
		Handler: app.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		telemetry.L().Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	telemetry.L().Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
