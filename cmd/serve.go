package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	_ "github.com/kdduha/detection-api/docs"
	"github.com/kdduha/detection-api/internal/handler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, cfg, logger, cfg.Detector.DefaultModel)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close resources", slog.Any("error", err))
		}
	}()

	h := handler.NewDetectHandler(a.service, a.registry, a.store, cfg.Server.MaxUploadBytes())
	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: handler.NewRouter(h, handler.RouterConfig{
			ThrottleLimit: cfg.Server.ThrottleLimit,
			Timeout:       cfg.Server.Timeout,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			slog.String("port", cfg.Server.Port),
			slog.String("backend", cfg.Detector.Backend),
			slog.String("model", string(a.registry.Current().Name())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
