package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phcore/validator/internal/server"
	"github.com/phcore/validator/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var (
		port     int
		basePath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the validation server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("base-path") {
				cfg.Server.BasePath = basePath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, err := loadEngine(ctx, cfg)
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Addr:     cfg.Server.Addr(),
				BasePath: cfg.Server.BasePath,
				Version:  version,
				Metrics:  eng.metrics,
			}, eng.store, eng.index, eng.validator, logger.Default().Zerolog())

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 5072, "listen port")
	cmd.Flags().StringVar(&basePath, "base-path", "/ph-core/fhir", "base path of the FHIR routes")
	return cmd
}
