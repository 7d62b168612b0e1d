package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/sibrol/internal/adapters/http/api"
	"github.com/okian/sibrol/internal/adapters/http/swagger"
	service "github.com/okian/sibrol/internal/app"
	"github.com/okian/sibrol/internal/config"
	"github.com/okian/sibrol/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation and annotation HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, serveFlags)
			if err != nil {
				return err
			}
			log, err := setupLogger(cmd.Context(), cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address (default from config)")
	cmd.Flags().String("registry-dir", "", "directory of period registry files")
	cmd.Flags().String("mapping", "", "procedure mapping file (xlsx or csv)")
	cmd.Flags().String("correlation", "", "mandatory coverage correlation file (xlsx or csv)")
	return cmd
}

func serveFlags(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"addr":         &cfg.Addr,
		"registry-dir": &cfg.RegistryDir,
		"mapping":      &cfg.MappingPath,
		"correlation":  &cfg.CorrelationPath,
	}
}

// newHandler builds the service and its HTTP routes. Lookup tables are loaded
// when configured; /annotate answers 503 otherwise.
func newHandler(ctx context.Context, cfg *config.Config, log logger.Logger) (http.Handler, error) {
	svc := service.New(append(service.FromConfig(cfg), service.WithLogger(log))...)
	if cfg.Inputs() {
		if err := svc.Load(ctx, service.Inputs{
			RegistryDir:     cfg.RegistryDir,
			MappingPath:     cfg.MappingPath,
			CorrelationPath: cfg.CorrelationPath,
		}); err != nil {
			return nil, err
		}
	} else {
		log.Warn(ctx, "lookup tables not configured; only /evaluate is available")
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithDateLayouts(cfg.DateLayouts...)).Register(ctx, mux)
	swagger.Register(ctx, mux)
	return mux, nil
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	handler, err := newHandler(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to load lookup tables", logger.Error(err))
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server starting", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "http server error", logger.Error(err))
			return err
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "http server shutdown error", logger.Error(err))
		return err
	}
	log.Info(ctx, "http server stopped")
	_ = logger.Sync()
	return nil
}
