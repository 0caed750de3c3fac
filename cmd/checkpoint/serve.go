package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkpoint/internal/clock"
	"checkpoint/internal/diagnostics"
	"checkpoint/internal/handlers"
	"checkpoint/internal/middleware"
	"checkpoint/internal/proxy"
	"checkpoint/internal/ratelimit"
	"checkpoint/internal/store"
	"checkpoint/internal/utils"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host verification sessions and guard the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Server.ListenAddr = listen
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides server.listen_addr")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger

	if cfg.Token.Secret == "" {
		cfg.Token.Secret = utils.GenerateSecret()
		logger.Warn("token.secret is unset, passes will not survive a restart")
	}

	deps := handlers.Deps{
		Config: cfg,
		Clock:  clock.Real(),
		Logger: logger,
		Passes: middleware.NewPasses(cfg.Token),
	}

	rl := cfg.Server.RateLimit
	if cfg.Redis.Addr != "" {
		client, err := store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Limiter = store.NewRedisLimiter(client, rl.RequestsPerMinute, time.Minute)
		logger.Info("rate limiting via redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		mem := ratelimit.NewStore(rl.RequestsPerMinute, rl.Burst, 10*time.Minute)
		go mem.Run(ctx, time.Minute)
		deps.Limiter = mem
	}

	if cfg.Audit.DBPath != "" {
		ledger, err := store.OpenLedger(cfg.Audit.DBPath)
		if err != nil {
			return err
		}
		defer ledger.Close()
		deps.Ledger = ledger
	}

	if cfg.GeoIP.DBPath != "" {
		geo, err := diagnostics.OpenGeoCheck(cfg.GeoIP.DBPath, logger)
		if err != nil {
			logger.Warn("geoip disabled", zap.Error(err))
		} else {
			defer geo.Close()
			deps.Geo = geo
		}
	}

	if cfg.Server.Backend != "" {
		backend, err := proxy.NewProxy(cfg.Server.Backend, cfg.Token.CookieName, logger)
		if err != nil {
			return fmt.Errorf("proxy init: %w", err)
		}
		deps.Backend = backend
	}

	srv := handlers.NewServer(deps)
	sweepDone := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(sweepDone)
	}()

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting checkpoint", zap.String("addr", server.Addr), zap.String("version", Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", server.Addr, err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-sweepDone
	logger.Info("server exited gracefully")
	return nil
}
