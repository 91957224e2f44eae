package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/rally-backend/internal/config"
	"github.com/DoyleJ11/rally-backend/internal/httpapi"
	"github.com/DoyleJ11/rally-backend/internal/hub"
	"github.com/DoyleJ11/rally-backend/internal/profile"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg *config.Config) (err error) {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	h := hub.NewHub(ctx, hub.Options{Rules: cfg.Rules(), Logger: log})
	defer h.Shutdown()

	sweeper, err := hub.StartSweeper(h, cfg.SweepInterval, cfg.RoomIdleTimeout, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sweeper.Stop()) }()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            h,
			Profiles:       store,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("profile_store", cfg.ProfileStore),
			zap.String("version", releaseVersion))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(ctx context.Context, cfg *config.Config) (profile.Store, error) {
	switch cfg.ProfileStore {
	case config.StoreMemory:
		return profile.NewMemoryStore(), nil
	case config.StoreFile:
		s, err := profile.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return s, nil
	case config.StorePostgres:
		s, err := profile.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.StoreDynamo:
		s, err := profile.OpenDynamo(ctx, cfg.DynamoTable)
		if err != nil {
			return nil, fmt.Errorf("open dynamodb store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown profile store %q", cfg.ProfileStore)
	}
}
