package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"resilio-dashboard/internal/cache"
	"resilio-dashboard/internal/config"
	"resilio-dashboard/internal/demo"
	httpapi "resilio-dashboard/internal/http"
	"resilio-dashboard/internal/logging"
	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/proxy"
	"resilio-dashboard/internal/resilio"
	"resilio-dashboard/internal/store"
	"resilio-dashboard/internal/telemetry"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	if err := run(); err != nil {
		logging.Errorf("dashboard failed: %v", err)
		_ = logging.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer func() { _ = logging.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, tracing, err := telemetry.InitializeFromEnv(ctx, version)
	if err != nil {
		logging.Warnf("tracing disabled: %v", err)
	} else if tracing {
		logging.Infof("tracing enabled")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	fixtures, err := demo.Load()
	if err != nil {
		return err
	}

	jobs, closeStore, err := openStore(ctx, cfg, fixtures)
	if err != nil {
		return err
	}
	defer closeStore()

	mode, err := proxy.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	var upstream proxy.Upstream
	switch {
	case cfg.MockForced:
		logging.Infof("RESILIO_BASE_URL is not set; running in mock mode")
	case mode == proxy.ModeMock:
		logging.Infof("mock mode enabled; upstream %s will not be contacted", cfg.BaseURL)
	default:
		if cfg.InsecureSkipVerify {
			logging.Warnf("TLS certificate verification is disabled for %s", cfg.BaseURL)
		}
		upstream = resilio.NewClient(cfg.BaseURL, cfg.APIToken, cfg.Timeout, cfg.InsecureSkipVerify)
		logging.Infof("proxying %s in %s mode", cfg.BaseURL, mode)
	}

	svc, err := proxy.New(mode, upstream, jobs, fixtures)
	if err != nil {
		return err
	}

	reads, err := cache.New(svc.CacheSpecs(cfg.AgentsInterval, cfg.JobsInterval, cfg.InfoInterval)...)
	if err != nil {
		return err
	}
	reads.Start(ctx)

	server := &http.Server{
		Addr: cfg.HTTPListenAddr,
		Handler: httpapi.New(svc, reads, httpapi.Options{
			Title:      cfg.PageTitle,
			MockForced: cfg.MockForced,
			Intervals: model.PollIntervals{
				Agents: int(cfg.AgentsInterval / time.Second),
				Jobs:   int(cfg.JobsInterval / time.Second),
				Info:   int(cfg.InfoInterval / time.Second),
			},
		}),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		defer close(shutdownDone)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Errorf("shutdown error: %v", err)
		}
	}()

	logging.Infof("%s listening on %s", cfg.PageTitle, cfg.HTTPListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-shutdownDone
	return nil
}

func openStore(ctx context.Context, cfg config.Config, fixtures *demo.Dataset) (store.JobStore, func(), error) {
	seed := fixtures.Jobs(time.Now())
	if cfg.MockDBPath == "" {
		return store.NewMemoryStore(seed), func() {}, nil
	}

	s, err := store.OpenSQLite(ctx, cfg.MockDBPath, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("open mock job store: %w", err)
	}
	logging.Infof("mock jobs persisted in %s", cfg.MockDBPath)
	return s, func() {
		if err := s.Close(); err != nil {
			logging.Warnf("close mock job store: %v", err)
		}
	}, nil
}
