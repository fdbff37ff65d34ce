package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/incident-demo/internal/api"
	"github.com/signalsfoundry/incident-demo/internal/config"
	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/internal/health"
	"github.com/signalsfoundry/incident-demo/internal/jobs"
	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
	"github.com/signalsfoundry/incident-demo/internal/permissions"
)

const shutdownTimeout = 5 * time.Second

type listeners struct {
	http net.Listener
	grpc net.Listener
}

// run serves until ctx is cancelled or a server fails, then shuts
// everything down.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis listeners) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewDemoCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	jobCollector, err := observability.NewJobCollector(reg)
	if err != nil {
		return fmt.Errorf("init job metrics: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	engine := demo.NewEngine(log, demo.WithMetricsRecorder(collector))
	defer engine.Close()
	if cfg.PlaybackSpeed != 1 {
		engine.SetPlaybackSpeed(ctx, cfg.PlaybackSpeed)
	}
	if cfg.AutoEnable {
		engine.ToggleDemoMode(ctx)
	}

	perms := permissions.New(cfg.Role())

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Handler:           api.NewServer(engine, perms, log, api.WithMetrics(collector)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	healthSrv := health.NewServer(engine, log, collector)

	scheduler := jobs.NewScheduler(log, jobs.WithMetrics(jobCollector))
	if err := scheduler.AddAutoReset(cfg.AutoReset, engine); err != nil {
		return err
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP API", logging.String("addr", lis.http.Addr().String()))
		if err := httpSrv.Serve(lis.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := healthSrv.Serve(lis.grpc); err != nil {
			return fmt.Errorf("grpc health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down demo server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "scheduler stop timed out", logging.Err(err))
		}
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "http shutdown failed", logging.Err(err))
		}
		healthSrv.Stop()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error(context.Background(), "server exited", logging.Err(err))
		return err
	}
	return nil
}

func serveMetrics(addr string, collector *observability.DemoCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
