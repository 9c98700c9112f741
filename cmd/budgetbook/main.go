package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"budgetbook/internal/amqp"
	"budgetbook/internal/api"
	"budgetbook/internal/cache"
	"budgetbook/internal/cli"
	"budgetbook/internal/gateway"
	apphttp "budgetbook/internal/http"
	"budgetbook/internal/log"
	"budgetbook/internal/obs"
	"budgetbook/internal/services"
	"budgetbook/internal/session"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	logger.Info("Starting budgetbook", "version", obs.Version)

	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	sess := session.NewManager(store, logger)
	if err := sess.Load(context.Background()); err != nil {
		cli.Fatal(logger, "Failed to restore session", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs.RegisterBuildInfo(reg)

	gw, err := gateway.New(gateway.Config{
		BaseURL:         cfg.APIBaseURL,
		RefreshPath:     cfg.RefreshPath,
		RecoverStatuses: cfg.RecoverStatuses,
		RefreshCookie:   cfg.RefreshCookie,
		Timeout:         cfg.APITimeout,
	}, sess, logger, gateway.NewMetrics(reg))
	if err != nil {
		cli.Fatal(logger, "Failed to create API gateway", err, "base_url", cfg.APIBaseURL)
	}
	if refresh := sess.RefreshToken(); refresh != "" {
		gw.SeedRefreshCookie(refresh)
	}

	responses := cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(responses)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	client := api.New(gw, responses, logger)
	checks := map[string]func(context.Context) error{"store": store.Ping}

	var publisher services.Publisher
	if cfg.ExportEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		checks["amqp"] = func(context.Context) error {
			if !amqpClient.Healthy() {
				return errors.New("broker unavailable")
			}
			return nil
		}
		logger.Info("Table export enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Table export disabled - no AMQP_URL provided")
	}

	srv, err := apphttp.NewServer(cfg, apphttp.Deps{
		Client:   client,
		Auth:     api.NewAuth(client, sess, gw),
		Session:  sess,
		Exports:  services.NewExportService(publisher, store, logger),
		Registry: reg,
		Checks:   checks,
		Logger:   logger,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to build HTTP server", err)
	}

	logger.Info("Listening", "port", cfg.Port, "backend", cfg.APIBaseURL, "session_store", cfg.SessionBackend)
	serve := func(context.Context) error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
	if err := cli.Run(logger, 30*time.Second, serve, srv.Shutdown); err != nil {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}
	logger.Info("Server stopped gracefully")
}
