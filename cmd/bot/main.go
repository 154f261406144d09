package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"SqueezeSentinel/internal/collector"
	"SqueezeSentinel/internal/config"
	"SqueezeSentinel/internal/cooldown"
	"SqueezeSentinel/internal/logger"
	"SqueezeSentinel/internal/metrics"
	"SqueezeSentinel/internal/notifier"
	"SqueezeSentinel/internal/pipeline"
	"SqueezeSentinel/internal/scheduler"
	"SqueezeSentinel/internal/server"
	"SqueezeSentinel/internal/strategy"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	mode := os.Getenv("RUN_MODE")
	if mode == "" {
		mode = "serve"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		return 1
	}

	// In once mode stdout carries the JSON report.
	if mode == "once" && cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	log.Info().Str("mode", mode).Msg("SqueezeSentinel starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	ds := cfg.DataSource
	primary := collector.NewTwelveDataFetcher(ds.TwelveData.BaseURL, ds.TwelveData.APIKey, ds.Timeout, cfg.Proxy)
	fallback := collector.NewYahooFetcher(ds.Yahoo.BaseURL, ds.Yahoo.Symbol, ds.Yahoo.Interval, ds.Yahoo.Range, ds.Timeout, cfg.Proxy)
	col := collector.NewCollector(primary, fallback, ds.Symbol, ds.Interval, ds.OutputSize, ds.Timeout, log)
	col.OnProviderError = func(provider string, err error) {
		rec.RecordProviderFailure(provider)
	}

	store, err := cooldown.Open(ctx, cfg.Cooldown)
	if err != nil {
		log.Warn().Err(err).Str("store", cfg.Cooldown.Store).Msg("cooldown store unavailable, falling back to memory")
		store = cooldown.NewMemoryStore()
	}
	defer store.Close()
	gate := cooldown.NewGate(store, cfg.Cooldown.Key, cfg.Cooldown.Duration(), log)

	tn := notifier.NewTelegramNotifier(cfg.Telegram, cfg.Proxy, log)
	if !tn.Configured() {
		log.Warn().Msg("telegram credentials missing, alerts will not be delivered")
	}

	orch := pipeline.New(col, gate, notifier.NewAlerts(tn, cfg.Trade), pipeline.Options{
		Period:        cfg.Strategy.Period,
		StdMultiplier: cfg.Strategy.StdMultiplier,
		Rules:         strategy.NewRules(cfg.Strategy.SqueezeThreshold, cfg.Strategy.ExcludedHours),
		StatusUpdates: cfg.Notify.StatusUpdates,
		ErrorAlerts:   cfg.Notify.ErrorAlerts,
	}, log).WithMetrics(rec)

	switch mode {
	case "once":
		return runOnce(ctx, orch, log)
	case "serve":
		return serve(ctx, cfg, orch, tn, reg, log)
	default:
		log.Error().Str("mode", mode).Msg("unknown RUN_MODE, expected once or serve")
		return 2
	}
}

func runOnce(ctx context.Context, orch *pipeline.Orchestrator, log zerolog.Logger) int {
	report := orch.Run(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error().Err(err).Msg("encode report")
		return 1
	}
	if report.Failed() {
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, tn *notifier.TelegramNotifier, reg *prometheus.Registry, log zerolog.Logger) int {
	sched := scheduler.NewScheduler(ctx, orch, log)
	if cfg.Schedule.Cron != "" {
		if err := sched.Register(cfg.Schedule.Cron); err != nil {
			log.Error().Err(err).Msg("register cron task")
			return 1
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.NewServer(orch, log,
		server.WithAddr(cfg.Server.Addr),
		server.WithCronSecret(cfg.Server.CronSecret),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithGatherer(reg),
	)
	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("start http server")
		return 1
	}

	if cfg.Telegram.Polling && tn.Configured() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	log.Info().Msg("SqueezeSentinel is running, press Ctrl+C to stop")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping")
	if err := srv.Stop(context.Background()); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("SqueezeSentinel stopped")
	return 0
}
