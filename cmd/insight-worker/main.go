// Package main 洞见引擎后台工作进程：消费对象变更流、
// 周期性 Bundle 扫描与反馈调参
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/messaging"
	"github.com/dmedlin87/Theoria-sub008/internal/wire"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
	"github.com/dmedlin87/Theoria-sub008/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.FromContext(ctx)
	log.Info("starting insight-worker",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name + "-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	dataLayer, err := wire.NewDataLayer(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer dataLayer.Close(context.Background())

	appLayer := wire.NewAppLayer(cfg, dataLayer)

	// 对象变更消费者
	hostname, _ := os.Hostname()
	consumer := messaging.NewConsumer(dataLayer.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamObjectUpsert,
		Group:         messaging.ConsumerGroupInsightWorker,
		ConsumerName:  fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	handleChange := func(ctx context.Context, msg *messaging.Message) error {
		return appLayer.UpsertService.ProcessObject(ctx, msg.ObjectID)
	}
	consumer.RegisterHandler(messaging.TypeObjectChanged, handleChange)
	consumer.RegisterHandler(messaging.TypeObjectTombstoned, handleChange)

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorLag(ctx, 30*time.Second)

	// Bundle 周期扫描
	go func() {
		interval := cfg.Engine.BundleInterval
		if interval <= 0 {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := appLayer.Bundler.Scan(ctx); err != nil {
					log.Error("bundle scan failed", "error", err)
				} else if n > 0 {
					log.Info("bundle scan completed", "emitted", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// 反馈调参
	go func() {
		interval := cfg.Engine.TunerInterval
		if interval <= 0 {
			interval = 6 * time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := appLayer.Tuner.Run(ctx, entity.DefaultMode); err != nil {
					log.Error("tuner run failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// 指标端点
	if cfg.Observability.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Observability.Metrics.Port)
			log.Info("metrics server starting", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	consumer.Stop()
	cancel()
	log.Info("worker exited")
}
