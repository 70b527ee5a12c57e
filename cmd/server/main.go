package main

import (
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appdownload "mediagrab/internal/application/download"
	"mediagrab/internal/application/status"
	"mediagrab/internal/config"
	"mediagrab/internal/infrastructure/extractor"
	"mediagrab/internal/infrastructure/memstore"
	"mediagrab/internal/infrastructure/redisstore"
	"mediagrab/internal/infrastructure/sysinfo"
	httptransport "mediagrab/internal/transport/http"
)

const version = "1.0.0"

// jobStore is the union of what the dispatcher and the status aggregator
// need from a registry backend.
type jobStore interface {
	appdownload.JobStore
	status.JobCounter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	var store jobStore
	switch cfg.StoreBackend {
	case "redis":
		rs, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.MaxRetainedJobs)
		if err != nil {
			logger.Fatal("redis store init failed", zap.Error(err))
		}
		defer func() { _ = rs.Close() }()
		store = rs
	default:
		store = memstore.New(cfg.MaxRetainedJobs)
	}

	gateway := extractor.NewClient(cfg.ExtractorURL, logger.Named("extractor"))
	downloadService := appdownload.NewService(store, gateway, logger.Named("dispatcher"), cfg.WorkerPoolSize)
	statusService := status.NewService(gateway, store, sysinfo.New(cfg.DataDir), logger.Named("status"),
		time.Duration(cfg.ProbeTimeoutSeconds)*time.Second)

	metrics := httptransport.NewMetrics(store)
	handler := httptransport.NewHandler(downloadService, statusService, version)
	router := httptransport.NewRouter(handler, metrics)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	})

	logger.Info("server started",
		zap.String("addr", cfg.ServerAddr),
		zap.String("store", cfg.StoreBackend),
		zap.Int("workers", cfg.WorkerPoolSize))
	if err := http.ListenAndServe(cfg.ServerAddr, c.Handler(router)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = lvl
	return cfg.Build()
}
