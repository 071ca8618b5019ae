package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fleetrisk/config"
	"fleetrisk/db"
	qhttp "fleetrisk/http"
	"fleetrisk/logging"
	"fleetrisk/ml"
	"fleetrisk/monitoring"
	"fleetrisk/risk"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	host := flag.String("host", "", "bind address (overrides server.host)")
	port := flag.Int("port", 0, "bind port (overrides server.port)")
	flag.Parse()

	// 1. Load config
	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	cfg, err := config.Load(*configPath, explicit)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load model; nothing can be served without it
	model, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
	if err != nil {
		logger.Fatal("Failed to load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	predictor, err := risk.NewPredictor(model, cfg.Cache.Size)
	if err != nil {
		logger.Fatal("Failed to create predictor", zap.Error(err))
	}
	logger.Info("Model loaded",
		zap.String("type", cfg.Model.Type),
		zap.String("path", cfg.Model.Path),
		zap.Int("cache_size", cfg.Cache.Size))

	// 3. Optional audit store
	var store *db.Store
	var recorder *db.Recorder
	if cfg.Database.Path != "" {
		store, err = db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		recorder = db.NewRecorder(store, logger, 1024)
		logger.Info("Database initialized", zap.String("path", cfg.Database.Path))
	}

	metrics := monitoring.NewMetrics()
	hub := monitoring.NewHub(logger, cfg.Server.AllowedOrigins)
	go hub.Start()

	// 4. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Timeout:        cfg.Server.Timeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, qhttp.Dependencies{
		Predictor: predictor,
		Store:     store,
		Recorder:  recorder,
		Hub:       hub,
		Metrics:   metrics,
		Logger:    logger,
	})
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	if err := server.Stop(); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	hub.Stop()
	if recorder != nil {
		recorder.Close()
	}
	if err := store.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Exiting")
}
