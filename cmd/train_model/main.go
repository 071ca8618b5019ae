package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fleetrisk/config"
	"fleetrisk/db"
	"fleetrisk/logging"
	"go.uber.org/zap"
)

func main() {
	dataPath := flag.String("data", "", "YAML dataset (defaults to the built-in fixture)")
	modelPath := flag.String("model_path", "model.json", "model output path")
	maxDepth := flag.Int("max_depth", 0, "max tree depth, 0 for unlimited")
	testRatio := flag.Float64("test_ratio", 0, "held-out share for evaluation, 0 evaluates on the training set")
	dbPath := flag.String("db", "", "SQLite database for the training log")
	watch := flag.Bool("watch", false, "retrain whenever the dataset file changes")
	flag.Parse()

	logCfg := config.Default().Log
	logCfg.Format = "console"
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	var store *db.Store
	if *dbPath != "" {
		store, err = db.Open(*dbPath)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		defer store.Close()
	}

	opts := trainOptions{
		DataPath:  *dataPath,
		ModelPath: *modelPath,
		MaxDepth:  *maxDepth,
		TestRatio: *testRatio,
		Store:     store,
	}

	if _, err := runTraining(opts, logger); err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}

	if !*watch {
		return
	}
	if *dataPath == "" {
		logger.Fatal("-watch requires -data")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := watchDataset(ctx, opts, logger); err != nil {
		logger.Error("watch stopped", zap.Error(err))
		os.Exit(1)
	}
}
