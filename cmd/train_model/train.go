package main

import (
	"fmt"
	"os"
	"path/filepath"

	"fleetrisk/db"
	"fleetrisk/ml"
	"go.uber.org/zap"
)

type trainOptions struct {
	DataPath  string
	ModelPath string
	MaxDepth  int
	TestRatio float64
	Store     *db.Store
}

func runTraining(opts trainOptions, logger *zap.Logger) (ml.Metrics, error) {
	dataset := ml.DefaultDataset()
	if opts.DataPath != "" {
		loaded, err := ml.LoadDataset(opts.DataPath)
		if err != nil {
			return ml.Metrics{}, err
		}
		dataset = loaded
	}

	features, labels, err := dataset.Matrix()
	if err != nil {
		return ml.Metrics{}, fmt.Errorf("build training data: %w", err)
	}

	trainX, trainY, testX, testY := splitDataset(features, labels, opts.TestRatio)

	model := ml.NewDecisionTree(opts.MaxDepth)
	if err := model.Train(trainX, trainY); err != nil {
		return ml.Metrics{}, fmt.Errorf("train model: %w", err)
	}

	metrics := ml.Evaluate(model, testX, testY)
	logger.Info("model trained",
		zap.Int("samples", len(trainX)),
		zap.Int("evaluated", metrics.Samples),
		zap.Int("depth", model.Depth()),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall))

	if dir := filepath.Dir(opts.ModelPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ml.Metrics{}, fmt.Errorf("create model dir: %w", err)
		}
	}
	if err := model.Save(opts.ModelPath); err != nil {
		return ml.Metrics{}, fmt.Errorf("save model: %w", err)
	}
	logger.Info("model saved", zap.String("path", opts.ModelPath))

	if opts.Store != nil {
		err := opts.Store.SaveTrainingLog(db.TrainingLog{
			ModelName:  ml.DecisionTreeType,
			Accuracy:   metrics.Accuracy,
			Precision:  metrics.Precision,
			Recall:     metrics.Recall,
			DataPoints: len(features),
		})
		if err != nil {
			return metrics, fmt.Errorf("record training run: %w", err)
		}
	}
	return metrics, nil
}

// splitDataset keeps the first rows for training. With no held-out share the
// model is evaluated on its own training rows.
func splitDataset(features [][]float64, labels []int, testRatio float64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		return features, labels, features, labels
	}

	split := int(float64(len(features)) * (1 - testRatio))
	if split < 1 {
		split = 1
	}
	for i := range features {
		if i < split {
			trainX = append(trainX, features[i])
			trainY = append(trainY, labels[i])
		} else {
			testX = append(testX, features[i])
			testY = append(testY, labels[i])
		}
	}
	return trainX, trainY, testX, testY
}
