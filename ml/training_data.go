package ml

import (
	"errors"
	"fmt"
	"os"

	"fleetrisk/risk"
	"gopkg.in/yaml.v2"
)

// Sample is one labelled training row.
type Sample struct {
	Features []float64 `yaml:"features"`
	Label    string    `yaml:"label"`
}

// Dataset is the YAML training file layout.
type Dataset struct {
	Samples []Sample `yaml:"samples"`
}

// DefaultDataset is the fixture the shipped model is fitted on.
func DefaultDataset() Dataset {
	return Dataset{Samples: []Sample{
		{Features: []float64{95, 200, 1}, Label: "LOW"},
		{Features: []float64{85, 150, 2}, Label: "LOW"},
		{Features: []float64{70, 120, 3}, Label: "MEDIUM"},
		{Features: []float64{60, 80, 4}, Label: "MEDIUM"},
		{Features: []float64{50, 50, 5}, Label: "HIGH"},
		{Features: []float64{40, 30, 6}, Label: "HIGH"},
	}}
}

func LoadDataset(path string) (Dataset, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, err
	}
	var dataset Dataset
	if err := yaml.Unmarshal(payload, &dataset); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(dataset.Samples) == 0 {
		return Dataset{}, fmt.Errorf("dataset %s has no samples", path)
	}
	return dataset, nil
}

// Matrix converts samples into feature vectors and class labels.
func (d Dataset) Matrix() ([][]float64, []int, error) {
	if len(d.Samples) == 0 {
		return nil, nil, errors.New("dataset is empty")
	}
	features := make([][]float64, 0, len(d.Samples))
	labels := make([]int, 0, len(d.Samples))
	for i, sample := range d.Samples {
		if len(sample.Features) != len(FeatureNames) {
			return nil, nil, fmt.Errorf("sample %d: expected %d features, got %d", i, len(FeatureNames), len(sample.Features))
		}
		level, err := risk.ParseLevel(sample.Label)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", i, err)
		}
		features = append(features, append([]float64(nil), sample.Features...))
		labels = append(labels, level.Class())
	}
	return features, labels, nil
}

// Metrics summarises a model on labelled data. Precision and recall are for
// the HIGH class.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	Samples   int
}

func Evaluate(model Classifier, features [][]float64, labels []int) Metrics {
	metrics := Metrics{Samples: len(features)}
	if len(features) == 0 {
		return metrics
	}

	positive := risk.LevelHigh.Class()
	var correct, truePositive, predictedPositive, actualPositive int
	for i, feature := range features {
		label, err := model.Classify(feature)
		if err != nil {
			continue
		}
		if label == labels[i] {
			correct++
		}
		if label == positive {
			predictedPositive++
		}
		if labels[i] == positive {
			actualPositive++
			if label == positive {
				truePositive++
			}
		}
	}

	metrics.Accuracy = float64(correct) / float64(len(features))
	if predictedPositive > 0 {
		metrics.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		metrics.Recall = float64(truePositive) / float64(actualPositive)
	}
	return metrics
}
