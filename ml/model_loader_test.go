package ml

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestLoadModel(t *testing.T) {
	features, labels, _ := DefaultDataset().Matrix()
	tree := NewDecisionTree(0)
	if err := tree.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := tree.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	model, err := LoadModel(DecisionTreeType, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := model.Classify([]float64{40, 30, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected class 2, got %d", got)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(DecisionTreeType, filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadModelUnsupportedType(t *testing.T) {
	_, err := LoadModel("random_forest", "model.json")
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}
