package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndQueryPredictions(t *testing.T) {
	store := openTestStore(t)

	levels := []string{"LOW", "MEDIUM", "HIGH"}
	for i, level := range levels {
		_, err := store.SavePrediction(PredictionRecord{
			SafetyScore:    float64(90 - i*20),
			TripsCompleted: 100,
			FatigueLevel:   float64(i + 1),
			Class:          i,
			RiskLevel:      level,
			Cached:         i == 1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	records, err := store.RecentPredictions(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RiskLevel != "HIGH" || records[1].RiskLevel != "MEDIUM" {
		t.Fatalf("expected newest first, got %s, %s", records[0].RiskLevel, records[1].RiskLevel)
	}
	if !records[1].Cached {
		t.Fatal("expected cached flag to round trip")
	}
	if records[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestTrainingLog(t *testing.T) {
	store := openTestStore(t)
	err := store.SaveTrainingLog(TrainingLog{
		ModelName:  "decision_tree",
		Accuracy:   1,
		Precision:  1,
		Recall:     1,
		TrainedAt:  time.Now().UTC(),
		DataPoints: 6,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logs, err := store.LoadTrainingLog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 || logs[0].DataPoints != 6 {
		t.Fatalf("unexpected training log %+v", logs)
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if _, err := store.RecentPredictions(1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRecorderDrainsOnClose(t *testing.T) {
	store := openTestStore(t)
	recorder := NewRecorder(store, zap.NewNop(), 16)
	for i := 0; i < 5; i++ {
		if !recorder.Record(PredictionRecord{Class: 0, RiskLevel: "LOW"}) {
			t.Fatalf("record %d was dropped", i)
		}
	}
	recorder.Close()

	records, err := store.RecentPredictions(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if recorder.Record(PredictionRecord{RiskLevel: "LOW"}) {
		t.Fatal("expected closed recorder to refuse records")
	}
}
