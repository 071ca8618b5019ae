package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrClosed = errors.New("database not initialized")

// Store is the SQLite audit store for predictions and training runs.
type Store struct {
	database *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection keeps writes serialised.
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        safety_score REAL NOT NULL,
        trips_completed REAL NOT NULL,
        fatigue_level REAL NOT NULL,
        predicted_class INTEGER NOT NULL,
        risk_level VARCHAR(10) NOT NULL,
        cached INTEGER DEFAULT 0,
        latency_us INTEGER DEFAULT 0,
        request_id TEXT,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY,
        model_name VARCHAR(50),
        accuracy REAL,
        precision REAL,
        recall REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

type PredictionRecord struct {
	ID             int64     `json:"id"`
	SafetyScore    float64   `json:"safetyScore"`
	TripsCompleted float64   `json:"tripsCompleted"`
	FatigueLevel   float64   `json:"fatigueLevel"`
	Class          int       `json:"class"`
	RiskLevel      string    `json:"riskLevel"`
	Cached         bool      `json:"cached"`
	Latency        int64     `json:"latencyMicros"`
	RequestID      string    `json:"requestId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Store) SavePrediction(record PredictionRecord) (int64, error) {
	if s == nil || s.database == nil {
		return 0, ErrClosed
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	result, err := s.database.Exec(`
        INSERT INTO predictions (
            safety_score, trips_completed, fatigue_level, predicted_class,
            risk_level, cached, latency_us, request_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SafetyScore,
		record.TripsCompleted,
		record.FatigueLevel,
		record.Class,
		record.RiskLevel,
		record.Cached,
		record.Latency,
		record.RequestID,
		record.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if s == nil || s.database == nil {
		return nil, ErrClosed
	}
	rows, err := s.database.Query(`
        SELECT id, safety_score, trips_completed, fatigue_level, predicted_class,
               risk_level, cached, latency_us, COALESCE(request_id, ''), created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(&r.ID, &r.SafetyScore, &r.TripsCompleted, &r.FatigueLevel, &r.Class,
			&r.RiskLevel, &r.Cached, &r.Latency, &r.RequestID, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

func (s *Store) SaveTrainingLog(log TrainingLog) error {
	if s == nil || s.database == nil {
		return ErrClosed
	}
	if log.TrainedAt.IsZero() {
		log.TrainedAt = time.Now().UTC()
	}
	_, err := s.database.Exec(`
        INSERT INTO training_log (model_name, accuracy, precision, recall, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?)`,
		log.ModelName, log.Accuracy, log.Precision, log.Recall, log.TrainedAt, log.DataPoints)
	return err
}

func (s *Store) LoadTrainingLog() ([]TrainingLog, error) {
	if s == nil || s.database == nil {
		return nil, ErrClosed
	}
	rows, err := s.database.Query(`
        SELECT model_name, accuracy, precision, recall, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.Accuracy, &log.Precision, &log.Recall, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
