package db

import (
	"sync"

	"go.uber.org/zap"
)

// Recorder writes prediction records on a background goroutine so request
// handlers never wait on disk.
type Recorder struct {
	store  *Store
	logger *zap.Logger
	queue  chan PredictionRecord
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func NewRecorder(store *Store, logger *zap.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan PredictionRecord, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues a record. It reports false when the queue is full or the
// recorder is closed; the record is dropped in that case.
func (r *Recorder) Record(record PredictionRecord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- record:
		return true
	default:
		r.logger.Warn("prediction audit queue full, dropping record",
			zap.String("risk_level", record.RiskLevel))
		return false
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for record := range r.queue {
		if _, err := r.store.SavePrediction(record); err != nil {
			r.logger.Error("failed to save prediction", zap.Error(err))
		}
	}
}

// Close stops accepting records and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	<-r.done
}
