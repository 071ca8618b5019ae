package risk

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Classifier is the model contract the predictor needs.
type Classifier interface {
	Classify(features []float64) (int, error)
}

// Prediction is the outcome of one classification.
type Prediction struct {
	Features Features
	Class    int
	Level    Level
	Cached   bool
}

// Predictor turns features into risk labels. The classifier is shared
// read-only; results are memoised because the model is deterministic.
type Predictor struct {
	model Classifier
	cache *lru.Cache[Features, Prediction]
}

// NewPredictor wraps model. A cacheSize of zero or less disables the cache.
func NewPredictor(model Classifier, cacheSize int) (*Predictor, error) {
	if model == nil {
		return nil, errors.New("risk: classifier is required")
	}
	p := &Predictor{model: model}
	if cacheSize > 0 {
		cache, err := lru.New[Features, Prediction](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("risk: create cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Predictor) Predict(ctx context.Context, features Features) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if p.cache != nil {
		if cached, ok := p.cache.Get(features); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	class, err := p.model.Classify(features.Slice())
	if err != nil {
		return Prediction{}, fmt.Errorf("risk: classify: %w", err)
	}
	level, err := LevelFromClass(class)
	if err != nil {
		return Prediction{}, fmt.Errorf("risk: %w", err)
	}

	prediction := Prediction{Features: features, Class: class, Level: level}
	if p.cache != nil {
		p.cache.Add(features, prediction)
	}
	return prediction, nil
}

// CacheLen reports how many feature vectors are memoised.
func (p *Predictor) CacheLen() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.Len()
}
