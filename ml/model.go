package ml

import "errors"

var (
	ErrNotTrained       = errors.New("model not trained")
	ErrUnsupportedModel = errors.New("unsupported model type")
)

// FeatureNames lists the inputs of the driver risk model in vector order.
var FeatureNames = []string{"safetyScore", "tripsCompleted", "fatigueLevel"}

// Classifier maps a feature vector to a class. Implementations are read-only
// after construction and safe for concurrent use.
type Classifier interface {
	Classify(features []float64) (int, error)
}

type MLModel interface {
	Classifier
	Train(features [][]float64, labels []int) error
	Predict(features []float64) (int, float64, error)
	Save(path string) error
	Load(path string) error
}
