package ml

import (
	"fmt"
)

const DecisionTreeType = "decision_tree"

func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case DecisionTreeType:
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, fmt.Errorf("load %s from %s: %w", modelType, path, err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}
