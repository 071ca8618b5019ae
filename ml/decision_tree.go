package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

var _ MLModel = (*DecisionTree)(nil)

type DecisionTree struct {
	maxDepth     int
	featureCount int
	nodes        []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Confidence float64 `json:"confidence"`
	IsLeaf     bool    `json:"is_leaf"`
}

// treeArtifact is the on-disk form of a trained tree.
type treeArtifact struct {
	ModelType    string     `json:"model_type"`
	FeatureNames []string   `json:"feature_names,omitempty"`
	FeatureCount int        `json:"feature_count"`
	MaxDepth     int        `json:"max_depth"`
	Nodes        []TreeNode `json:"nodes"`
}

// NewDecisionTree returns an untrained tree. A maxDepth of zero or less grows
// the tree until every leaf is pure.
func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{maxDepth: maxDepth}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	featureCount := len(features[0])
	if featureCount == 0 {
		return errors.New("feature vectors are empty")
	}
	for i, feature := range features {
		if len(feature) != featureCount {
			return fmt.Errorf("sample %d has %d features, expected %d", i, len(feature), featureCount)
		}
	}

	dt.featureCount = featureCount
	dt.nodes = nil
	dt.buildNode(features, labels, 0)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, ErrNotTrained
	}
	if dt.featureCount > 0 && len(features) != dt.featureCount {
		return 0, 0, fmt.Errorf("expected %d features, got %d", dt.featureCount, len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Confidence, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(dt.nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) Classify(features []float64) (int, error) {
	label, _, err := dt.Predict(features)
	return label, err
}

// Depth reports the number of edges on the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	return dt.depthAt(0)
}

func (dt *DecisionTree) depthAt(idx int) int {
	node := dt.nodes[idx]
	if node.IsLeaf {
		return 0
	}
	left := dt.depthAt(node.LeftChild)
	right := dt.depthAt(node.RightChild)
	if left > right {
		return left + 1
	}
	return right + 1
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return ErrNotTrained
	}
	artifact := treeArtifact{
		ModelType:    DecisionTreeType,
		FeatureCount: dt.featureCount,
		MaxDepth:     dt.maxDepth,
		Nodes:        dt.nodes,
	}
	if dt.featureCount == len(FeatureNames) {
		artifact.FeatureNames = FeatureNames
	}
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	if artifact.ModelType != "" && artifact.ModelType != DecisionTreeType {
		return fmt.Errorf("%w: artifact holds %q", ErrUnsupportedModel, artifact.ModelType)
	}
	if err := validateNodes(artifact.Nodes, artifact.FeatureCount); err != nil {
		return err
	}
	dt.nodes = artifact.Nodes
	dt.featureCount = artifact.FeatureCount
	dt.maxDepth = artifact.MaxDepth
	return nil
}

// validateNodes rejects trees Predict could not walk. Children always follow
// their parent in the slice, which also rules out cycles.
func validateNodes(nodes []TreeNode, featureCount int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("artifact has no nodes: %w", ErrNotTrained)
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || (featureCount > 0 && node.FeatureIdx >= featureCount) {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) {
			return fmt.Errorf("node %d: left child %d out of range", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: right child %d out of range", i, node.RightChild)
		}
		if math.IsNaN(node.Threshold) {
			return fmt.Errorf("node %d: threshold is NaN", i)
		}
	}
	return nil
}

// buildNode appends the subtree for the given samples and returns the index
// of its root.
func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth int) int {
	label, confidence := majorityLabel(labels)
	leaf := TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: label,
		Confidence: confidence,
		IsLeaf:     true,
	}

	idx := len(dt.nodes)
	if (dt.maxDepth > 0 && depth >= dt.maxDepth) || isPure(labels) {
		dt.nodes = append(dt.nodes, leaf)
		return idx
	}

	bestFeature, threshold, ok := findBestSplit(features, labels)
	if !ok {
		dt.nodes = append(dt.nodes, leaf)
		return idx
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		dt.nodes = append(dt.nodes, leaf)
		return idx
	}

	dt.nodes = append(dt.nodes, TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		ClassLabel: label,
		Confidence: confidence,
		IsLeaf:     false,
	})
	left := dt.buildNode(leftFeatures, leftLabels, depth+1)
	right := dt.buildNode(rightFeatures, rightLabels, depth+1)
	dt.nodes[idx].LeftChild = left
	dt.nodes[idx].RightChild = right
	return idx
}

// findBestSplit tries the midpoint between every pair of adjacent distinct
// values of every feature and keeps the first split with the lowest weighted
// Gini impurity.
func findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		for _, threshold := range candidateThresholds(values) {
			leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
			if len(leftLabels) == 0 || len(rightLabels) == 0 {
				continue
			}
			impurity := weightedGini(leftLabels, rightLabels)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func candidateThresholds(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	thresholds := make([]float64, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			continue
		}
		thresholds = append(thresholds, (sorted[i-1]+sorted[i])/2)
	}
	return thresholds
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

// majorityLabel returns the most frequent label and its share. Ties go to the
// label that reached the count first.
func majorityLabel(labels []int) (int, float64) {
	if len(labels) == 0 {
		return 0, 0
	}
	counts := make(map[int]int)
	bestLabel := 0
	bestCount := -1
	for _, label := range labels {
		counts[label]++
		if counts[label] > bestCount {
			bestCount = counts[label]
			bestLabel = label
		}
	}
	return bestLabel, float64(bestCount) / float64(len(labels))
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
