package model

import (
	"context"
	"encoding/gob"
	"fmt"
)

// Regressor is a supervised learner over a dense feature matrix.
type Regressor interface {
	Fit(ctx context.Context, X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// Kind names a learner family.
type Kind string

const (
	KindRidge  Kind = "ridge"
	KindSGD    Kind = "sgd"
	KindTree   Kind = "tree"
	KindForest Kind = "forest"
	KindKNN    Kind = "knn"
)

// Kinds lists every learner family in a stable order.
func Kinds() []Kind { return []Kind{KindRidge, KindSGD, KindTree, KindForest, KindKNN} }

// Spec is the untrained hyperparameter set of a learner. It is a plain
// comparable value so two specs can be checked for structural equality with ==.
// Fields not used by Kind are left zero.
type Spec struct {
	Kind Kind

	Lambda       float64 // ridge penalty, sgd weight decay
	LearningRate float64
	Epochs       int
	BatchSize    int

	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Trees           int
	MaxFeatures     int
	MinGain         float64 // minimum split gain as a fraction of the root SSE

	K int

	Seed int64
}

func (s Spec) String() string {
	switch s.Kind {
	case KindRidge:
		return fmt.Sprintf("ridge(lambda=%.4g)", s.Lambda)
	case KindSGD:
		return fmt.Sprintf("sgd(lr=%.4g, epochs=%d, batch=%d, l2=%.3g)", s.LearningRate, s.Epochs, s.BatchSize, s.Lambda)
	case KindTree:
		return fmt.Sprintf("tree(depth=%d, min_leaf=%d, min_gain=%.3g)", s.MaxDepth, s.MinSamplesLeaf, s.MinGain)
	case KindForest:
		return fmt.Sprintf("forest(trees=%d, depth=%d, min_leaf=%d, max_features=%d)", s.Trees, s.MaxDepth, s.MinSamplesLeaf, s.MaxFeatures)
	case KindKNN:
		return fmt.Sprintf("knn(k=%d)", s.K)
	}
	return string(s.Kind)
}

// New returns an untrained regressor for s.
func New(s Spec) (Regressor, error) {
	switch s.Kind {
	case KindRidge:
		return NewRidge(s.Lambda), nil
	case KindSGD:
		return NewSGDRegressor(s.LearningRate, s.Epochs, s.BatchSize, s.Lambda, s.Seed), nil
	case KindTree:
		return NewDecisionTreeRegressor(
			WithMaxDepth(s.MaxDepth),
			WithMinSamplesSplit(s.MinSamplesSplit),
			WithMinSamplesLeaf(s.MinSamplesLeaf),
			WithMaxFeatures(s.MaxFeatures),
			WithMinImpurityDecrease(s.MinGain),
			WithRandomState(s.Seed),
		), nil
	case KindForest:
		return NewRandomForest(
			WithNEstimators(s.Trees),
			WithForestDepth(s.MaxDepth),
			WithForestMinLeaf(s.MinSamplesLeaf),
			WithForestMaxFeatures(s.MaxFeatures),
			WithForestMinImpurityDecrease(s.MinGain),
			WithForestRandomState(s.Seed),
		), nil
	case KindKNN:
		return NewKNN(s.K), nil
	}
	return nil, fmt.Errorf("model: unknown learner kind %q", s.Kind)
}

func init() {
	gob.Register(&Ridge{})
	gob.Register(&SGDRegressor{})
	gob.Register(&DecisionTreeRegressor{})
	gob.Register(&RandomForest{})
	gob.Register(&KNN{})
}
