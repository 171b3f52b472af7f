package model

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sync"
)

// RandomForest is a bagged ensemble of regression trees. Predictions are
// the mean over trees.
type RandomForest struct {
	// Hyperparameters / options
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int
	MinGain        float64 // MinImpurityDecrease of every tree
	Bootstrap      bool
	RandomState    int64

	Trees []*DecisionTreeRegressor
}

// RandomForestOption configures a RandomForest.
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestDepth(d int) RandomForestOption { return func(rf *RandomForest) { rf.MaxDepth = d } }
func WithForestMinLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) {
		if n > 0 {
			rf.MinSamplesLeaf = n
		}
	}
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestMinImpurityDecrease(v float64) RandomForestOption {
	return func(rf *RandomForest) { rf.MinGain = v }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:    100,
		MaxDepth:       0,
		MinSamplesLeaf: 1,
		MaxFeatures:    0,
		Bootstrap:      true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains every tree concurrently, at most one per CPU at a time. Tree i
// draws its bootstrap sample and feature subsets from RandomState+i.
func (rf *RandomForest) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if err := checkXY("randomforest", X, y); err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: NEstimators must be positive")
	}
	n := len(X)

	rf.Trees = make([]*DecisionTreeRegressor, rf.NEstimators)
	var wg sync.WaitGroup
	errCh := make(chan error, rf.NEstimators)
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			seed := rf.RandomState + int64(idx)
			treeRand := rand.New(rand.NewSource(seed))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sampleIndices := make([]int, n)
			for j := 0; j < n; j++ {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeRegressor(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(rf.MaxFeatures),
				WithMinImpurityDecrease(rf.MinGain),
				WithRandomState(seed),
			)
			if err := tree.FitIndices(ctx, X, y, sampleIndices); err != nil {
				errCh <- err
				return
			}
			rf.Trees[idx] = tree
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// Predict averages the trees in index order.
func (rf *RandomForest) Predict(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	out := make([]float64, len(X))
	for _, tree := range rf.Trees {
		for i, v := range tree.Predict(X) {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(rf.Trees))
	}
	return out
}
