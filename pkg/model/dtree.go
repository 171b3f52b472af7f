package model

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeRegressor is a CART regression tree split on squared error.
type DecisionTreeRegressor struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	MaxFeatures         int     // 0 => use all features, >0 => number of features sampled per split
	MinImpurityDecrease float64 // minimal SSE decrease to accept a split, as a fraction of the root SSE
	RandomState         int64   // seed for feature subsampling

	Root *TreeNode
}

// TreeNode is one node of a fitted tree. Leaves carry the mean target of
// their training rows.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold => Left
	Left      *TreeNode
	Right     *TreeNode
	N         int
	Value     float64
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) {
		if n > 0 {
			t.MinSamplesSplit = n
		}
	}
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) {
		if n > 0 {
			t.MinSamplesLeaf = n
		}
	}
}
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeRegressor) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor returns a tree with sensible defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	d := &DecisionTreeRegressor{
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API
// ---------------------------

// Fit grows the tree on every row of X.
func (t *DecisionTreeRegressor) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if err := checkXY("dtree", X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(ctx, X, y, idx)
}

// FitIndices grows the tree on the rows named by idx. Repeated indexes count
// as repeated samples, which is how bootstrap samples are passed in.
func (t *DecisionTreeRegressor) FitIndices(ctx context.Context, X [][]float64, y []float64, idx []int) error {
	b := &treeBuilder{
		t:   t,
		X:   X,
		y:   y,
		p:   len(X[0]),
		ctx: ctx,
		rnd: rand.New(rand.NewSource(t.RandomState)),
	}
	if t.MinImpurityDecrease > 0 {
		sum, sumSq := 0.0, 0.0
		for _, i := range idx {
			sum += y[i]
			sumSq += y[i] * y[i]
		}
		b.minGain = t.MinImpurityDecrease * (sumSq - sum*sum/float64(len(idx)))
	}
	t.Root = b.buildNode(idx, 0)
	return ctx.Err()
}

// Predict returns the leaf value reached by every row of X.
func (t *DecisionTreeRegressor) Predict(X [][]float64) []float64 {
	return predictRows(len(X), func(i int) float64 { return t.predictSingle(X[i]) })
}

func (t *DecisionTreeRegressor) predictSingle(x []float64) float64 {
	node := t.Root
	if node == nil {
		return 0
	}
	for !node.Leaf {
		val := x[node.Feature]
		switch {
		case math.IsNaN(val):
			// missing: follow the child that saw more samples
			if node.Left.N >= node.Right.N {
				node = node.Left
			} else {
				node = node.Right
			}
		case val <= node.Threshold:
			node = node.Left
		default:
			node = node.Right
		}
	}
	return node.Value
}

// Depth returns the depth of the deepest leaf.
func (t *DecisionTreeRegressor) Depth() int { return depth(t.Root) }

func depth(n *TreeNode) int {
	if n == nil || n.Leaf {
		return 0
	}
	return 1 + max(depth(n.Left), depth(n.Right))
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

type treeBuilder struct {
	t   *DecisionTreeRegressor
	X   [][]float64
	y   []float64
	p   int
	ctx context.Context
	rnd *rand.Rand

	minGain float64
}

// splitResult holds the best split found for a single feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	leftIdx   []int
	rightIdx  []int
}

// pair is a feature value and its row index.
type pair struct {
	v float64
	i int
}

func (b *treeBuilder) buildNode(idx []int, depth int) *TreeNode {
	t := b.t
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	node := &TreeNode{Leaf: true, N: len(idx), Value: sum / n}
	parentSSE := sumSq - sum*sum/n

	// make leaf if pure, too few samples, depth reached or cancelled
	if parentSSE <= 1e-12 || len(idx) < t.MinSamplesSplit || len(idx) < 2*t.MinSamplesLeaf {
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return node
	}
	if b.ctx.Err() != nil {
		return node
	}

	// determine features to try
	featIndices := make([]int, b.p)
	for j := range featIndices {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < b.p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(b.p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	// Parallel search for the best split of each feature; results are
	// indexed by position so the reduction below is order independent.
	results := make([]splitResult, len(featIndices))
	var wg sync.WaitGroup
	for k, f := range featIndices {
		wg.Add(1)
		go func(k, f int) {
			defer wg.Done()
			results[k] = b.bestSplitForFeature(idx, f, parentSSE)
		}(k, f)
	}
	wg.Wait()

	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain <= b.minGain {
		return node
	}

	node.Leaf = false
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = b.buildNode(best.leftIdx, depth+1)
	node.Right = b.buildNode(best.rightIdx, depth+1)
	return node
}

// bestSplitForFeature scans thresholds between distinct sorted values using
// running sums, so each feature costs one sort plus a linear pass.
func (b *treeBuilder) bestSplitForFeature(idx []int, f int, parentSSE float64) splitResult {
	result := splitResult{feature: -1}
	minLeaf := b.t.MinSamplesLeaf

	valid := make([]pair, 0, len(idx))
	var nans []int
	for _, i := range idx {
		if v := b.X[i][f]; math.IsNaN(v) {
			nans = append(nans, i)
		} else {
			valid = append(valid, pair{v, i})
		}
	}
	if len(valid) < 2 {
		return result
	}
	sort.SliceStable(valid, func(a, c int) bool { return valid[a].v < valid[c].v })

	totalSum, totalSq := 0.0, 0.0
	for _, pv := range valid {
		y := b.y[pv.i]
		totalSum += y
		totalSq += y * y
	}
	n := float64(len(valid))

	leftSum, leftSq := 0.0, 0.0
	bestAt := -1
	for s := 1; s < len(valid); s++ {
		y := b.y[valid[s-1].i]
		leftSum += y
		leftSq += y * y
		if valid[s].v == valid[s-1].v {
			continue
		}
		if s < minLeaf || len(valid)-s < minLeaf {
			continue
		}
		nl := float64(s)
		nr := n - nl
		rightSum := totalSum - leftSum
		rightSq := totalSq - leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if gain := parentSSE - sse; gain > result.gain {
			result.gain = gain
			result.feature = f
			result.threshold = (valid[s-1].v + valid[s].v) / 2.0
			bestAt = s
		}
	}
	if bestAt < 0 {
		return result
	}
	result.leftIdx = indicesFromPairs(valid[:bestAt])
	result.rightIdx = indicesFromPairs(valid[bestAt:])
	// missing values go to the larger child, matching predictSingle
	if len(result.leftIdx) >= len(result.rightIdx) {
		result.leftIdx = append(result.leftIdx, nans...)
	} else {
		result.rightIdx = append(result.rightIdx, nans...)
	}
	return result
}

func indicesFromPairs(pairs []pair) []int {
	out := make([]int, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.i)
	}
	return out
}
