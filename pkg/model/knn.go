package model

import (
	"context"
	"errors"
	"sort"
)

// KNN predicts the mean target of the K nearest training rows.
type KNN struct {
	K int
	X [][]float64
	Y []float64
}

// NewKNN creates and returns a new KNN model.
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

// Fit stores a copy of the training rows.
func (m *KNN) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if err := checkXY("knn", X, y); err != nil {
		return err
	}
	if m.K <= 0 {
		return errors.New("knn: K must be positive")
	}
	m.X = make([][]float64, len(X))
	for i, row := range X {
		m.X[i] = append([]float64(nil), row...)
	}
	m.Y = append([]float64(nil), y...)
	return ctx.Err()
}

// Predict finds the K nearest neighbours of every row in parallel.
func (m *KNN) Predict(X [][]float64) []float64 {
	return predictRows(len(X), func(i int) float64 { return m.predictSingle(X[i]) })
}

func (m *KNN) predictSingle(xi []float64) float64 {
	type neighbour struct {
		d float64
		v float64
	}
	k := min(m.K, len(m.X))

	// sorted slice of the nearest rows found so far; on equal distance the
	// earlier training row wins
	nbrs := make([]neighbour, 0, k+1)
	for j, xj := range m.X {
		d := euclidSquared(xi, xj)
		if len(nbrs) == k && d >= nbrs[k-1].d {
			continue
		}
		pos := sort.Search(len(nbrs), func(a int) bool { return nbrs[a].d > d })
		nbrs = append(nbrs, neighbour{})
		copy(nbrs[pos+1:], nbrs[pos:])
		nbrs[pos] = neighbour{d: d, v: m.Y[j]}
		if len(nbrs) > k {
			nbrs = nbrs[:k]
		}
	}

	sum := 0.0
	for _, nb := range nbrs {
		sum += nb.v
	}
	return sum / float64(len(nbrs))
}

// euclidSquared computes the squared Euclidean distance between two vectors.
func euclidSquared(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
