package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/optim"
)

// SGDRegressor is a linear model trained with shuffled mini-batch gradient descent.
type SGDRegressor struct {
	W         []float64
	B         float64
	Lr        float64
	Epochs    int
	BatchSize int
	L2        float64
	Seed      int64
}

// NewSGDRegressor returns an untrained SGD regressor.
func NewSGDRegressor(lr float64, epochs, batchSize int, l2 float64, seed int64) *SGDRegressor {
	return &SGDRegressor{Lr: lr, Epochs: epochs, BatchSize: batchSize, L2: l2, Seed: seed}
}

// Predict returns w·x + b for every row of X.
func (m *SGDRegressor) Predict(X [][]float64) []float64 {
	return predictRows(len(X), func(i int) float64 {
		sum := m.B
		for j, v := range X[i] {
			sum += m.W[j] * v
		}
		return sum
	})
}

// Fit trains from scratch. Rows are reshuffled every epoch from a generator
// seeded with Seed, so equal inputs give equal weights.
func (m *SGDRegressor) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if err := checkXY("sgd", X, y); err != nil {
		return err
	}
	if m.Epochs <= 0 || m.Lr <= 0 {
		return fmt.Errorf("sgd: invalid hyperparameters lr=%g epochs=%d", m.Lr, m.Epochs)
	}

	rng := rand.New(rand.NewSource(m.Seed))
	p := len(X[0])
	m.W = make([]float64, p)
	for i := range m.W {
		m.W[i] = rng.NormFloat64() * 0.01
	}
	m.B = 0
	opt := optim.NewSGD(m.Lr, m.L2)

	for ep := 0; ep < m.Epochs; ep++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for batch := range data.Batcher(ctx, X, y, rng.Perm(len(X)), m.BatchSize) {
			yhat := m.Predict(batch.X)
			_, dy := optim.MSE(batch.Y, yhat)
			gW := make([]float64, p)
			gb := 0.0
			for i, row := range batch.X {
				d := dy[i]
				for j, xij := range row {
					gW[j] += d * xij
				}
				gb += d
			}
			opt.Step(m.W, gW)
			m.B = opt.StepScalar(m.B, gb)
		}
		if math.IsNaN(m.B) || math.IsInf(m.B, 0) {
			return fmt.Errorf("sgd: diverged at epoch %d", ep)
		}
	}
	return ctx.Err()
}
