package model

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Ridge is an L2-regularized least squares model solved in closed form.
// The intercept is not penalized.
type Ridge struct {
	Lambda float64
	W      []float64
	B      float64
}

func NewRidge(lambda float64) *Ridge { return &Ridge{Lambda: lambda} }

// Fit solves (XcᵀXc + λ·n·I) w = Xcᵀyc on column-centered data with a
// Cholesky factorization.
func (m *Ridge) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if err := checkXY("ridge", X, y); err != nil {
		return err
	}
	n := len(X)
	if m.Lambda <= 0 {
		return fmt.Errorf("ridge: lambda must be positive, got %g", m.Lambda)
	}
	p := len(X[0])

	xMean := make([]float64, p)
	yMean := 0.0
	for i, row := range X {
		for j, v := range row {
			xMean[j] += v
		}
		yMean += y[i]
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	if p == 0 {
		m.W, m.B = nil, yMean
		return nil
	}

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range X {
		for j, v := range row {
			xc.Set(i, j, v-xMean[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	penalty := m.Lambda * float64(n)
	for j := 0; j < p; j++ {
		gram.SetSym(j, j, gram.At(j, j)+penalty)
	}

	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return errors.New("ridge: normal matrix is not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return fmt.Errorf("ridge: solve: %w", err)
	}

	m.W = make([]float64, p)
	m.B = yMean
	for j := range p {
		m.W[j] = w.AtVec(j)
		m.B -= m.W[j] * xMean[j]
	}
	return nil
}

func (m *Ridge) Predict(X [][]float64) []float64 {
	return predictRows(len(X), func(i int) float64 {
		sum := m.B
		for j, v := range X[i] {
			sum += m.W[j] * v
		}
		return sum
	})
}
