package stats

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA projects standardized rows onto their leading principal axes, found by
// power iteration with deflation on the covariance matrix.
type PCA struct {
	K        int
	MaxIters int
	Seed     int64

	Scaler     *StandardScaler
	Components [][]float64 // K unit vectors, strongest first
	Explained  []float64   // share of total variance per component
}

func NewPCA(k int, seed int64) *PCA { return &PCA{K: k, MaxIters: 200, Seed: seed} }

const pcaTol = 1e-10

func (p *PCA) Fit(X [][]float64) error {
	if len(X) < 2 {
		return errors.New("stats: pca needs at least two rows")
	}
	d := len(X[0])
	if p.K < 1 || p.K > d {
		return errors.New("stats: pca component count out of range")
	}
	p.Scaler = NewStandardScaler()
	Z, err := p.Scaler.FitTransform(X)
	if err != nil {
		return err
	}
	flat := make([]float64, 0, len(Z)*d)
	for _, row := range Z {
		flat = append(flat, row...)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, mat.NewDense(len(Z), d, flat), nil)
	total := 0.0
	for j := range d {
		total += cov.At(j, j)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	p.Components = make([][]float64, p.K)
	p.Explained = make([]float64, p.K)
	for k := range p.K {
		v := mat.NewVecDense(d, nil)
		for j := range d {
			v.SetVec(j, rng.Float64()+0.1)
		}
		v.ScaleVec(1/mat.Norm(v, 2), v)

		var next mat.VecDense
		for range p.MaxIters {
			next.MulVec(&cov, v)
			n := mat.Norm(&next, 2)
			if n == 0 {
				break
			}
			next.ScaleVec(1/n, &next)
			done := 1-math.Abs(mat.Dot(v, &next)) < pcaTol
			v.CopyVec(&next)
			if done {
				break
			}
		}
		lambda := mat.Inner(v, &cov, v)
		p.Components[k] = append([]float64(nil), v.RawVector().Data...)
		if total > 0 {
			p.Explained[k] = lambda / total
		}
		cov.SymRankOne(&cov, -lambda, v)
	}
	return nil
}

// Transform returns the K projections of every row of X.
func (p *PCA) Transform(X [][]float64) [][]float64 {
	Z := p.Scaler.Transform(X)
	out := make([][]float64, len(Z))
	for i, z := range Z {
		row := make([]float64, p.K)
		for k, c := range p.Components {
			row[k] = floats.Dot(z, c)
		}
		out[i] = row
	}
	return out
}
