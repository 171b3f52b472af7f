package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanStd_IgnoreNaN(t *testing.T) {
	x := []float64{1, math.NaN(), 3}
	assert.Equal(t, 2.0, Mean(x))
	assert.Equal(t, 1.0, Std(x))
	assert.Equal(t, 0.0, Mean([]float64{math.NaN()}))
	assert.Equal(t, 0.0, Std([]float64{4}))
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}}
	s := NewStandardScaler()
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{-1, 0}, {1, 0}}, out)
	assert.Equal(t, []float64{1, 5}, X[0], "input is not modified")

	_, err = NewStandardScaler().FitTransform(nil)
	assert.Error(t, err)
}

func TestClipper_KeepsRows(t *testing.T) {
	X := make([][]float64, 100)
	for i := range X {
		X[i] = []float64{float64(i + 1), -float64(i + 1)}
	}
	X[99][0] = 1000
	X[0][1] = -1000

	c, err := FitClipper(X, 5, 95)
	require.NoError(t, err)
	out := c.Transform(X)

	require.Len(t, out, len(X))
	assert.Less(t, c.High[0], 1000.0)
	assert.Greater(t, c.Low[1], -1000.0)
	assert.Equal(t, c.High[0], out[99][0])
	assert.Equal(t, c.Low[1], out[0][1])
	assert.Equal(t, X[50], out[50], "values inside the bounds are untouched")
	assert.Equal(t, 1000.0, X[99][0], "input is not modified")
	for _, row := range out {
		for j, v := range row {
			assert.GreaterOrEqual(t, v, c.Low[j])
			assert.LessOrEqual(t, v, c.High[j])
		}
	}

	_, err = FitClipper(nil, 1, 99)
	assert.Error(t, err)
	_, err = FitClipper(X, 99, 1)
	assert.Error(t, err)
}

func TestPCA_OrthonormalComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	X := make([][]float64, 300)
	for i := range X {
		a := rng.NormFloat64()
		X[i] = []float64{a, 2*a + rng.NormFloat64()*0.05, rng.NormFloat64()}
	}
	p := NewPCA(2, 1)
	require.NoError(t, p.Fit(X))

	require.Len(t, p.Components, 2)
	for _, c := range p.Components {
		assert.InDelta(t, 1, math.Sqrt(c[0]*c[0]+c[1]*c[1]+c[2]*c[2]), 1e-6)
	}
	c0, c1 := p.Components[0], p.Components[1]
	assert.InDelta(t, 0, c0[0]*c1[0]+c0[1]*c1[1]+c0[2]*c1[2], 1e-4)
	assert.Greater(t, p.Explained[0], 0.6, "the correlated pair dominates")
	assert.GreaterOrEqual(t, p.Explained[0], p.Explained[1])

	out := p.Transform(X)
	require.Len(t, out, len(X))
	assert.Len(t, out[0], 2)

	again := NewPCA(2, 1)
	require.NoError(t, again.Fit(X))
	assert.Equal(t, p.Components, again.Components)
}

func TestPCA_RejectsBadShape(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 5}, {4, 4}}
	assert.Error(t, NewPCA(0, 1).Fit(X))
	assert.Error(t, NewPCA(3, 1).Fit(X))
	assert.Error(t, NewPCA(1, 1).Fit(X[:1]))
}
