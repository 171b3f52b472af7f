package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSGD_Step(t *testing.T) {
	w := []float64{1, -2}
	NewSGD(0.1, 0).Step(w, []float64{1, 1})
	assert.InDeltaSlice(t, []float64{0.9, -2.1}, w, 1e-12)

	w = []float64{1}
	NewSGD(0.1, 0.5).Step(w, []float64{0})
	assert.InDelta(t, 0.95, w[0], 1e-12)

	assert.InDelta(t, 0.8, NewSGD(0.1, 0.5).StepScalar(1, 2), 1e-12)
}

func TestMSE_Gradient(t *testing.T) {
	loss, grad := MSE([]float64{1, 2}, []float64{2, 2})
	assert.InDelta(t, 0.5, loss, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0}, grad, 1e-12)
}
