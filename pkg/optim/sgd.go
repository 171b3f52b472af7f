package optim

// SGD is plain stochastic gradient descent with optional L2 weight decay.
type SGD struct {
	LearningRate float64
	WeightDecay  float64
}

func NewSGD(lr, decay float64) *SGD { return &SGD{LearningRate: lr, WeightDecay: decay} }

// Step updates weights in place.
func (o *SGD) Step(weights, grads []float64) {
	for i := range weights {
		weights[i] -= o.LearningRate * (grads[i] + o.WeightDecay*weights[i])
	}
}

// StepScalar returns the updated value of an undecayed scalar parameter such as a bias.
func (o *SGD) StepScalar(v, grad float64) float64 {
	return v - o.LearningRate*grad
}
