package stats

import "errors"

// StandardScaler centers each column on its training mean and divides by its
// training standard deviation. Constant columns are only centered.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("stats: cannot fit scaler on empty matrix")
	}
	c := len(X[0])
	s.Mean = make([]float64, c)
	s.Std = make([]float64, c)
	col := make([]float64, len(X))
	for j := 0; j < c; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		s.Mean[j] = Mean(col)
		s.Std[j] = Std(col)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return nil
}

// Transform returns a scaled copy of X. An unfitted scaler returns X unchanged.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	if s.Mean == nil {
		return X
	}
	Y := make([][]float64, len(X))
	for i, src := range X {
		row := make([]float64, len(src))
		for j, v := range src {
			row[j] = (v - s.Mean[j]) / s.Std[j]
		}
		Y[i] = row
	}
	return Y
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X), nil
}
