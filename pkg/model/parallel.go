package model

import (
	"fmt"
	"runtime"
	"sync"
)

// predictRows evaluates f for every row index, splitting rows into one
// contiguous chunk per CPU. Each index is written by exactly one goroutine.
func predictRows(n int, f func(i int) float64) []float64 {
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		s := w * rowsPerWorker
		e := min(s+rowsPerWorker, n)
		if s >= e {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				out[i] = f(i)
			}
		}(s, e)
	}
	wg.Wait()
	return out
}

// checkXY validates a training matrix: non-empty, rectangular and aligned with y.
func checkXY(learner string, X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("%s: empty X", learner)
	}
	if len(X) != len(y) {
		return fmt.Errorf("%s: X and y length mismatch (%d vs %d)", learner, len(X), len(y))
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return fmt.Errorf("%s: inconsistent number of features in X rows", learner)
		}
	}
	return nil
}
