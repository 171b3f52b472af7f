package data

import "context"

// Batch is a mini-batch of feature rows and their targets.
type Batch struct {
	X [][]float64
	Y []float64
}

// Batcher emits X/y rows in the given order as mini-batches of at most size
// rows. The channel is closed after the last batch or when ctx is done.
func Batcher(ctx context.Context, X [][]float64, y []float64, order []int, size int) <-chan Batch {
	if size <= 0 {
		size = 1
	}
	out := make(chan Batch)

	go func() {
		defer close(out)

		var bx [][]float64
		var by []float64
		for _, i := range order {
			bx = append(bx, X[i])
			by = append(by, y[i])
			if len(by) < size {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- Batch{X: bx, Y: by}:
			}
			bx, by = nil, nil
		}
		// final, possibly short, batch
		if len(by) > 0 {
			select {
			case <-ctx.Done():
			case out <- Batch{X: bx, Y: by}:
			}
		}
	}()
	return out
}
