package dataprep

// QuadraticWidth is the row width after QuadraticFeatures on p columns.
func QuadraticWidth(p int) int { return p + p*(p+1)/2 }

// QuadraticFeatures appends every pairwise product x_j*x_k (j <= k) to each row.
func QuadraticFeatures(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		cols := len(row)
		features := make([]float64, QuadraticWidth(cols))
		copy(features, row)
		idx := cols
		for j := 0; j < cols; j++ {
			for k := j; k < cols; k++ {
				features[idx] = row[j] * row[k]
				idx++
			}
		}
		out[i] = features
	}
	return out
}
