// Package testutil writes small deterministic housing-style CSV fixtures.
package testutil

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// HousingHeader is the column layout of generated fixtures: eight numeric
// features, the label at index 8 and a categorical column at index 9.
var HousingHeader = []string{
	"longitude", "latitude", "housing_median_age", "total_rooms",
	"total_bedrooms", "population", "households", "median_income",
	"median_house_value", "ocean_proximity",
}

// HousingLabelIndex is the position of median_house_value.
const HousingLabelIndex = 8

var proximities = []string{"NEAR BAY", "INLAND", "<1H OCEAN", "NEAR OCEAN"}

// HousingRows generates n records. The label is a noisy linear function of
// the features so simple learners reach a positive R².
func HousingRows(n int, seed int64) [][]string {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]string, n)
	for i := range n {
		x := make([]float64, 8)
		for j := range x {
			x[j] = rng.Float64()*10 - 5
		}
		prox := rng.Intn(len(proximities))
		y := 200 + 12*x[0] - 7*x[1] + 4*x[2] + 3*x[7]*x[7] + 25*float64(prox) + rng.NormFloat64()*2

		rec := make([]string, 0, len(HousingHeader))
		for _, v := range x {
			rec = append(rec, strconv.FormatFloat(v, 'f', 4, 64))
		}
		rec = append(rec, strconv.FormatFloat(y, 'f', 3, 64), proximities[prox])
		rows[i] = rec
	}
	return rows
}

// WriteCSV writes rows (with header when non-nil) to dir/name and returns the path.
func WriteCSV(t testing.TB, dir, name string, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	if header != nil {
		require.NoError(t, w.Write(header))
	}
	require.NoError(t, w.WriteAll(rows))
	return path
}

// HousingSplit writes train, validation and test fixtures with the given row
// counts and returns their paths.
func HousingSplit(t testing.TB, dir string, train, validation, test int) (string, string, string) {
	t.Helper()
	return WriteCSV(t, dir, "house_train.csv", HousingHeader, HousingRows(train, 1)),
		WriteCSV(t, dir, "house_validate.csv", HousingHeader, HousingRows(validation, 2)),
		WriteCSV(t, dir, "house_test.csv", HousingHeader, HousingRows(test, 3))
}
