package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/testutil"
)

func housingOptions() schema.InferOptions {
	return schema.InferOptions{HasHeader: true, Separator: ',', LabelIndex: testutil.HousingLabelIndex}
}

func TestInfer_Housing(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "train.csv", testutil.HousingHeader, testutil.HousingRows(50, 1))

	inf, err := schema.Infer(path, housingOptions())
	require.NoError(t, err)

	s := inf.Schema
	assert.Equal(t, 10, s.Len())
	assert.Equal(t, "median_house_value", s.Label().Name)
	assert.Equal(t, schema.Numeric, s.Label().Kind)
	assert.Len(t, s.Features(), 9)

	prox, ok := s.Lookup("ocean_proximity")
	require.True(t, ok)
	assert.Equal(t, schema.Categorical, prox.Kind)
	assert.Equal(t, schema.Feature, prox.Role)

	for _, c := range s.Features() {
		assert.NotEqual(t, s.Label().Name, c.Name, "features must exclude the label")
	}
	assert.Equal(t, ',', inf.Options.Separator)
	assert.True(t, inf.Options.HasHeader)
	assert.True(t, inf.Options.Schema.Equal(s))
	assert.Equal(t, 50, inf.SampledRows)
}

func TestInfer_LabelNameChecked(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "train.csv", testutil.HousingHeader, testutil.HousingRows(5, 1))

	opts := housingOptions()
	opts.LabelName = "median_house_value"
	_, err := schema.Infer(path, opts)
	require.NoError(t, err)

	opts.LabelName = "price"
	_, err = schema.Infer(path, opts)
	var ierr *schema.InferenceError
	require.ErrorAs(t, err, &ierr)
}

func TestInfer_NoHeaderNamesColumns(t *testing.T) {
	path := testutil.WriteCSV(t, t.TempDir(), "train.csv", nil, testutil.HousingRows(20, 1))

	opts := housingOptions()
	opts.HasHeader = false
	opts.LabelName = "target"
	inf, err := schema.Infer(path, opts)
	require.NoError(t, err)

	assert.Equal(t, "col_0", inf.Schema.Column(0).Name)
	assert.Equal(t, "target", inf.Schema.Label().Name)
	assert.Equal(t, 8, inf.Schema.Label().Index)
}

func TestInfer_Failures(t *testing.T) {
	dir := t.TempDir()
	single := testutil.WriteCSV(t, dir, "single.csv", []string{"y"}, [][]string{{"1"}, {"2"}})
	textLabel := testutil.WriteCSV(t, dir, "text_label.csv", []string{"x", "y"}, [][]string{{"1", "a"}, {"2", "b"}})
	ragged := testutil.WriteCSV(t, dir, "ragged.csv", []string{"x", "y"}, [][]string{{"1", "2"}, {"3"}})
	good := testutil.WriteCSV(t, dir, "good.csv", []string{"x", "y"}, [][]string{{"1", "2"}})

	tests := []struct {
		name       string
		path       string
		labelIndex int
	}{
		{"one column", single, 0},
		{"label out of bounds", good, 2},
		{"negative label index", good, -1},
		{"non numeric label", textLabel, 1},
		{"ragged sample", ragged, 1},
		{"missing file", dir + "/nope.csv", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Infer(tt.path, schema.InferOptions{HasHeader: true, LabelIndex: tt.labelIndex})
			var ierr *schema.InferenceError
			require.True(t, errors.As(err, &ierr), "got %v", err)
		})
	}
}

func TestInfer_TextColumn(t *testing.T) {
	rows := make([][]string, 0, 40)
	for i := range 40 {
		rows = append(rows, []string{"note number " + string(rune('a'+i%26)) + string(rune('A'+i/26)), "1.5"})
	}
	path := testutil.WriteCSV(t, t.TempDir(), "text.csv", []string{"comment", "y"}, rows)

	inf, err := schema.Infer(path, schema.InferOptions{HasHeader: true, LabelIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, schema.Text, inf.Schema.Column(0).Kind)
}

func TestSchema_YAMLRoundTripRevalidates(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "x", Index: 0, Kind: schema.Numeric, Role: schema.Feature},
		{Name: "y", Index: 1, Kind: schema.Numeric, Role: schema.Label},
	})
	require.NoError(t, err)

	out, err := yaml.Marshal(s)
	require.NoError(t, err)

	var back schema.Schema
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.True(t, s.Equal(back))

	bad := []byte("columns:\n  - {name: x, index: 0, kind: numeric, role: feature}\n  - {name: y, index: 1, kind: numeric, role: feature}\n")
	assert.Error(t, yaml.Unmarshal(bad, &back))
}

func TestNew_RejectsTwoLabels(t *testing.T) {
	_, err := schema.New([]schema.Column{
		{Name: "a", Index: 0, Kind: schema.Numeric, Role: schema.Label},
		{Name: "b", Index: 1, Kind: schema.Numeric, Role: schema.Label},
	})
	assert.Error(t, err)
}
