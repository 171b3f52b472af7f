package pipeline

import (
	"fmt"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/dataprep"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/stats"
)

// FeaturizerSpec is the untrained shape of the feature transform.
type FeaturizerSpec struct {
	// Standardize scales every output column to zero mean, unit variance.
	Standardize bool
	// Quadratic appends pairwise products of the numeric columns.
	Quadratic bool
	// TextBuckets is the hashed bag-of-words width per text column. Text
	// columns are dropped when it is zero.
	TextBuckets int
	// Clip bounds numeric columns to their 1st and 99th training percentiles.
	Clip bool
	// Components, when positive, replaces the numeric columns with that many
	// principal components (capped at the numeric column count).
	Components int
}

const (
	clipLower = 1
	clipUpper = 99
	pcaSeed   = 1
)

func (s FeaturizerSpec) String() string {
	out := "impute"
	if s.Clip {
		out += "+clip"
	}
	if s.Components > 0 {
		out += fmt.Sprintf("+pca%d", s.Components)
	}
	out += "+onehot"
	if s.TextBuckets > 0 {
		out += fmt.Sprintf("+hash%d", s.TextBuckets)
	}
	if s.Quadratic {
		out += "+quadratic"
	}
	if s.Standardize {
		out += "+standardize"
	}
	return out
}

// NumericColumn is a fitted numeric input.
type NumericColumn struct {
	Name    string
	Imputer dataprep.MeanImputer
}

// CategoricalColumn is a fitted categorical input.
type CategoricalColumn struct {
	Name    string
	Encoder *dataprep.OneHot
}

// Featurizer turns schema-conformant partitions into a dense matrix. All
// statistics are learned from the partition it was fitted on.
type Featurizer struct {
	Spec        FeaturizerSpec
	Numeric     []NumericColumn
	Categorical []CategoricalColumn
	Text        []string
	Clipper     *stats.Clipper
	PCA         *stats.PCA
	Scaler      *stats.StandardScaler
}

// FitFeaturizer learns imputation means, clip bounds, principal axes, category
// vocabularies and scaling from the feature columns of p.
func FitFeaturizer(spec FeaturizerSpec, p *data.Partition) (*Featurizer, error) {
	if p.Rows() == 0 {
		return nil, fmt.Errorf("featurize: partition %q is empty", p.Name())
	}
	f := &Featurizer{Spec: spec}
	for _, c := range p.Schema().Features() {
		switch c.Kind {
		case schema.Numeric:
			col, _ := p.Numeric(c.Name)
			f.Numeric = append(f.Numeric, NumericColumn{Name: c.Name, Imputer: dataprep.FitMeanImputer(col)})
		case schema.Categorical:
			col, _ := p.Strings(c.Name)
			f.Categorical = append(f.Categorical, CategoricalColumn{Name: c.Name, Encoder: dataprep.FitOneHot(col)})
		case schema.Text:
			if spec.TextBuckets > 0 {
				f.Text = append(f.Text, c.Name)
			}
		}
	}
	if f.rawWidth() == 0 {
		return nil, fmt.Errorf("featurize: partition %q has no usable feature columns", p.Name())
	}
	if len(f.Numeric) > 0 && (spec.Clip || spec.Components > 0) {
		block, err := f.numeric(p)
		if err != nil {
			return nil, err
		}
		if spec.Clip {
			if f.Clipper, err = stats.FitClipper(block, clipLower, clipUpper); err != nil {
				return nil, fmt.Errorf("featurize: %w", err)
			}
			block = f.Clipper.Transform(block)
		}
		if spec.Components > 0 {
			pca := stats.NewPCA(min(spec.Components, len(f.Numeric)), pcaSeed)
			if err := pca.Fit(block); err != nil {
				return nil, fmt.Errorf("featurize: %w", err)
			}
			f.PCA = pca
		}
	}
	if spec.Standardize {
		raw, err := f.raw(p)
		if err != nil {
			return nil, err
		}
		f.Scaler = stats.NewStandardScaler()
		if err := f.Scaler.Fit(raw); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Width is the number of output columns.
func (f *Featurizer) Width() int { return f.rawWidth() }

func (f *Featurizer) numericWidth() int {
	w := len(f.Numeric)
	if f.PCA != nil {
		w = f.PCA.K
	}
	if f.Spec.Quadratic {
		w = dataprep.QuadraticWidth(w)
	}
	return w
}

func (f *Featurizer) rawWidth() int {
	w := f.numericWidth()
	for _, c := range f.Categorical {
		w += c.Encoder.Width()
	}
	return w + len(f.Text)*f.Spec.TextBuckets
}

// Transform featurizes every row of p.
func (f *Featurizer) Transform(p *data.Partition) ([][]float64, error) {
	raw, err := f.raw(p)
	if err != nil {
		return nil, err
	}
	if f.Scaler != nil {
		return f.Scaler.Transform(raw), nil
	}
	return raw, nil
}

// numeric returns the imputed numeric block of p.
func (f *Featurizer) numeric(p *data.Partition) ([][]float64, error) {
	block := make([][]float64, p.Rows())
	for i := range block {
		block[i] = make([]float64, len(f.Numeric))
	}
	for j, c := range f.Numeric {
		col, ok := p.Numeric(c.Name)
		if !ok {
			return nil, fmt.Errorf("%w: numeric column %q not in partition %q", ErrSchemaMismatch, c.Name, p.Name())
		}
		for i, v := range col {
			block[i][j] = c.Imputer.Apply(v)
		}
	}
	return block, nil
}

func (f *Featurizer) raw(p *data.Partition) ([][]float64, error) {
	n := p.Rows()

	numeric, err := f.numeric(p)
	if err != nil {
		return nil, err
	}
	if f.Clipper != nil {
		numeric = f.Clipper.Transform(numeric)
	}
	if f.PCA != nil {
		numeric = f.PCA.Transform(numeric)
	}
	if f.Spec.Quadratic {
		numeric = dataprep.QuadraticFeatures(numeric)
	}

	width := f.rawWidth()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, width)
		copy(out[i], numeric[i])
	}
	offset := f.numericWidth()

	for _, c := range f.Categorical {
		col, ok := p.Strings(c.Name)
		if !ok {
			return nil, fmt.Errorf("%w: categorical column %q not in partition %q", ErrSchemaMismatch, c.Name, p.Name())
		}
		w := c.Encoder.Width()
		for i, v := range col {
			c.Encoder.EncodeInto(out[i][offset:offset+w], v)
		}
		offset += w
	}
	for _, name := range f.Text {
		col, ok := p.Strings(name)
		if !ok {
			return nil, fmt.Errorf("%w: text column %q not in partition %q", ErrSchemaMismatch, name, p.Name())
		}
		w := f.Spec.TextBuckets
		for i, v := range col {
			dataprep.HashText(out[i][offset:offset+w], v)
		}
		offset += w
	}
	return out, nil
}
