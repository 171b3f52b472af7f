// Package pipeline binds a featurizer and a learner into an Estimator that
// can be fitted on a partition to produce an immutable FittedModel.
package pipeline

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
)

// ErrSchemaMismatch is returned when a partition lacks a column the model
// was trained with, or carries it with a different kind.
var ErrSchemaMismatch = errors.New("partition schema incompatible with model")

// Estimator is an untrained pipeline: a feature transform plus a learner with
// fixed hyperparameters. It is a comparable value; two estimators are
// structurally identical exactly when they are ==.
type Estimator struct {
	Featurizer FeaturizerSpec
	Learner    model.Spec
}

func (e Estimator) String() string {
	return e.Featurizer.String() + " -> " + e.Learner.String()
}

// Fit trains a fresh pipeline on every row of p. Nothing is carried over from
// any earlier fit of the same estimator.
func (e Estimator) Fit(ctx context.Context, p *data.Partition, label string) (*FittedModel, error) {
	if got := p.Schema().Label().Name; got != label {
		return nil, fmt.Errorf("pipeline: partition %q label is %q, want %q", p.Name(), got, label)
	}
	y, _ := p.Numeric(label)

	feat, err := FitFeaturizer(e.Featurizer, p)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fit %s: %w", e, err)
	}
	X, err := feat.Transform(p)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fit %s: %w", e, err)
	}
	reg, err := model.New(e.Learner)
	if err != nil {
		return nil, err
	}
	if err := reg.Fit(ctx, X, y); err != nil {
		return nil, fmt.Errorf("pipeline: fit %s on %s: %w", e, p.Name(), err)
	}
	return &FittedModel{
		estimator:    e,
		schema:       p.Schema(),
		featurizer:   feat,
		regressor:    reg,
		trainRows:    p.Rows(),
		trainSources: p.Sources(),
	}, nil
}

// FittedModel is an estimator bound to the data it was trained on.
type FittedModel struct {
	estimator    Estimator
	schema       schema.Schema
	featurizer   *Featurizer
	regressor    model.Regressor
	trainRows    int
	trainSources []string
}

func (m *FittedModel) Estimator() Estimator { return m.estimator }
func (m *FittedModel) Schema() schema.Schema { return m.schema }
func (m *FittedModel) Label() string { return m.schema.Label().Name }
func (m *FittedModel) TrainRows() int { return m.trainRows }
func (m *FittedModel) TrainSources() []string { return append([]string(nil), m.trainSources...) }
func (m *FittedModel) FeatureWidth() int { return m.featurizer.Width() }

// CheckCompatible verifies that s carries every feature column of the
// training schema with the same kind.
func (m *FittedModel) CheckCompatible(s schema.Schema) error {
	for _, want := range m.schema.Features() {
		got, ok := s.Lookup(want.Name)
		if !ok {
			return fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, want.Name)
		}
		if got.Kind != want.Kind {
			return fmt.Errorf("%w: column %q is %s, trained as %s", ErrSchemaMismatch, want.Name, got.Kind, want.Kind)
		}
	}
	return nil
}

// Predict scores every row of p. The label column, if present, is ignored.
func (m *FittedModel) Predict(p *data.Partition) ([]float64, error) {
	if err := m.CheckCompatible(p.Schema()); err != nil {
		return nil, err
	}
	X, err := m.featurizer.Transform(p)
	if err != nil {
		return nil, err
	}
	return m.regressor.Predict(X), nil
}

// wireModel is the gob form of a FittedModel.
type wireModel struct {
	Estimator    Estimator
	Columns      []schema.Column
	Featurizer   *Featurizer
	Regressor    model.Regressor
	TrainRows    int
	TrainSources []string
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (m *FittedModel) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := wireModel{
		Estimator:    m.estimator,
		Columns:      m.schema.Columns(),
		Featurizer:   m.featurizer,
		Regressor:    m.regressor,
		TrainRows:    m.trainRows,
		TrainSources: m.trainSources,
	}
	if err := gob.NewEncoder(&buf).Encode(&w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (m *FittedModel) UnmarshalBinary(b []byte) error {
	var w wireModel
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return err
	}
	s, err := schema.New(w.Columns)
	if err != nil {
		return fmt.Errorf("pipeline: decoded schema: %w", err)
	}
	if w.Featurizer == nil || w.Regressor == nil {
		return errors.New("pipeline: decoded model is incomplete")
	}
	*m = FittedModel{
		estimator:    w.Estimator,
		schema:       s,
		featurizer:   w.Featurizer,
		regressor:    w.Regressor,
		trainRows:    w.TrainRows,
		trainSources: w.TrainSources,
	}
	return nil
}
