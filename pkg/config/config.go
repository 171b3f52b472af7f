// Package config loads run settings from YAML on top of built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/evaluate"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/refit"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/search"
)

var validate = validator.New()

// Config is every recognized option of a training run.
type Config struct {
	TrainPath      string `yaml:"train_path" validate:"required"`
	ValidationPath string `yaml:"validation_path" validate:"required"`
	TestPath       string `yaml:"test_path" validate:"required"`

	// Label, when set, must name the column at LabelIndex.
	Label      string `yaml:"label"`
	LabelIndex int    `yaml:"label_index" validate:"gte=0"`
	Separator  string `yaml:"separator" validate:"required"`
	HasHeader  bool   `yaml:"has_header"`
	// Columns replaces inference when non-empty.
	Columns []schema.Column `yaml:"columns,omitempty"`

	MaxExperimentTimeSeconds int      `yaml:"max_experiment_time_seconds" validate:"gt=0"`
	OptimizingMetric         string   `yaml:"optimizing_metric" validate:"required"`
	MaxTrials                int      `yaml:"max_trials" validate:"gte=0"`
	Workers                  int      `yaml:"workers" validate:"gte=0"`
	Learners                 []string `yaml:"learners,omitempty" validate:"dive,oneof=ridge sgd tree forest knn"`
	Seed                     int64    `yaml:"seed"`

	ModelPath       string `yaml:"model_path"`
	PlotPath        string `yaml:"plot_path"`
	MetricsTextfile string `yaml:"metrics_textfile"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// Default returns the settings of the housing experiment.
func Default() Config {
	return Config{
		TrainPath:                "./house_train.csv",
		ValidationPath:           "./house_validate.csv",
		TestPath:                 "./house_test.csv",
		Label:                    "median_house_value",
		LabelIndex:               8,
		Separator:                ",",
		HasHeader:                true,
		MaxExperimentTimeSeconds: 60,
		OptimizingMetric:         string(evaluate.RSquared),
		ModelPath:                "./house_model.zip",
		LogLevel:                 "info",
		LogFormat:                "text",
	}
}

// Load reads path over Default and validates the result. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and, when Columns is set, the schema
// invariants. The metric name is checked by the search itself.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	if utf8.RuneCountInString(c.Separator) != 1 {
		return fmt.Errorf("config: invalid: separator must be a single character, got %q", c.Separator)
	}
	if len(c.Columns) > 0 {
		if _, err := schema.New(c.Columns); err != nil {
			return fmt.Errorf("config: invalid columns: %w", err)
		}
	}
	return nil
}

func (c Config) separator() rune {
	r, _ := utf8.DecodeRuneInString(c.Separator)
	return r
}

// InferOptions maps the parsing options for schema inference.
func (c Config) InferOptions() schema.InferOptions {
	return schema.InferOptions{
		HasHeader:  c.HasHeader,
		Separator:  c.separator(),
		LabelIndex: c.LabelIndex,
		LabelName:  c.Label,
	}
}

// SearchSettings maps the search options. An unknown metric name is passed
// through unchanged for the search to reject.
func (c Config) SearchSettings() search.Settings {
	metric, err := evaluate.ParseMetric(c.OptimizingMetric)
	if err != nil {
		metric = evaluate.Metric(c.OptimizingMetric)
	}
	s := search.Settings{
		MaxExperimentTime: time.Duration(c.MaxExperimentTimeSeconds) * time.Second,
		Metric:            metric,
		MaxTrials:         c.MaxTrials,
		Workers:           c.Workers,
	}
	for _, l := range c.Learners {
		s.Learners = append(s.Learners, model.Kind(l))
	}
	return s
}

// RefitOptions maps the data and output options of the workflow.
func (c Config) RefitOptions() refit.Options {
	return refit.Options{
		Sources: refit.Sources{
			Train:      c.TrainPath,
			Validation: c.ValidationPath,
			Test:       c.TestPath,
		},
		Infer:     c.InferOptions(),
		Columns:   c.Columns,
		ModelPath: c.ModelPath,
	}
}
