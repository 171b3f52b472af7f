// Package persist writes and reads model artifacts: a zip archive holding the
// fitted pipeline, the schema it was trained on and a run manifest.
package persist

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/evaluate"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/pipeline"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
)

// Archive entry names.
const (
	ModelEntry    = "model.gob"
	SchemaEntry   = "schema.yaml"
	ManifestEntry = "manifest.yaml"
)

// Error is returned when an artifact cannot be written or read.
type Error struct {
	Op   string // "save" or "load"
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persist: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StageRecord summarizes one refit stage in the manifest. Metrics is nil for
// stages that were not evaluated.
type StageRecord struct {
	Stage     int               `yaml:"stage"`
	TrainRows int               `yaml:"train_rows"`
	Sources   []string          `yaml:"sources,omitempty"`
	Metrics   *evaluate.Metrics `yaml:"metrics,omitempty"`
}

// Manifest describes how an artifact was produced.
type Manifest struct {
	RunID        string        `yaml:"run_id"`
	CreatedAt    time.Time     `yaml:"created_at"`
	Estimator    string        `yaml:"estimator"`
	Label        string        `yaml:"label"`
	TrainRows    int           `yaml:"train_rows"`
	TrainSources []string      `yaml:"train_sources"`
	Stages       []StageRecord `yaml:"stages,omitempty"`
}

// Artifact is a loaded model file.
type Artifact struct {
	Model    *pipeline.FittedModel
	Schema   schema.Schema
	Manifest Manifest
}

// Save writes m and s to path. The file is written to a temporary name in the
// same directory and renamed into place, so readers never see a partial file.
func Save(path string, m *pipeline.FittedModel, s schema.Schema, man Manifest) error {
	fail := func(err error) error { return &Error{Op: "save", Path: path, Err: err} }
	if m == nil {
		return fail(errors.New("nil model"))
	}
	if !m.Schema().Equal(s) {
		return fail(errors.New("schema does not match the model's training schema"))
	}

	model, err := m.MarshalBinary()
	if err != nil {
		return fail(fmt.Errorf("encode model: %w", err))
	}
	sch, err := yaml.Marshal(s)
	if err != nil {
		return fail(fmt.Errorf("encode schema: %w", err))
	}
	mf, err := yaml.Marshal(man)
	if err != nil {
		return fail(fmt.Errorf("encode manifest: %w", err))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, e := range []struct {
		name string
		body []byte
	}{
		{ManifestEntry, mf},
		{SchemaEntry, sch},
		{ModelEntry, model},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: man.CreatedAt})
		if err != nil {
			tmp.Close()
			return fail(err)
		}
		if _, err := w.Write(e.body); err != nil {
			tmp.Close()
			return fail(err)
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fail(err)
	}
	return nil
}

// Load reads an artifact written by Save and checks that the embedded schema
// agrees with the model.
func Load(path string) (*Artifact, error) {
	fail := func(err error) (*Artifact, error) { return nil, &Error{Op: "load", Path: path, Err: err} }

	zr, err := zip.OpenReader(path)
	if err != nil {
		return fail(err)
	}
	defer zr.Close()

	entries := map[string][]byte{}
	for _, f := range zr.File {
		switch f.Name {
		case ModelEntry, SchemaEntry, ManifestEntry:
		default:
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fail(err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fail(fmt.Errorf("%s: %w", f.Name, err))
		}
		entries[f.Name] = b
	}
	for _, name := range []string{ModelEntry, SchemaEntry, ManifestEntry} {
		if _, ok := entries[name]; !ok {
			return fail(fmt.Errorf("missing entry %s", name))
		}
	}

	a := &Artifact{Model: new(pipeline.FittedModel)}
	if err := a.Model.UnmarshalBinary(entries[ModelEntry]); err != nil {
		return fail(fmt.Errorf("%s: %w", ModelEntry, err))
	}
	if err := yaml.Unmarshal(entries[SchemaEntry], &a.Schema); err != nil {
		return fail(fmt.Errorf("%s: %w", SchemaEntry, err))
	}
	if err := yaml.Unmarshal(entries[ManifestEntry], &a.Manifest); err != nil {
		return fail(fmt.Errorf("%s: %w", ManifestEntry, err))
	}
	if !a.Schema.Equal(a.Model.Schema()) {
		return fail(errors.New("embedded schema disagrees with the model"))
	}
	return a, nil
}

// LoaderOptions returns the options needed to read new data for the artifact's
// model: the stored schema with the label column allowed to be empty.
func (a *Artifact) LoaderOptions(separator rune, hasHeader bool) schema.LoaderOptions {
	return schema.LoaderOptions{
		Separator:         separator,
		HasHeader:         hasHeader,
		Schema:            a.Schema,
		AllowMissingLabel: true,
	}
}
