// Package data loads delimited sources into read-only, schema-conformant
// partitions.
package data

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
)

// ErrSchemaMismatch marks a record that does not fit the inferred schema.
var ErrSchemaMismatch = errors.New("record does not match schema")

// LoadError reports a source that is missing, unreadable or malformed.
type LoadError struct {
	Path string
	Line int // 0 when the failure is not tied to a record
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("data: load %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("data: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// column holds one field of every row; num for numeric columns, str otherwise.
type column struct {
	num []float64
	str []string
}

// Partition is a named table loaded from one or more sources. It is never
// modified after Load returns.
type Partition struct {
	name    string
	sources []string
	schema  schema.Schema
	cols    []column
	rows    int
}

// Load parses every source in order with opts and returns their union as a
// single partition. It never infers a schema.
func Load(opts schema.LoaderOptions, name string, paths ...string) (*Partition, error) {
	if len(paths) == 0 {
		return nil, &LoadError{Path: name, Err: errors.New("no sources")}
	}
	s := opts.Schema
	if s.Len() == 0 {
		return nil, &LoadError{Path: name, Err: errors.New("loader options carry no schema")}
	}
	sep := opts.Separator
	if sep == 0 {
		sep = ','
	}

	p := &Partition{
		name:    name,
		sources: append([]string(nil), paths...),
		schema:  s,
		cols:    make([]column, s.Len()),
	}
	for _, path := range paths {
		if err := p.readSource(path, sep, opts); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Partition) readSource(path string, sep rune, opts schema.LoaderOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReader(f))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	width := p.schema.Len()
	label := p.schema.Label().Index
	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return &LoadError{Path: path, Line: perr.Line, Err: err}
			}
			return &LoadError{Path: path, Err: err}
		}
		line, _ := reader.FieldPos(0)
		if first && opts.HasHeader {
			first = false
			if len(rec) != width {
				return &LoadError{Path: path, Line: line, Err: fmt.Errorf("%w: header has %d fields, want %d", ErrSchemaMismatch, len(rec), width)}
			}
			for j, cell := range rec {
				if want := p.schema.Column(j).Name; strings.TrimSpace(cell) != want {
					return &LoadError{Path: path, Line: line, Err: fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaMismatch, j, strings.TrimSpace(cell), want)}
				}
			}
			continue
		}
		first = false
		if len(rec) != width {
			return &LoadError{Path: path, Line: line, Err: fmt.Errorf("%w: %d fields, want %d", ErrSchemaMismatch, len(rec), width)}
		}

		for j := range width {
			c := p.schema.Column(j)
			cell := strings.TrimSpace(rec[j])
			if c.Kind != schema.Numeric {
				p.cols[j].str = append(p.cols[j].str, cell)
				continue
			}
			if schema.IsMissing(cell) {
				if j == label && !opts.AllowMissingLabel {
					return &LoadError{Path: path, Line: line, Err: fmt.Errorf("%w: missing label %q", ErrSchemaMismatch, c.Name)}
				}
				p.cols[j].num = append(p.cols[j].num, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return &LoadError{Path: path, Line: line, Err: fmt.Errorf("%w: column %q: %q is not numeric", ErrSchemaMismatch, c.Name, cell)}
			}
			p.cols[j].num = append(p.cols[j].num, v)
		}
		p.rows++
	}
}

// Name returns the partition name, e.g. "train+validation".
func (p *Partition) Name() string { return p.name }

// Sources returns the source paths in load order.
func (p *Partition) Sources() []string { return append([]string(nil), p.sources...) }

// Schema returns the schema the partition was loaded with.
func (p *Partition) Schema() schema.Schema { return p.schema }

// Rows returns the row count.
func (p *Partition) Rows() int { return p.rows }

// Numeric returns a copy of a numeric column.
func (p *Partition) Numeric(name string) ([]float64, bool) {
	c, ok := p.schema.Lookup(name)
	if !ok || c.Kind != schema.Numeric {
		return nil, false
	}
	return append([]float64(nil), p.cols[c.Index].num...), true
}

// Strings returns a copy of a categorical or text column.
func (p *Partition) Strings(name string) ([]string, bool) {
	c, ok := p.schema.Lookup(name)
	if !ok || c.Kind == schema.Numeric {
		return nil, false
	}
	return append([]string(nil), p.cols[c.Index].str...), true
}

// Record returns row i rendered as canonical strings in column order.
func (p *Partition) Record(i int) []string {
	out := make([]string, len(p.cols))
	for j, c := range p.cols {
		if p.schema.Column(j).Kind == schema.Numeric {
			out[j] = strconv.FormatFloat(c.num[i], 'g', -1, 64)
		} else {
			out[j] = c.str[i]
		}
	}
	return out
}

// Digest returns a hex SHA-256 over every record. Two partitions with the
// same schema and rows in the same order have the same digest.
func (p *Partition) Digest() string {
	h := sha256.New()
	for i := range p.rows {
		for _, cell := range p.Record(i) {
			io.WriteString(h, cell)
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
