// Package schema describes the column layout of a delimited tabular dataset
// and infers it from a sample of raw rows.
package schema

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind is the semantic type of a column.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
	Text        Kind = "text"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case Numeric, Categorical, Text:
		return true
	}
	return false
}

// Role says whether a column is the regression target or an input.
type Role string

const (
	Label   Role = "label"
	Feature Role = "feature"
)

// Column describes one field of a row. Index is the position in the raw record.
type Column struct {
	Name  string `yaml:"name"`
	Index int    `yaml:"index"`
	Kind  Kind   `yaml:"kind"`
	Role  Role   `yaml:"role"`
}

// Schema is an ordered, immutable list of columns with exactly one label.
// The zero value is empty and invalid.
type Schema struct {
	cols  []Column
	label int
}

// New validates cols and returns a Schema. Columns must be listed in raw
// record order with contiguous indexes starting at zero.
func New(cols []Column) (Schema, error) {
	if len(cols) < 2 {
		return Schema{}, fmt.Errorf("need at least 2 columns, got %d", len(cols))
	}
	seen := make(map[string]struct{}, len(cols))
	label := -1
	for i, c := range cols {
		if c.Index != i {
			return Schema{}, fmt.Errorf("column %q: index %d out of order (want %d)", c.Name, c.Index, i)
		}
		if c.Name == "" {
			return Schema{}, fmt.Errorf("column %d: empty name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return Schema{}, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if !c.Kind.Valid() {
			return Schema{}, fmt.Errorf("column %q: unknown kind %q", c.Name, c.Kind)
		}
		switch c.Role {
		case Label:
			if label >= 0 {
				return Schema{}, fmt.Errorf("column %q: second label column (first is %q)", c.Name, cols[label].Name)
			}
			if c.Kind != Numeric {
				return Schema{}, fmt.Errorf("label column %q must be numeric, got %s", c.Name, c.Kind)
			}
			label = i
		case Feature:
		default:
			return Schema{}, fmt.Errorf("column %q: unknown role %q", c.Name, c.Role)
		}
	}
	if label < 0 {
		return Schema{}, errors.New("no label column")
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return Schema{cols: out, label: label}, nil
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.cols) }

// Columns returns a copy of all columns in record order.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Column returns the i-th column.
func (s Schema) Column(i int) Column { return s.cols[i] }

// Label returns the label column.
func (s Schema) Label() Column { return s.cols[s.label] }

// Features returns the non-label columns in record order.
func (s Schema) Features() []Column {
	out := make([]Column, 0, len(s.cols)-1)
	for i, c := range s.cols {
		if i != s.label {
			out = append(out, c)
		}
	}
	return out
}

// Lookup finds a column by name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s.cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Equal reports whether both schemas describe the same columns.
func (s Schema) Equal(o Schema) bool {
	if len(s.cols) != len(o.cols) || s.label != o.label {
		return false
	}
	for i := range s.cols {
		if s.cols[i] != o.cols[i] {
			return false
		}
	}
	return true
}

type schemaDoc struct {
	Columns []Column `yaml:"columns"`
}

// MarshalYAML implements yaml.Marshaler.
func (s Schema) MarshalYAML() (any, error) {
	return schemaDoc{Columns: s.cols}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler and re-validates the columns.
func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	var doc schemaDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}
	parsed, err := New(doc.Columns)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// LoaderOptions are the low level parsing options needed to reload any
// source of the same shape.
type LoaderOptions struct {
	Separator rune
	HasHeader bool
	Schema    Schema
	// AllowMissingLabel lets rows with an empty label cell load as NaN. Only
	// used when scoring data whose target is unknown.
	AllowMissingLabel bool
}
