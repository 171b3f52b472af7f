package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	defaultSampleRows    = 1000
	defaultMaxCategories = 64
)

// InferOptions control column inference.
type InferOptions struct {
	HasHeader  bool
	Separator  rune
	LabelIndex int
	// LabelName, when set, must match the header of the label column. Without
	// a header row it names the label column.
	LabelName string
	// SampleRows bounds how many data rows are read. 0 means 1000.
	SampleRows int
	// MaxCategories is the distinct-value ceiling for a non-numeric column to
	// be treated as categorical rather than text. 0 means 64.
	MaxCategories int
}

// Inference is the result of Infer.
type Inference struct {
	Schema      Schema
	Options     LoaderOptions
	SampledRows int
}

// InferenceError is returned when a schema cannot be derived.
type InferenceError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InferenceError) Error() string {
	msg := "schema: infer"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InferenceError) Unwrap() error { return e.Err }

// missingTokens are cell values treated as absent.
var missingTokens = map[string]struct{}{"": {}, "NA": {}, "NaN": {}, "nan": {}, "?": {}, "null": {}}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.TrimSpace(cell)]
	return ok
}

// Infer reads a sample of path and derives column kinds and roles.
func Infer(path string, opts InferOptions) (*Inference, error) {
	if opts.Separator == 0 {
		opts.Separator = ','
	}
	if opts.SampleRows <= 0 {
		opts.SampleRows = defaultSampleRows
	}
	if opts.MaxCategories <= 0 {
		opts.MaxCategories = defaultMaxCategories
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &InferenceError{Path: path, Reason: "open source", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = opts.Separator
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var header []string
	if opts.HasHeader {
		header, err = r.Read()
		if errors.Is(err, io.EOF) {
			return nil, &InferenceError{Path: path, Reason: "no header row"}
		}
		if err != nil {
			return nil, &InferenceError{Path: path, Reason: "read header", Err: err}
		}
	}

	var rows [][]string
	for len(rows) < opts.SampleRows {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &InferenceError{Path: path, Reason: "read sample", Err: err}
		}
		rows = append(rows, rec)
	}

	width := len(header)
	if !opts.HasHeader && len(rows) > 0 {
		width = len(rows[0])
	}
	if width < 2 {
		return nil, &InferenceError{Path: path, Reason: fmt.Sprintf("detected %d columns, need at least 2", width)}
	}
	if opts.LabelIndex < 0 || opts.LabelIndex >= width {
		return nil, &InferenceError{Path: path, Reason: fmt.Sprintf("label index %d out of bounds for %d columns", opts.LabelIndex, width)}
	}
	for i, rec := range rows {
		if len(rec) != width {
			return nil, &InferenceError{Path: path, Reason: fmt.Sprintf("sample row %d has %d fields, want %d", i+1, len(rec), width)}
		}
	}

	cols := make([]Column, width)
	for j := range width {
		name := fmt.Sprintf("col_%d", j)
		if opts.HasHeader {
			name = strings.TrimSpace(header[j])
		}
		role := Feature
		if j == opts.LabelIndex {
			role = Label
			switch {
			case opts.LabelName == "":
			case !opts.HasHeader:
				name = opts.LabelName
			case name != opts.LabelName:
				return nil, &InferenceError{Path: path, Reason: fmt.Sprintf("label column %d is %q, want %q", j, name, opts.LabelName)}
			}
		}
		cols[j] = Column{Name: name, Index: j, Kind: inferKind(rows, j, opts.MaxCategories), Role: role}
	}

	s, err := New(cols)
	if err != nil {
		return nil, &InferenceError{Path: path, Reason: "invalid schema", Err: err}
	}
	return &Inference{
		Schema:      s,
		Options:     LoaderOptions{Separator: opts.Separator, HasHeader: opts.HasHeader, Schema: s},
		SampledRows: len(rows),
	}, nil
}

// FromColumns builds an Inference from an explicit column list instead of
// sampling data.
func FromColumns(cols []Column, separator rune, hasHeader bool) (*Inference, error) {
	s, err := New(cols)
	if err != nil {
		return nil, &InferenceError{Reason: "explicit columns", Err: err}
	}
	if separator == 0 {
		separator = ','
	}
	return &Inference{Schema: s, Options: LoaderOptions{Separator: separator, HasHeader: hasHeader, Schema: s}}, nil
}

// inferKind picks numeric when every present cell parses as a float, then
// categorical when the distinct values are few relative to the sample, else
// text. An all-missing column is numeric.
func inferKind(rows [][]string, j, maxCategories int) Kind {
	distinct := make(map[string]struct{})
	present := 0
	numeric := true
	for _, rec := range rows {
		cell := strings.TrimSpace(rec[j])
		if IsMissing(cell) {
			continue
		}
		present++
		distinct[cell] = struct{}{}
		if numeric {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
			}
		}
	}
	if numeric {
		return Numeric
	}
	if len(distinct) <= maxCategories && len(distinct) <= max(present/2, 1) {
		return Categorical
	}
	return Text
}
