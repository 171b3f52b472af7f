package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/persist"
)

func newPredictCmd(stdout io.Writer) *cobra.Command {
	var (
		modelPath string
		output    string
		separator string
		hasHeader bool
	)
	cmd := &cobra.Command{
		Use:   "predict [flags] FILE...",
		Short: "Score CSV files with a saved model",
		Long: `predict loads a model artifact written by train and appends a Score column
to every input row. The label column may be empty.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if utf8.RuneCountInString(separator) != 1 {
				return &configError{fmt.Errorf("separator must be a single character, got %q", separator)}
			}
			sep, _ := utf8.DecodeRuneInString(separator)

			a, err := persist.Load(modelPath)
			if err != nil {
				return err
			}
			p, err := data.Load(a.LoaderOptions(sep, hasHeader), "input", args...)
			if err != nil {
				return err
			}
			scores, err := a.Model.Predict(p)
			if err != nil {
				return err
			}

			if output == "" {
				return writeScores(stdout, sep, a, p, scores)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeScores(f, sep, a, p, scores); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "./house_model.zip", "model artifact")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write scored rows here instead of stdout")
	cmd.Flags().StringVar(&separator, "separator", ",", "field separator")
	cmd.Flags().BoolVar(&hasHeader, "has-header", true, "inputs start with a header row")
	return cmd
}

// writeScores writes every input record of p followed by its score.
func writeScores(out io.Writer, sep rune, a *persist.Artifact, p *data.Partition, scores []float64) error {
	w := csv.NewWriter(out)
	w.Comma = sep
	header := make([]string, 0, a.Schema.Len()+1)
	for _, c := range a.Schema.Columns() {
		header = append(header, c.Name)
	}
	if err := w.Write(append(header, "Score")); err != nil {
		return err
	}
	for i, s := range scores {
		rec := append(p.Record(i), strconv.FormatFloat(s, 'g', -1, 64))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
