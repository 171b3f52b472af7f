package main

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
)

func newInferCmd(stdout io.Writer) *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Print the schema inferred from the training CSV as YAML",
		Long: `infer prints the schema that train would use. The output can be pasted
under "columns:" in a config file to pin column kinds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			inf, err := schema.Infer(cfg.TrainPath, cfg.InferOptions())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(stdout)
			enc.SetIndent(2)
			if err := enc.Encode(inf.Schema); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	flags.bindData(cmd.Flags())
	return cmd
}
