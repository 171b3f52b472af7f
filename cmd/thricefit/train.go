package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/refit"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/report"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/session"
)

func newTrainCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		flags   configFlags
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the search and the three refit stages, then save the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			sess := session.New(session.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr), cfg.Seed)
			settings := cfg.SearchSettings()

			res, err := refit.New(sess, cfg.RefitOptions(), settings,
				refit.WithObserver(report.Console{W: stdout}.Stage),
			).Run(cmd.Context())
			if err != nil {
				return err
			}

			if summary {
				if err := report.Summary(stdout, res); err != nil {
					return err
				}
				fmt.Fprintln(stdout)
				if err := report.Trials(stdout, res.Search, settings.Metric.Better, 5); err != nil {
					return err
				}
			}
			if cfg.PlotPath != "" {
				if err := report.PlotPredictions(cfg.PlotPath, res.Stages); err != nil {
					return err
				}
				sess.Log.Info("plot saved", "path", cfg.PlotPath)
			}
			if cfg.MetricsTextfile != "" {
				if err := sess.Telemetry.WriteTextfile(cfg.MetricsTextfile); err != nil {
					return fmt.Errorf("metrics textfile: %w", err)
				}
			}
			return nil
		},
	}
	flags.bindData(cmd.Flags())
	flags.bindTrain(cmd.Flags())
	cmd.Flags().BoolVar(&summary, "summary", false, "print a stage table and the best trials")
	return cmd
}
