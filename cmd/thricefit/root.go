package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/config"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "thricefit",
		Short: "Search, refit and persist a regression model over CSV partitions",
		Long: `thricefit runs a time-bounded model search on a train/validation split and
refits the winning pipeline three times:

  1. on train, scored on test
  2. on train+validation, scored on the same test rows
  3. on train+validation+test, saved for deployment`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(
		newTrainCmd(stdout, stderr),
		newInferCmd(stdout),
		newPredictCmd(stdout),
	)
	return root
}

// configFlags binds every Config option to a flag. Flags that were set on the
// command line override the config file, which overrides the defaults.
type configFlags struct {
	path string
	vals config.Config
	set  map[string]func(dst, src *config.Config)
}

func (f *configFlags) bindData(fs *pflag.FlagSet) {
	f.vals = config.Default()
	f.set = map[string]func(dst, src *config.Config){}
	fs.StringVarP(&f.path, "config", "c", "", "YAML config file")

	f.str(fs, "train", "training CSV", &f.vals.TrainPath, func(d, s *config.Config) { d.TrainPath = s.TrainPath })
	f.str(fs, "validation", "validation CSV", &f.vals.ValidationPath, func(d, s *config.Config) { d.ValidationPath = s.ValidationPath })
	f.str(fs, "test", "test CSV", &f.vals.TestPath, func(d, s *config.Config) { d.TestPath = s.TestPath })
	f.str(fs, "label", "label column name", &f.vals.Label, func(d, s *config.Config) { d.Label = s.Label })
	f.str(fs, "separator", "field separator", &f.vals.Separator, func(d, s *config.Config) { d.Separator = s.Separator })
	f.str(fs, "log-level", "debug, info, warn or error", &f.vals.LogLevel, func(d, s *config.Config) { d.LogLevel = s.LogLevel })
	f.str(fs, "log-format", "text or json", &f.vals.LogFormat, func(d, s *config.Config) { d.LogFormat = s.LogFormat })

	fs.IntVar(&f.vals.LabelIndex, "label-index", f.vals.LabelIndex, "zero-based label column position")
	f.set["label-index"] = func(d, s *config.Config) { d.LabelIndex = s.LabelIndex }
	fs.BoolVar(&f.vals.HasHeader, "has-header", f.vals.HasHeader, "first row is a header")
	f.set["has-header"] = func(d, s *config.Config) { d.HasHeader = s.HasHeader }
}

func (f *configFlags) bindTrain(fs *pflag.FlagSet) {
	f.str(fs, "metric", "optimizing metric: r2, mae, mse or rmse", &f.vals.OptimizingMetric, func(d, s *config.Config) { d.OptimizingMetric = s.OptimizingMetric })
	f.str(fs, "model", "output model artifact", &f.vals.ModelPath, func(d, s *config.Config) { d.ModelPath = s.ModelPath })
	f.str(fs, "plot", "write a predicted-vs-actual chart (png, svg or pdf)", &f.vals.PlotPath, func(d, s *config.Config) { d.PlotPath = s.PlotPath })
	f.str(fs, "metrics-textfile", "write run metrics in Prometheus text format", &f.vals.MetricsTextfile, func(d, s *config.Config) { d.MetricsTextfile = s.MetricsTextfile })

	fs.IntVarP(&f.vals.MaxExperimentTimeSeconds, "time", "t", f.vals.MaxExperimentTimeSeconds, "search budget in seconds")
	f.set["time"] = func(d, s *config.Config) { d.MaxExperimentTimeSeconds = s.MaxExperimentTimeSeconds }
	fs.IntVar(&f.vals.MaxTrials, "max-trials", f.vals.MaxTrials, "stop the search after this many candidates (0: budget only)")
	f.set["max-trials"] = func(d, s *config.Config) { d.MaxTrials = s.MaxTrials }
	fs.IntVar(&f.vals.Workers, "workers", f.vals.Workers, "concurrent candidates (0: one per CPU)")
	f.set["workers"] = func(d, s *config.Config) { d.Workers = s.Workers }
	fs.Int64Var(&f.vals.Seed, "seed", f.vals.Seed, "random seed")
	f.set["seed"] = func(d, s *config.Config) { d.Seed = s.Seed }
	fs.StringSliceVar(&f.vals.Learners, "learners", f.vals.Learners, "restrict the search to these learners")
	f.set["learners"] = func(d, s *config.Config) { d.Learners = s.Learners }
}

func (f *configFlags) str(fs *pflag.FlagSet, name, usage string, p *string, apply func(dst, src *config.Config)) {
	fs.StringVar(p, name, *p, usage)
	f.set[name] = apply
}

// resolve loads the config file, if any, and applies the changed flags.
func (f *configFlags) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.path != "" {
		var err error
		if cfg, err = config.Load(f.path); err != nil {
			return cfg, &configError{err}
		}
	}
	for name, apply := range f.set {
		if fs.Changed(name) {
			apply(&cfg, &f.vals)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, &configError{err}
	}
	return cfg, nil
}
