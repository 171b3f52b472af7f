package main

import (
	"errors"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/persist"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/refit"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
)

// Exit codes by failure kind.
const (
	exitFailure = 1
	exitConfig  = 2
	exitSchema  = 3
	exitStage   = 4
	exitPersist = 5
)

// configError marks invalid command line or config file input.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		cfgErr   *configError
		infErr   *schema.InferenceError
		stageErr *refit.StageError
		perErr   *persist.Error
	)
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &infErr):
		return exitSchema
	case errors.As(err, &stageErr):
		return exitStage
	case errors.As(err, &perErr):
		return exitPersist
	}
	return exitFailure
}
