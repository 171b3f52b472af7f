package search

import (
	"math"
	"math/rand"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/pipeline"
)

const (
	textBuckets   = 16
	maxComponents = 8
)

// sweeper proposes candidate estimators: a fixed default per learner first,
// then random draws from each learner's hyperparameter ranges. The sequence
// depends only on the seed and the learner list.
type sweeper struct {
	rng      *rand.Rand
	seed     int64
	learners []model.Kind
	defaults []pipeline.Estimator
	next     int
}

func newSweeper(seed int64, learners []model.Kind) *sweeper {
	s := &sweeper{
		rng:      rand.New(rand.NewSource(seed)),
		seed:     seed,
		learners: learners,
	}
	for _, k := range learners {
		s.defaults = append(s.defaults, defaultFor(k, seed))
	}
	return s
}

// Next returns the estimator for trial id. It is not safe for concurrent use.
func (s *sweeper) Next() pipeline.Estimator {
	id := s.next
	s.next++
	if id < len(s.defaults) {
		return s.defaults[id]
	}
	k := s.learners[s.rng.Intn(len(s.learners))]
	return s.random(k, s.seed+int64(id))
}

func defaultFor(k model.Kind, seed int64) pipeline.Estimator {
	feat := pipeline.FeaturizerSpec{TextBuckets: textBuckets}
	spec := model.Spec{Kind: k, Seed: seed}
	switch k {
	case model.KindRidge:
		feat.Standardize = true
		spec.Lambda = 1e-4
	case model.KindSGD:
		feat.Standardize = true
		spec.LearningRate, spec.Epochs, spec.BatchSize, spec.Lambda = 0.01, 50, 16, 1e-4
	case model.KindTree:
		spec.MaxDepth, spec.MinSamplesSplit, spec.MinSamplesLeaf = 8, 4, 2
	case model.KindForest:
		spec.Trees, spec.MaxDepth, spec.MinSamplesLeaf = 30, 10, 2
	case model.KindKNN:
		feat.Standardize = true
		spec.K = 5
	}
	return pipeline.Estimator{Featurizer: feat, Learner: spec}
}

func (s *sweeper) random(k model.Kind, seed int64) pipeline.Estimator {
	feat := pipeline.FeaturizerSpec{TextBuckets: textBuckets}
	spec := model.Spec{Kind: k, Seed: seed}
	switch k {
	case model.KindRidge:
		feat.Standardize = true
		feat.Quadratic = s.rng.Intn(2) == 0
		spec.Lambda = s.logUniform(1e-6, 10)
	case model.KindSGD:
		feat.Standardize = true
		feat.Quadratic = s.rng.Intn(3) == 0
		spec.LearningRate = s.logUniform(1e-3, 5e-2)
		spec.Epochs = 20 + s.rng.Intn(181)
		spec.BatchSize = 1 << (2 + s.rng.Intn(5))
		spec.Lambda = s.logUniform(1e-6, 1e-2)
	case model.KindTree:
		spec.MaxDepth = 3 + s.rng.Intn(14)
		spec.MinSamplesSplit = 2 + s.rng.Intn(15)
		spec.MinSamplesLeaf = 1 + s.rng.Intn(10)
		spec.MinGain = s.minGain()
	case model.KindForest:
		spec.Trees = 10 + s.rng.Intn(91)
		spec.MaxDepth = 4 + s.rng.Intn(13)
		spec.MinSamplesLeaf = 1 + s.rng.Intn(8)
		spec.MaxFeatures = s.rng.Intn(6)
		spec.MinGain = s.minGain()
	case model.KindKNN:
		feat.Standardize = true
		spec.K = 1 + s.rng.Intn(25)
	}
	feat.Clip = s.rng.Intn(2) == 0
	if s.rng.Intn(4) == 0 {
		feat.Components = 2 + s.rng.Intn(maxComponents-1)
	}
	return pipeline.Estimator{Featurizer: feat, Learner: spec}
}

// minGain leaves half the trees unpruned.
func (s *sweeper) minGain() float64 {
	if s.rng.Intn(2) == 0 {
		return 0
	}
	return s.logUniform(1e-5, 1e-2)
}

func (s *sweeper) logUniform(lo, hi float64) float64 {
	return math.Exp(math.Log(lo) + s.rng.Float64()*(math.Log(hi)-math.Log(lo)))
}
