package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
)

func TestSweeper_DefaultsFirst(t *testing.T) {
	kinds := model.Kinds()
	sw := newSweeper(42, kinds)
	for i, k := range kinds {
		est := sw.Next()
		assert.Equal(t, k, est.Learner.Kind, "trial %d", i)
		assert.Equal(t, defaultFor(k, 42), est)
	}
}

func TestSweeper_Reproducible(t *testing.T) {
	a, b := newSweeper(7, model.Kinds()), newSweeper(7, model.Kinds())
	for range 40 {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestSweeper_RespectsLearnerSubset(t *testing.T) {
	sw := newSweeper(1, []model.Kind{model.KindRidge})
	for range 20 {
		est := sw.Next()
		assert.Equal(t, model.KindRidge, est.Learner.Kind)
		assert.Greater(t, est.Learner.Lambda, 0.0)
	}
}

func TestSweeper_ProposesFeatureSteps(t *testing.T) {
	sw := newSweeper(3, model.Kinds())
	var clip, pca, pruned bool
	for range 200 {
		est := sw.Next()
		clip = clip || est.Featurizer.Clip
		if c := est.Featurizer.Components; c > 0 {
			pca = true
			assert.GreaterOrEqual(t, c, 2)
			assert.LessOrEqual(t, c, maxComponents)
		}
		pruned = pruned || est.Learner.MinGain > 0
	}
	assert.True(t, clip, "some trials clip outliers")
	assert.True(t, pca, "some trials project onto principal components")
	assert.True(t, pruned, "some trees require a minimum split gain")
}
