package services

import (
	"context"
	"testing"

	"purchase-prediction-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainDate(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)
	svc := NewExplainService(catalog)

	exp, err := svc.ExplainDate(context.Background(), "C001")
	require.NoError(t, err)
	assert.Equal(t, TaskDate, exp.Task)
	assert.Nil(t, exp.Class)
	assert.InDelta(t, 10.2, exp.Output, 1e-9)
	assert.InDelta(t, 6.65, exp.Baseline, 1e-9)

	require.Len(t, exp.Contributions, 2)
	assert.Equal(t, "intervalo_medio_dias", exp.Contributions[0].Feature)
	assert.InDelta(t, 2.0, exp.Contributions[0].Effect, 1e-9)
	assert.Equal(t, "recencia", exp.Contributions[1].Feature)
	assert.InDelta(t, 1.55, exp.Contributions[1].Effect, 1e-9)
	require.NotNil(t, exp.Contributions[1].Value)
	assert.Equal(t, 5.0, *exp.Contributions[1].Value)

	sum := exp.Baseline
	for _, c := range exp.Contributions {
		sum += c.Effect
	}
	assert.InDelta(t, exp.Output, sum, 1e-9)
}

func TestExplainSegmentUsesPredictedClass(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)
	svc := NewExplainService(catalog)

	exp, err := svc.ExplainSegment(context.Background(), "C003")
	require.NoError(t, err)
	require.NotNil(t, exp.Class)
	assert.Equal(t, 2, *exp.Class)
	assert.InDelta(t, 3.5, exp.Output, 1e-9)

	sum := exp.Baseline
	for _, c := range exp.Contributions {
		sum += c.Effect
	}
	assert.InDelta(t, exp.Output, sum, 1e-9)
}

func TestExplainFailuresAreWrapped(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)
	svc := NewExplainService(catalog)

	_, err := svc.ExplainDate(context.Background(), "C004")
	assert.ErrorIs(t, err, ErrExplanation)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	broken, _ := newTestCatalog(t, func(cfg *config.ArtifactsConfig) {
		cfg.DateModelFile = "missing.json"
	})
	_, err = NewExplainService(broken).ExplainDate(context.Background(), "C001")
	assert.ErrorIs(t, err, ErrExplanation)
}
