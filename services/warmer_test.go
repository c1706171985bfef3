package services

import (
	"context"
	"testing"
	"time"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmerLoadsEverything(t *testing.T) {
	catalog, source := newTestCatalog(t, nil)
	w := NewWarmer(catalog, 0)

	require.NoError(t, w.RunCycle(context.Background()))
	for _, name := range []string{
		artifacts.DatasetHistory, artifacts.DatasetDateFeatures, artifacts.DatasetSegmentFeatures,
		artifacts.DatasetSegments, artifacts.ModelDate, artifacts.ModelSegment,
	} {
		assert.Equal(t, 1, source.Reads(name), name)
	}

	// a second cycle is served from the caches
	require.NoError(t, w.RunCycle(context.Background()))
	assert.Equal(t, 1, source.Reads(artifacts.DatasetHistory))
	assert.Equal(t, 1, source.Reads(artifacts.ModelSegment))
}

func TestWarmerReportsFailuresAndContinues(t *testing.T) {
	catalog, source := newTestCatalog(t, func(cfg *config.ArtifactsConfig) {
		cfg.HistoryFile = "missing.csv"
	})

	err := NewWarmer(catalog, 0).RunCycle(context.Background())
	assert.ErrorIs(t, err, artifacts.ErrArtifactMissing)
	assert.Equal(t, 1, source.Reads(artifacts.ModelDate))
}

func TestWarmerRunStopsOnCancel(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewWarmer(catalog, 10*time.Millisecond).Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("warmer did not stop after cancel")
	}
}
