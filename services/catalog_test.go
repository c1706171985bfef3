package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../testdata/artifacts"

func fixtureArtifacts() config.ArtifactsConfig {
	return config.ArtifactsConfig{
		Dir:                 fixtureDir,
		Engine:              "gota",
		HistoryFile:         "historico_compras.csv",
		DateFeaturesFile:    "cb_previsao_data.csv",
		SegmentFeaturesFile: "cb_previsao_trecho.csv",
		SegmentsFile:        "classes.csv",
		DateModelFile:       "xgboost_model_dia_exato.json",
		SegmentModelFile:    "xgboost_model_trecho.json",
	}
}

// countingSource records how often each artifact is read.
type countingSource struct {
	inner ArtifactSource
	mu    sync.Mutex
	reads map[string]int
}

func (s *countingSource) count(name string) {
	s.mu.Lock()
	s.reads[name]++
	s.mu.Unlock()
}

func (s *countingSource) Reads(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[name]
}

func (s *countingSource) LoadDataset(ctx context.Context, name string, columns ...string) (dataframe.DataFrame, error) {
	s.count(name)
	return s.inner.LoadDataset(ctx, name, columns...)
}

func (s *countingSource) LoadModel(ctx context.Context, name string) (Predictor, error) {
	s.count(name)
	return s.inner.LoadModel(ctx, name)
}

func newTestCatalog(t *testing.T, mutate func(*config.ArtifactsConfig)) (*Catalog, *countingSource) {
	t.Helper()
	cfg := fixtureArtifacts()
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := artifacts.NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source := &countingSource{inner: NewStoreSource(store), reads: make(map[string]int)}
	return newCatalogOver(t, source), source
}

func newCatalogOver(t *testing.T, source ArtifactSource) *Catalog {
	t.Helper()
	models, err := NewResourceCache[Predictor]("test_models", 2)
	require.NoError(t, err)
	return NewCatalog(source, NewValueCache("test_values", time.Hour, 8), models, 42)
}

// overrideSource replaces single datasets or models of an inner source.
type overrideSource struct {
	ArtifactSource
	datasets map[string]dataframe.DataFrame
	models   map[string]Predictor
}

func (s *overrideSource) LoadDataset(ctx context.Context, name string, columns ...string) (dataframe.DataFrame, error) {
	if df, ok := s.datasets[name]; ok {
		return df, nil
	}
	return s.ArtifactSource.LoadDataset(ctx, name, columns...)
}

func (s *overrideSource) LoadModel(ctx context.Context, name string) (Predictor, error) {
	if m, ok := s.models[name]; ok {
		return m, nil
	}
	return s.ArtifactSource.LoadModel(ctx, name)
}

func TestCatalogPseudonymizerFollowsSegmentFeatureOrder(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	p, err := catalog.Pseudonymizer(ctx)
	require.NoError(t, err)

	want, err := NewPseudonymizer(42, []string{"C001", "C002", "C003", "C004"})
	require.NoError(t, err)
	assert.Equal(t, want.Names(), p.Names())

	name, ok := p.Name("C003")
	require.True(t, ok)
	id, err := catalog.ResolveCustomer(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "C003", id)

	_, err = catalog.ResolveCustomer(ctx, "Nobody Known")
	assert.ErrorIs(t, err, ErrUnknownCustomer)
}

func TestCatalogSegmentLabels(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	labels, err := catalog.SegmentLabels(ctx)
	require.NoError(t, err)
	require.Len(t, labels, 3)

	p, err := catalog.Pseudonymizer(ctx)
	require.NoError(t, err)
	for i, code := range []string{"10_20", "20_30", "30_10"} {
		assert.Equal(t, i, labels[i].Index)
		assert.Equal(t, code, labels[i].Code)
		display, err := p.SegmentDisplay(code)
		require.NoError(t, err)
		assert.Equal(t, display, labels[i].Display)
	}
}

func TestCatalogLoadsEachArtifactOnce(t *testing.T) {
	catalog, source := newTestCatalog(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := catalog.SegmentLabels(ctx)
		require.NoError(t, err)
		_, err = catalog.Model(ctx, artifacts.ModelSegment)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, source.Reads(artifacts.DatasetSegments))
	assert.Equal(t, 1, source.Reads(artifacts.ModelSegment))
	// labels need neither customer names nor history
	assert.Equal(t, 0, source.Reads(artifacts.DatasetSegmentFeatures))
	assert.Equal(t, 0, source.Reads(artifacts.DatasetHistory))
}

func TestCatalogMissingArtifact(t *testing.T) {
	catalog, _ := newTestCatalog(t, func(cfg *config.ArtifactsConfig) {
		cfg.SegmentFeaturesFile = "does_not_exist.csv"
	})
	_, err := catalog.Pseudonymizer(context.Background())
	assert.ErrorIs(t, err, artifacts.ErrArtifactMissing)

	// a failed load is retried on the next access
	_, err = catalog.Pseudonymizer(context.Background())
	assert.ErrorIs(t, err, artifacts.ErrArtifactMissing)
}

func TestCatalogCustomersSurviveMissingSegmentTable(t *testing.T) {
	catalog, _ := newTestCatalog(t, func(cfg *config.ArtifactsConfig) {
		cfg.SegmentsFile = "does_not_exist.csv"
	})
	ctx := context.Background()

	p, err := catalog.Pseudonymizer(ctx)
	require.NoError(t, err)
	name, ok := p.Name("C001")
	require.True(t, ok)
	id, err := catalog.ResolveCustomer(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "C001", id)

	page, err := NewHistoryService(catalog, 10).History(ctx, "C001", 10)
	require.NoError(t, err)
	assert.Len(t, page.Rows, 10)

	date, err := NewPredictionService(catalog, fixedClock).PredictNextPurchaseDate(ctx, "C001")
	require.NoError(t, err)
	assert.Equal(t, 10, date.OffsetDays)

	_, err = catalog.SegmentLabels(ctx)
	assert.ErrorIs(t, err, artifacts.ErrArtifactMissing)
}

func TestCatalogBadSegmentRowOnlyBreaksLabels(t *testing.T) {
	store, err := artifacts.NewStore(fixtureArtifacts())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog := newCatalogOver(t, &overrideSource{
		ArtifactSource: NewStoreSource(store),
		datasets: map[string]dataframe.DataFrame{
			artifacts.DatasetSegments: dataframe.LoadRecords([][]string{
				{artifacts.ColSegmentCode},
				{"10_20"},
				{"20_30_40"},
			}),
		},
	})
	ctx := context.Background()

	_, err = catalog.SegmentLabels(ctx)
	assert.ErrorIs(t, err, ErrInvalidSegmentCode)

	p, err := catalog.Pseudonymizer(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Len())
}

// gatedSource holds every dataset load until release is closed, and gives
// up early if its context is cancelled.
type gatedSource struct {
	ArtifactSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSource) LoadDataset(ctx context.Context, name string, columns ...string) (dataframe.DataFrame, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-ctx.Done():
		return dataframe.DataFrame{}, ctx.Err()
	case <-s.release:
	}
	return s.ArtifactSource.LoadDataset(ctx, name, columns...)
}

func TestCatalogSharedLoadOutlivesCancelledCaller(t *testing.T) {
	store, err := artifacts.NewStore(fixtureArtifacts())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source := &gatedSource{
		ArtifactSource: NewStoreSource(store),
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	catalog := newCatalogOver(t, source)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := catalog.History(first)
		firstErr <- err
	}()
	<-source.started

	secondErr := make(chan error, 1)
	go func() {
		_, err := catalog.History(context.Background())
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(source.release)

	assert.NoError(t, <-firstErr)
	assert.NoError(t, <-secondErr)
	assert.True(t, catalog.values.Contains(artifacts.DatasetHistory))
}

func TestFeatureRow(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	df, err := catalog.DateFeatures(ctx)
	require.NoError(t, err)
	m, err := catalog.Model(ctx, artifacts.ModelDate)
	require.NoError(t, err)

	row, err := featureRow(df, "C002", m)
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 12}, row)

	_, err = featureRow(df, "C004", m)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	segment, err := catalog.Model(ctx, artifacts.ModelSegment)
	require.NoError(t, err)
	_, err = featureRow(df, "C001", segment)
	assert.ErrorIs(t, err, artifacts.ErrSchemaMismatch)
}
