package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"purchase-prediction-api/boost"
	"purchase-prediction-api/config"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../testdata/artifacts"

func fixtureConfig(engine string) config.ArtifactsConfig {
	return config.ArtifactsConfig{
		Dir:                 fixtureDir,
		Engine:              engine,
		MaxMemory:           "256MB",
		Threads:             1,
		HistoryFile:         "historico_compras.csv",
		DateFeaturesFile:    "cb_previsao_data.csv",
		SegmentFeaturesFile: "cb_previsao_trecho.csv",
		SegmentsFile:        "classes.csv",
		DateModelFile:       "xgboost_model_dia_exato.json",
		SegmentModelFile:    "xgboost_model_trecho.json",
	}
}

func newFixtureStore(t *testing.T, engine string) *Store {
	t.Helper()
	s, err := NewStore(fixtureConfig(engine))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadDataset(t *testing.T) {
	for _, engine := range []string{"gota", "duckdb"} {
		t.Run(engine, func(t *testing.T) {
			s := newFixtureStore(t, engine)
			ctx := context.Background()

			df, err := s.LoadDataset(ctx, DatasetHistory, HistoryColumns...)
			require.NoError(t, err)
			assert.Equal(t, 15, df.Nrow())
			assert.Equal(t, HistoryColumns, df.Names())
			assert.Equal(t, series.String, df.Col(ColCustomerID).Type())
			assert.Equal(t, series.String, df.Col(ColOrigin).Type())

			features, err := s.LoadDataset(ctx, DatasetSegmentFeatures)
			require.NoError(t, err)
			assert.Equal(t, []string{"id_cliente", "recencia", "freq_trecho"}, features.Names())
			assert.Equal(t, []string{"C001", "C002", "C003", "C004"}, features.Col(ColCustomerID).Records())

			segments, err := s.LoadDataset(ctx, DatasetSegments, ColSegmentCode)
			require.NoError(t, err)
			assert.Equal(t, []string{"10_20", "20_30", "30_10"}, segments.Col(ColSegmentCode).Records())
		})
	}
}

func TestLoadDatasetSchemaMismatch(t *testing.T) {
	for _, engine := range []string{"gota", "duckdb"} {
		t.Run(engine, func(t *testing.T) {
			s := newFixtureStore(t, engine)
			_, err := s.LoadDataset(context.Background(), DatasetSegments, ColSegmentCode, "not_a_column")
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestLoadDatasetMissing(t *testing.T) {
	cfg := fixtureConfig("gota")
	cfg.HistoryFile = "does_not_exist.csv"
	s, err := NewStore(cfg)
	require.NoError(t, err)

	_, err = s.LoadDataset(context.Background(), DatasetHistory)
	assert.ErrorIs(t, err, ErrArtifactMissing)

	_, err = s.LoadDataset(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestLoadModel(t *testing.T) {
	s := newFixtureStore(t, "gota")

	m, err := s.LoadModel(context.Background(), ModelDate)
	require.NoError(t, err)
	assert.Equal(t, boost.Regression, m.Task())
	assert.Equal(t, []string{"recencia", "intervalo_medio_dias"}, m.FeatureNames())

	seg, err := s.LoadModel(context.Background(), ModelSegment)
	require.NoError(t, err)
	assert.Equal(t, boost.Classification, seg.Task())
	assert.Equal(t, 3, seg.NumClass())
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"objective":`), 0o644))

	cfg := fixtureConfig("gota")
	cfg.Dir = dir
	cfg.DateModelFile = "broken.json"
	cfg.SegmentModelFile = "absent.json"
	s, err := NewStore(cfg)
	require.NoError(t, err)

	_, err = s.LoadModel(context.Background(), ModelDate)
	assert.ErrorIs(t, err, boost.ErrInvalidModel)
	assert.NotErrorIs(t, err, ErrArtifactMissing)

	_, err = s.LoadModel(context.Background(), ModelSegment)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestNewStoreUnknownEngine(t *testing.T) {
	_, err := NewStore(fixtureConfig("spark"))
	assert.Error(t, err)
}

func TestScanSource(t *testing.T) {
	src, err := scanSource("/data/it's.csv")
	require.NoError(t, err)
	assert.Equal(t, "read_csv_auto('/data/it''s.csv', header = true, all_varchar = true)", src)

	src, err = scanSource("/data/history.parquet")
	require.NoError(t, err)
	assert.Equal(t, "read_parquet('/data/history.parquet')", src)

	_, err = scanSource("/data/history.xlsx")
	assert.Error(t, err)
}

func TestGotaRejectsParquet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "h.parquet"), []byte("PAR1"), 0o644))
	cfg := fixtureConfig("gota")
	cfg.Dir = dir
	cfg.HistoryFile = "h.parquet"
	s, err := NewStore(cfg)
	require.NoError(t, err)

	_, err = s.LoadDataset(context.Background(), DatasetHistory)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactMissing)
}
