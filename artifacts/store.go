// Package artifacts reads the dashboard's read-only artifact directory:
// tabular datasets exported by the training pipeline and the boosted-tree
// models trained on them. Nothing here ever writes to disk.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"purchase-prediction-api/boost"
	"purchase-prediction-api/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	ErrArtifactMissing = errors.New("artifact missing")
	ErrSchemaMismatch  = errors.New("schema mismatch")
)

// Logical artifact names.
const (
	DatasetHistory         = "history"
	DatasetDateFeatures    = "date_features"
	DatasetSegmentFeatures = "segment_features"
	DatasetSegments        = "segments"
	ModelDate              = "date_model"
	ModelSegment           = "segment_model"
)

// Column names shared by the datasets.
const (
	ColCustomerID      = "id_cliente"
	ColOrigin          = "origem_ida"
	ColDestination     = "destino_ida"
	ColTotalPurchases  = "qtd_total_compras"
	ColPassengers      = "qnt_passageiros"
	ColPurchaseDate    = "data_compra"
	ColTotalValue      = "vl_total_compra"
	ColAverageTicket   = "vl_medio_compra"
	ColAverageInterval = "intervalo_medio_dias"
	ColCluster         = "cluster_name"
	ColSegmentCode     = "Trechos"
)

// HistoryColumns is the minimum purchase-history schema.
var HistoryColumns = []string{
	ColCustomerID, ColOrigin, ColDestination, ColTotalPurchases, ColPassengers,
	ColPurchaseDate, ColTotalValue, ColAverageTicket, ColAverageInterval, ColCluster,
}

// Identifiers and codes keep their textual form ("007" must not become 7).
var stringColumns = map[string]series.Type{
	ColCustomerID:   series.String,
	ColOrigin:       series.String,
	ColDestination:  series.String,
	ColPurchaseDate: series.String,
	ColCluster:      series.String,
	ColSegmentCode:  series.String,
}

var artifactLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "purchase_dashboard_artifact_load_duration_seconds",
	Help:    "Time spent reading an artifact from disk.",
	Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
}, []string{"name"})

type datasetReader interface {
	Read(ctx context.Context, path string, columns []string) (dataframe.DataFrame, error)
	Close() error
}

// Store resolves logical names to files under one directory.
type Store struct {
	dir    string
	files  map[string]string
	reader datasetReader
}

func NewStore(cfg config.ArtifactsConfig) (*Store, error) {
	var reader datasetReader
	switch cfg.Engine {
	case "duckdb":
		r, err := newDuckDBReader(cfg.MaxMemory, cfg.Threads)
		if err != nil {
			return nil, err
		}
		reader = r
	case "gota", "":
		reader = csvReader{}
	default:
		return nil, fmt.Errorf("unknown dataset engine %q", cfg.Engine)
	}

	return &Store{
		dir:    cfg.Dir,
		reader: reader,
		files: map[string]string{
			DatasetHistory:         cfg.HistoryFile,
			DatasetDateFeatures:    cfg.DateFeaturesFile,
			DatasetSegmentFeatures: cfg.SegmentFeaturesFile,
			DatasetSegments:        cfg.SegmentsFile,
			ModelDate:              cfg.DateModelFile,
			ModelSegment:           cfg.SegmentModelFile,
		},
	}, nil
}

func (s *Store) Close() error {
	return s.reader.Close()
}

func (s *Store) path(name string) (string, error) {
	file, ok := s.files[name]
	if !ok || file == "" {
		return "", fmt.Errorf("%w: no artifact named %q", ErrArtifactMissing, name)
	}
	p := filepath.Join(s.dir, file)
	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrArtifactMissing, p, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrArtifactMissing, p)
	}
	return p, nil
}

// LoadDataset reads a dataset, keeping only columns when any are given.
func (s *Store) LoadDataset(ctx context.Context, name string, columns ...string) (dataframe.DataFrame, error) {
	p, err := s.path(name)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	start := time.Now()
	df, err := s.reader.Read(ctx, p, columns)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load dataset %s: %w", name, err)
	}
	artifactLoadDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	log.WithFields(log.Fields{
		"dataset": name,
		"rows":    df.Nrow(),
		"cols":    df.Ncol(),
		"took":    time.Since(start).Round(time.Millisecond),
	}).Info("dataset loaded")
	return df, nil
}

// LoadModel decodes a boosted-tree model file.
func (s *Store) LoadModel(ctx context.Context, name string) (*boost.Model, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactMissing, p, err)
	}
	defer f.Close()

	m, err := boost.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	artifactLoadDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	log.WithFields(log.Fields{
		"model":     name,
		"objective": m.Objective(),
		"trees":     m.NumTrees(),
		"features":  len(m.FeatureNames()),
	}).Info("model loaded")
	return m, nil
}

func checkColumns(available, requested []string) error {
	have := make(map[string]struct{}, len(available))
	for _, c := range available {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range requested {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %v", ErrSchemaMismatch, missing)
	}
	return nil
}
