package services

import (
	"context"
	"fmt"
	"slices"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/models"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ArtifactSource is what the catalog needs from the artifact store.
type ArtifactSource interface {
	LoadDataset(ctx context.Context, name string, columns ...string) (dataframe.DataFrame, error)
	LoadModel(ctx context.Context, name string) (Predictor, error)
}

// Value cache keys for values derived from datasets.
const (
	keyPseudonyms    = "pseudonyms"
	keySegmentLabels = "segment_labels"
)

// Catalog is the cached view over the artifact directory. Datasets and the
// values derived from them live in the value cache, models in the resource
// cache. Every accessor loads lazily on first use.
type Catalog struct {
	source ArtifactSource
	values *ValueCache
	models *ResourceCache[Predictor]
	seed   uint64
}

func NewCatalog(source ArtifactSource, values *ValueCache, models *ResourceCache[Predictor], seed uint64) *Catalog {
	return &Catalog{source: source, values: values, models: models, seed: seed}
}

// dataset loads detached from the caller's cancellation: every caller
// waiting on the same key shares the load, not only the one that started it.
func (c *Catalog) dataset(ctx context.Context, name string, columns ...string) (dataframe.DataFrame, error) {
	return LoadValue(c.values, name, func() (dataframe.DataFrame, error) {
		return c.source.LoadDataset(context.WithoutCancel(ctx), name, columns...)
	})
}

func (c *Catalog) History(ctx context.Context) (dataframe.DataFrame, error) {
	return c.dataset(ctx, artifacts.DatasetHistory, artifacts.HistoryColumns...)
}

func (c *Catalog) DateFeatures(ctx context.Context) (dataframe.DataFrame, error) {
	return c.dataset(ctx, artifacts.DatasetDateFeatures)
}

func (c *Catalog) SegmentFeatures(ctx context.Context) (dataframe.DataFrame, error) {
	return c.dataset(ctx, artifacts.DatasetSegmentFeatures)
}

func (c *Catalog) Segments(ctx context.Context) (dataframe.DataFrame, error) {
	return c.dataset(ctx, artifacts.DatasetSegments, artifacts.ColSegmentCode)
}

// Model returns a loaded model; name is artifacts.ModelDate or artifacts.ModelSegment.
func (c *Catalog) Model(ctx context.Context, name string) (Predictor, error) {
	return c.models.GetOrLoad(name, func() (Predictor, error) {
		return c.source.LoadModel(context.WithoutCancel(ctx), name)
	})
}

// Pseudonymizer builds the fake identity mapping. Customers are enumerated
// in first-appearance order of the segment feature table; the segment
// table itself is not needed.
func (c *Catalog) Pseudonymizer(ctx context.Context) (*Pseudonymizer, error) {
	return LoadValue(c.values, keyPseudonyms, func() (*Pseudonymizer, error) {
		features, err := c.SegmentFeatures(ctx)
		if err != nil {
			return nil, err
		}
		ids, err := stringColumn(features, artifacts.ColCustomerID)
		if err != nil {
			return nil, err
		}
		return NewPseudonymizer(c.seed, ids)
	})
}

// SegmentLabels is the segment table with its derived display column. Row
// i is the label of class i. Cities depend only on the location id, so the
// labels need nothing beyond the segment table.
func (c *Catalog) SegmentLabels(ctx context.Context) ([]models.SegmentLabel, error) {
	return LoadValue(c.values, keySegmentLabels, func() ([]models.SegmentLabel, error) {
		segments, err := c.Segments(ctx)
		if err != nil {
			return nil, err
		}
		codes, err := stringColumn(segments, artifacts.ColSegmentCode)
		if err != nil {
			return nil, err
		}

		labels := make([]models.SegmentLabel, len(codes))
		for i, code := range codes {
			origin, destination, err := SplitSegmentCode(code)
			if err != nil {
				return nil, fmt.Errorf("segment row %d: %w", i, err)
			}
			labels[i] = models.SegmentLabel{
				Index:       i,
				Code:        code,
				Origin:      origin,
				Destination: destination,
				Display:     cityFor(origin) + " -> " + cityFor(destination),
			}
		}
		return labels, nil
	})
}

// ResolveCustomer maps a display name back to the real customer id.
func (c *Catalog) ResolveCustomer(ctx context.Context, name string) (string, error) {
	p, err := c.Pseudonymizer(ctx)
	if err != nil {
		return "", err
	}
	id, ok := p.CustomerID(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCustomer, name)
	}
	return id, nil
}

func (c *Catalog) displayName(ctx context.Context, customerID string) string {
	p, err := c.Pseudonymizer(ctx)
	if err != nil {
		return ""
	}
	name, _ := p.Name(customerID)
	return name
}

// CacheStats snapshots both caches.
func (c *Catalog) CacheStats() []CacheStats {
	return []CacheStats{c.values.Stats(), c.models.Stats()}
}

func stringColumn(df dataframe.DataFrame, name string) ([]string, error) {
	for _, n := range df.Names() {
		if n == name {
			return df.Col(name).Records(), nil
		}
	}
	return nil, fmt.Errorf("%w: missing column %s", artifacts.ErrSchemaMismatch, name)
}

// customerRows filters df down to the rows of one customer.
func customerRows(df dataframe.DataFrame, customerID string) (dataframe.DataFrame, error) {
	rows := df.Filter(dataframe.F{
		Colname:    artifacts.ColCustomerID,
		Comparator: series.Eq,
		Comparando: customerID,
	})
	if rows.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %v", artifacts.ErrSchemaMismatch, rows.Err)
	}
	return rows, nil
}

// featureRow extracts the model input of one customer. The identifier
// column is dropped and the remaining columns must match the model's
// feature names in order. The first row wins when a customer has several.
func featureRow(df dataframe.DataFrame, customerID string, m Predictor) ([]float64, error) {
	rows, err := customerRows(df, customerID)
	if err != nil {
		return nil, err
	}
	if rows.Nrow() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}

	features := rows.Drop(artifacts.ColCustomerID)
	if features.Err != nil {
		return nil, fmt.Errorf("%w: %v", artifacts.ErrSchemaMismatch, features.Err)
	}
	names := features.Names()
	want := m.FeatureNames()
	if !slices.Equal(names, want) {
		return nil, fmt.Errorf("%w: feature columns %v, model expects %v", artifacts.ErrSchemaMismatch, names, want)
	}

	row := make([]float64, len(names))
	for j := range names {
		row[j] = features.Elem(0, j).Float()
	}
	return row, nil
}
