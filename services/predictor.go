package services

import (
	"context"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/boost"
)

// Predictor is a trained model as the services use it. *boost.Model is the
// production implementation.
type Predictor interface {
	Task() boost.Task
	FeatureNames() []string
	Predict(row []float64) (float64, error)
	PredictClass(row []float64) (int, error)
	Contributions(row []float64, class int) (*boost.Explanation, error)
}

// StoreSource adapts an artifact store to ArtifactSource.
type StoreSource struct {
	*artifacts.Store
}

func NewStoreSource(store *artifacts.Store) StoreSource {
	return StoreSource{Store: store}
}

func (s StoreSource) LoadModel(ctx context.Context, name string) (Predictor, error) {
	m, err := s.Store.LoadModel(ctx, name)
	if err != nil {
		return nil, err
	}
	return m, nil
}
