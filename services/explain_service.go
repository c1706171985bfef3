package services

import (
	"context"
	"fmt"
	"math"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/boost"
	"purchase-prediction-api/models"

	log "github.com/sirupsen/logrus"
)

// RetryHint accompanies explanation failures shown to the user.
const RetryHint = "Feature explanations could not be computed. Predictions are unaffected; try again later."

// ExplainService attributes a model output to the customer's features.
type ExplainService struct {
	catalog *Catalog
}

func NewExplainService(catalog *Catalog) *ExplainService {
	return &ExplainService{catalog: catalog}
}

func (s *ExplainService) ExplainDate(ctx context.Context, customerID string) (models.Explanation, error) {
	exp, err := s.explain(ctx, customerID, TaskDate)
	if err != nil {
		return models.Explanation{}, s.failed(TaskDate, err)
	}
	return exp, nil
}

// ExplainSegment explains the margin of the predicted segment class.
func (s *ExplainService) ExplainSegment(ctx context.Context, customerID string) (models.Explanation, error) {
	exp, err := s.explain(ctx, customerID, TaskSegment)
	if err != nil {
		return models.Explanation{}, s.failed(TaskSegment, err)
	}
	return exp, nil
}

func (s *ExplainService) explain(ctx context.Context, customerID, task string) (models.Explanation, error) {
	modelName, features := artifacts.ModelDate, s.catalog.DateFeatures
	if task == TaskSegment {
		modelName, features = artifacts.ModelSegment, s.catalog.SegmentFeatures
	}

	df, err := features(ctx)
	if err != nil {
		return models.Explanation{}, err
	}
	m, err := s.catalog.Model(ctx, modelName)
	if err != nil {
		return models.Explanation{}, err
	}
	row, err := featureRow(df, customerID, m)
	if err != nil {
		return models.Explanation{}, err
	}

	class := 0
	if m.Task() == boost.Classification {
		if class, err = m.PredictClass(row); err != nil {
			return models.Explanation{}, err
		}
	}
	raw, err := m.Contributions(row, class)
	if err != nil {
		return models.Explanation{}, err
	}

	exp := models.Explanation{
		Customer:      s.catalog.displayName(ctx, customerID),
		Task:          task,
		Baseline:      raw.Baseline,
		Output:        raw.Output,
		Contributions: make([]models.FeatureContribution, len(raw.Contributions)),
	}
	if m.Task() == boost.Classification {
		exp.Class = &class
	}
	for i, c := range raw.Contributions {
		exp.Contributions[i] = models.FeatureContribution{
			Feature: c.Feature,
			Value:   finite(c.Value),
			Effect:  c.Effect,
		}
	}
	return exp, nil
}

func (s *ExplainService) failed(task string, err error) error {
	explanationsFailed.WithLabelValues(task).Inc()
	log.WithFields(log.Fields{"task": task, "error": err}).Warn("explanation failed")
	return fmt.Errorf("%w: %s: %w", ErrExplanation, task, err)
}

// finite drops values JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
