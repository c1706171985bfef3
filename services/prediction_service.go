package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/models"

	log "github.com/sirupsen/logrus"
)

const (
	TaskDate    = "date"
	TaskSegment = "segment"

	isoDate     = "2006-01-02"
	displayDate = "02/01/2006"
)

type PredictionService struct {
	catalog *Catalog
	now     Clock
}

func NewPredictionService(catalog *Catalog, clock Clock) *PredictionService {
	if clock == nil {
		clock = time.Now
	}
	return &PredictionService{catalog: catalog, now: clock}
}

// AddDays returns the calendar date offset days after today.
func AddDays(today time.Time, offset int) time.Time {
	y, m, d := today.Date()
	return time.Date(y, m, d+offset, 0, 0, 0, 0, today.Location())
}

// PredictNextPurchaseDate predicts how many days from today the customer's
// next purchase falls. The model output is truncated toward zero.
func (s *PredictionService) PredictNextPurchaseDate(ctx context.Context, customerID string) (models.DatePrediction, error) {
	offset, err := s.dateOffset(ctx, customerID)
	if err != nil {
		s.failed(TaskDate, err)
		return models.DatePrediction{}, err
	}

	date := AddDays(s.now(), offset)
	predictionsServed.WithLabelValues(TaskDate).Inc()
	return models.DatePrediction{
		Customer:   s.catalog.displayName(ctx, customerID),
		OffsetDays: offset,
		Date:       date.Format(isoDate),
		Display:    date.Format(displayDate),
	}, nil
}

func (s *PredictionService) dateOffset(ctx context.Context, customerID string) (int, error) {
	features, err := s.catalog.DateFeatures(ctx)
	if err != nil {
		return 0, err
	}
	m, err := s.catalog.Model(ctx, artifacts.ModelDate)
	if err != nil {
		return 0, err
	}
	row, err := featureRow(features, customerID, m)
	if err != nil {
		return 0, err
	}
	out, err := m.Predict(row)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("date model returned %v", out)
	}
	return int(math.Trunc(out)), nil
}

// PredictNextSegment predicts the customer's next travel segment. The
// predicted class is a row index into the segment table.
func (s *PredictionService) PredictNextSegment(ctx context.Context, customerID string) (models.SegmentPrediction, error) {
	class, err := s.segmentClass(ctx, customerID)
	if err != nil {
		s.failed(TaskSegment, err)
		return models.SegmentPrediction{}, err
	}

	labels, err := s.catalog.SegmentLabels(ctx)
	if err != nil {
		s.failed(TaskSegment, err)
		return models.SegmentPrediction{}, err
	}
	if class < 0 || class >= len(labels) {
		err := fmt.Errorf("%w: class %d, segment table has %d rows", ErrLabelIndexOutOfRange, class, len(labels))
		s.failed(TaskSegment, err)
		return models.SegmentPrediction{}, err
	}

	predictionsServed.WithLabelValues(TaskSegment).Inc()
	return models.SegmentPrediction{
		Customer:   s.catalog.displayName(ctx, customerID),
		ClassIndex: class,
		Segment:    labels[class],
	}, nil
}

func (s *PredictionService) segmentClass(ctx context.Context, customerID string) (int, error) {
	features, err := s.catalog.SegmentFeatures(ctx)
	if err != nil {
		return 0, err
	}
	m, err := s.catalog.Model(ctx, artifacts.ModelSegment)
	if err != nil {
		return 0, err
	}
	row, err := featureRow(features, customerID, m)
	if err != nil {
		return 0, err
	}
	return m.PredictClass(row)
}

// PredictAll runs both tasks. A failure in one task does not hide the
// other's result: missing customers become warnings, everything else an
// error message.
func (s *PredictionService) PredictAll(ctx context.Context, customerID string) models.PredictionSet {
	set := models.PredictionSet{Customer: s.catalog.displayName(ctx, customerID)}

	if p, err := s.PredictNextPurchaseDate(ctx, customerID); err != nil {
		recordTaskError(&set, TaskDate, err)
	} else {
		set.Date = &p
	}
	if p, err := s.PredictNextSegment(ctx, customerID); err != nil {
		recordTaskError(&set, TaskSegment, err)
	} else {
		set.Segment = &p
	}
	return set
}

func recordTaskError(set *models.PredictionSet, task string, err error) {
	if errors.Is(err, ErrCustomerNotFound) {
		if set.Warnings == nil {
			set.Warnings = make(map[string]string)
		}
		set.Warnings[task] = FailureMessage(err)
		return
	}
	if set.Errors == nil {
		set.Errors = make(map[string]string)
	}
	set.Errors[task] = FailureMessage(err)
}

// FailureMessage is the user-facing text for a prediction failure.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return "no feature data for this customer"
	case errors.Is(err, artifacts.ErrArtifactMissing):
		return "a required data file or model is unavailable"
	case errors.Is(err, artifacts.ErrSchemaMismatch):
		return "feature data does not match the model schema"
	case errors.Is(err, ErrLabelIndexOutOfRange):
		return "segment model and segment table disagree"
	default:
		return "prediction failed"
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return "not_found"
	case errors.Is(err, artifacts.ErrArtifactMissing):
		return "artifact_missing"
	case errors.Is(err, artifacts.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrLabelIndexOutOfRange):
		return "label_out_of_range"
	default:
		return "other"
	}
}

func (s *PredictionService) failed(task string, err error) {
	reason := failureReason(err)
	predictionsFailed.WithLabelValues(task, reason).Inc()

	entry := log.WithFields(log.Fields{"task": task, "reason": reason, "error": err})
	if reason == "not_found" {
		entry.Warn("prediction skipped")
		return
	}
	entry.Error("prediction failed")
}
