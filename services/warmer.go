package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"purchase-prediction-api/artifacts"

	log "github.com/sirupsen/logrus"
)

// Warmer keeps the catalog resident: each cycle touches every dataset,
// derived value and model, so entries that expired are reloaded in the
// background rather than on a user's request.
type Warmer struct {
	catalog  *Catalog
	interval time.Duration
}

func NewWarmer(catalog *Catalog, interval time.Duration) *Warmer {
	return &Warmer{catalog: catalog, interval: interval}
}

// Run warms once immediately, then every interval until ctx is done. A
// non-positive interval warms once and returns.
func (w *Warmer) Run(ctx context.Context) {
	w.RunCycle(ctx)
	if w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.RunCycle(ctx)
		case <-ctx.Done():
			log.Info("cache warmer stopped")
			return
		}
	}
}

// RunCycle loads everything the dashboard serves and returns the joined
// load errors. One missing artifact does not stop the others.
func (w *Warmer) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		warmCycleDuration.Observe(time.Since(start).Seconds())
	}()

	steps := []struct {
		name string
		load func(context.Context) error
	}{
		{artifacts.DatasetHistory, func(ctx context.Context) error { _, err := w.catalog.History(ctx); return err }},
		{artifacts.DatasetDateFeatures, func(ctx context.Context) error { _, err := w.catalog.DateFeatures(ctx); return err }},
		{keyPseudonyms, func(ctx context.Context) error { _, err := w.catalog.Pseudonymizer(ctx); return err }},
		{keySegmentLabels, func(ctx context.Context) error { _, err := w.catalog.SegmentLabels(ctx); return err }},
		{artifacts.ModelDate, func(ctx context.Context) error { _, err := w.catalog.Model(ctx, artifacts.ModelDate); return err }},
		{artifacts.ModelSegment, func(ctx context.Context) error { _, err := w.catalog.Model(ctx, artifacts.ModelSegment); return err }},
	}

	var errs []error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.load(ctx); err != nil {
			warmFailures.Inc()
			log.WithFields(log.Fields{"artifact": step.name, "error": err}).Warn("cache warm failed")
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	log.WithFields(log.Fields{
		"failed": len(errs),
		"took":   time.Since(start).Round(time.Millisecond),
	}).Debug("cache warm cycle done")
	return errors.Join(errs...)
}
