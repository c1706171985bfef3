package handlers

import (
	"net/http"

	"purchase-prediction-api/services"

	"github.com/gin-gonic/gin"
)

type PredictionHandler struct {
	catalog     *services.Catalog
	predictions *services.PredictionService
	explain     *services.ExplainService
}

func NewPredictionHandler(catalog *services.Catalog, predictions *services.PredictionService, explain *services.ExplainService) *PredictionHandler {
	return &PredictionHandler{catalog: catalog, predictions: predictions, explain: explain}
}

// Predict runs both predictions. Each task reports its own warning or
// error, so one failing model never hides the other's result. Predictions
// depend on today's date and are not response-cached.
func (h *PredictionHandler) Predict(c *gin.Context) {
	id, ok := resolveCustomer(c, h.catalog)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.predictions.PredictAll(c.Request.Context(), id))
}

// Explain returns feature contributions for ?task=date (default) or
// ?task=segment.
func (h *PredictionHandler) Explain(c *gin.Context) {
	task := c.DefaultQuery("task", services.TaskDate)
	if task != services.TaskDate && task != services.TaskSegment {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task parameter, must be date or segment"})
		return
	}
	id, ok := resolveCustomer(c, h.catalog)
	if !ok {
		return
	}

	explain := h.explain.ExplainDate
	if task == services.TaskSegment {
		explain = h.explain.ExplainSegment
	}
	exp, err := explain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}
