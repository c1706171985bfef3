package handlers

import (
	"errors"
	"net/http"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError maps service errors onto HTTP responses. A customer missing
// from one feature table is a warning, not a failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownCustomer):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown customer"})
	case errors.Is(err, services.ErrExplanation):
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrCustomerNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "explanation failed", "hint": services.RetryHint})
	case errors.Is(err, services.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"warning": services.FailureMessage(err)})
	case errors.Is(err, artifacts.ErrArtifactMissing):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": services.FailureMessage(err)})
	default:
		log.WithFields(log.Fields{"path": c.FullPath(), "error": err}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": services.FailureMessage(err)})
	}
}

// resolveCustomer turns the :name path parameter into the real id.
func resolveCustomer(c *gin.Context, catalog *services.Catalog) (string, bool) {
	id, err := catalog.ResolveCustomer(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return id, true
}
