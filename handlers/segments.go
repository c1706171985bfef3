package handlers

import (
	"context"
	"net/http"
	"time"

	"purchase-prediction-api/models"
	"purchase-prediction-api/services"

	"github.com/gin-gonic/gin"
)

type SegmentsHandler struct {
	catalog     *services.Catalog
	history     *services.HistoryService
	cache       *services.CacheService
	responseTTL time.Duration
}

func NewSegmentsHandler(catalog *services.Catalog, history *services.HistoryService, cache *services.CacheService, responseTTL time.Duration) *SegmentsHandler {
	return &SegmentsHandler{catalog: catalog, history: history, cache: cache, responseTTL: responseTTL}
}

func (h *SegmentsHandler) GetSegments(c *gin.Context) {
	const cacheKey = "segments:all"

	var cached struct {
		Data []models.SegmentLabel `json:"data"`
	}
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	labels, err := h.catalog.SegmentLabels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"data": labels}
	go h.cache.Set(context.Background(), cacheKey, resp, h.responseTTL)

	c.JSON(http.StatusOK, resp)
}

func (h *SegmentsHandler) GetClusters(c *gin.Context) {
	const cacheKey = "clusters:all"

	var cached struct {
		Data []models.ClusterCount `json:"data"`
	}
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	counts, err := h.history.Clusters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"data": counts}
	go h.cache.Set(context.Background(), cacheKey, resp, h.responseTTL)

	c.JSON(http.StatusOK, resp)
}

func (h *SegmentsHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data":           h.catalog.CacheStats(),
		"response_cache": h.cache.Available(),
	})
}
