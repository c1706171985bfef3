package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"purchase-prediction-api/models"
	"purchase-prediction-api/services"

	"github.com/gin-gonic/gin"
)

type CustomersHandler struct {
	catalog     *services.Catalog
	history     *services.HistoryService
	cache       *services.CacheService
	responseTTL time.Duration
	pageSize    int
	maxPageSize int
}

func NewCustomersHandler(catalog *services.Catalog, history *services.HistoryService, cache *services.CacheService, responseTTL time.Duration, pageSize, maxPageSize int) *CustomersHandler {
	return &CustomersHandler{
		catalog:     catalog,
		history:     history,
		cache:       cache,
		responseTTL: responseTTL,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
	}
}

// ListCustomers returns the fake names for the customer selector.
func (h *CustomersHandler) ListCustomers(c *gin.Context) {
	const cacheKey = "customers:all"

	var cached struct {
		Data []string `json:"data"`
	}
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	p, err := h.catalog.Pseudonymizer(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"data": p.Names()}
	go h.cache.Set(context.Background(), cacheKey, resp, h.responseTTL)

	c.JSON(http.StatusOK, resp)
}

func (h *CustomersHandler) GetSummary(c *gin.Context) {
	id, ok := resolveCustomer(c, h.catalog)
	if !ok {
		return
	}
	cacheKey := "summary:" + c.Param("name")

	var cached models.CustomerSummary
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Customer != "" {
		c.JSON(http.StatusOK, cached)
		return
	}

	summary, err := h.history.Summary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	go h.cache.Set(context.Background(), cacheKey, summary, h.responseTTL)

	c.JSON(http.StatusOK, summary)
}

func (h *CustomersHandler) GetHistory(c *gin.Context) {
	id, ok := resolveCustomer(c, h.catalog)
	if !ok {
		return
	}
	limit := ParseLimit(c, h.pageSize, h.maxPageSize)
	cacheKey := fmt.Sprintf("history:%s:%d", c.Param("name"), limit)

	var cached models.HistoryPage
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Rows != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	page, err := h.history.History(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	go h.cache.Set(context.Background(), cacheKey, page, h.responseTTL)

	c.JSON(http.StatusOK, page)
}
