package handlers

import (
	"net/http"

	"purchase-prediction-api/config"
	"purchase-prediction-api/middleware"
	"purchase-prediction-api/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Config      *config.Config
	Catalog     *services.Catalog
	Predictions *services.PredictionService
	History     *services.HistoryService
	Explain     *services.ExplainService
	Auth        *services.AuthService
	Cache       *services.CacheService
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.SetupCORS(d.Config.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Purchase Prediction API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	customers := NewCustomersHandler(d.Catalog, d.History, d.Cache, d.Config.Cache.ResponseTTL,
		d.Config.Dashboard.HistoryPageSize, d.Config.Dashboard.MaxHistoryPageSize)
	predictions := NewPredictionHandler(d.Catalog, d.Predictions, d.Explain)
	segments := NewSegmentsHandler(d.Catalog, d.History, d.Cache, d.Config.Cache.ResponseTTL)
	auth := NewAuthHandler(d.Auth)

	api := router.Group("/api")
	api.POST("/auth/login", middleware.NewRateLimiter(d.Config.Auth.LoginPerMinute).Middleware(), auth.Login)
	api.POST("/auth/logout", auth.Logout)

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(d.Auth, d.Config.Auth.Enabled))
	{
		protected.GET("/customers", customers.ListCustomers)
		protected.GET("/customers/:name/summary", customers.GetSummary)
		protected.GET("/customers/:name/history", customers.GetHistory)
		protected.POST("/customers/:name/predictions", predictions.Predict)
		protected.POST("/customers/:name/explanations", predictions.Explain)
		protected.GET("/segments", segments.GetSegments)
		protected.GET("/clusters", segments.GetClusters)
		protected.GET("/cache/stats", segments.GetCacheStats)
	}

	return router
}
