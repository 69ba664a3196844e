package api

import (
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/api/handlers"
	"github.com/andresuchdata/stockcast/backend-go/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Forecasts     handlers.Forecaster
	Optimizer     handlers.Optimizer
	Anomalies     handlers.AnomalyDetector
	Insights      handlers.InsightGenerator
	Models        handlers.ModelRegistry
	BatchMaxItems int
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Forecasts != nil && services.Optimizer != nil && services.Anomalies != nil && services.Insights != nil {
			h := handlers.NewForecastHandler(services.Forecasts, services.Optimizer, services.Anomalies, services.Insights, services.BatchMaxItems)
			productGroup := apiGroup.Group("/products/:id")
			{
				productGroup.GET("/forecast", h.GetForecast)
				productGroup.DELETE("/forecast/cache", h.InvalidateForecast)
				productGroup.GET("/optimization", h.GetOptimization)
				productGroup.GET("/anomalies", h.GetAnomalies)
				productGroup.GET("/insights", h.GetInsights)
			}
			apiGroup.POST("/forecasts/batch", h.ForecastBatch)
			apiGroup.POST("/optimizations/batch", h.OptimizeBatch)
		}

		if services.Models != nil {
			modelHandler := handlers.NewModelHandler(services.Models)
			modelGroup := apiGroup.Group("/models")
			{
				modelGroup.GET("", modelHandler.ListModels)
				modelGroup.POST("/:category/persist", modelHandler.PersistModel)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
