package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Forecaster interface {
	Forecast(ctx context.Context, productID int64, horizon int) (*domain.ForecastResult, error)
	ForecastBatch(ctx context.Context, productIDs []int64, horizon int) (domain.BatchResult[domain.ForecastResult], error)
	InvalidateForecast(ctx context.Context, productID int64) error
}

type Optimizer interface {
	Optimize(ctx context.Context, productID int64) (*domain.OptimizationResult, error)
	OptimizeBatch(ctx context.Context, productIDs []int64) domain.BatchResult[domain.OptimizationResult]
}

type AnomalyDetector interface {
	Detect(ctx context.Context, productID int64) ([]domain.AnomalyRecord, error)
}

type InsightGenerator interface {
	Generate(ctx context.Context, productID int64) ([]domain.Insight, error)
}

type ForecastHandler struct {
	forecasts     Forecaster
	optimizer     Optimizer
	anomalies     AnomalyDetector
	insights      InsightGenerator
	batchMaxItems int
}

func NewForecastHandler(f Forecaster, o Optimizer, a AnomalyDetector, i InsightGenerator, batchMaxItems int) *ForecastHandler {
	if batchMaxItems <= 0 {
		batchMaxItems = 500
	}
	return &ForecastHandler{
		forecasts:     f,
		optimizer:     o,
		anomalies:     a,
		insights:      i,
		batchMaxItems: batchMaxItems,
	}
}

type batchRequest struct {
	ProductIDs []int64 `json:"product_ids"`
	Days       int     `json:"days"`
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(param)), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}

// writeError maps engine errors onto HTTP statuses
func writeError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, model.ErrModelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidHorizon):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": message, "details": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

func (h *ForecastHandler) bindBatch(c *gin.Context) (batchRequest, bool) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return req, false
	}
	if len(req.ProductIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_ids must not be empty"})
		return req, false
	}
	if len(req.ProductIDs) > h.batchMaxItems {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many product_ids", "max": h.batchMaxItems})
		return req, false
	}
	return req, true
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	days := 0
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return
		}
		days = v
	}

	result, err := h.forecasts.Forecast(c.Request.Context(), id, days)
	if err != nil {
		writeError(c, "failed to compute forecast", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ForecastHandler) InvalidateForecast(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.forecasts.InvalidateForecast(c.Request.Context(), id); err != nil {
		writeError(c, "failed to invalidate forecast cache", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ForecastHandler) GetOptimization(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.optimizer.Optimize(c.Request.Context(), id)
	if err != nil {
		writeError(c, "failed to optimize stock", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ForecastHandler) GetAnomalies(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	anomalies, err := h.anomalies.Detect(c.Request.Context(), id)
	if err != nil {
		writeError(c, "failed to detect anomalies", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_id": id, "anomalies": anomalies})
}

func (h *ForecastHandler) GetInsights(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	insights, err := h.insights.Generate(c.Request.Context(), id)
	if err != nil {
		writeError(c, "failed to generate insights", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_id": id, "insights": insights})
}

func (h *ForecastHandler) ForecastBatch(c *gin.Context) {
	req, ok := h.bindBatch(c)
	if !ok {
		return
	}

	out, err := h.forecasts.ForecastBatch(c.Request.Context(), req.ProductIDs, req.Days)
	if err != nil {
		writeError(c, "failed to run batch forecast", err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *ForecastHandler) OptimizeBatch(c *gin.Context) {
	req, ok := h.bindBatch(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.optimizer.OptimizeBatch(c.Request.Context(), req.ProductIDs))
}
