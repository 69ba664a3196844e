package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubForecaster struct {
	lastHorizon int
	invalidated []int64
}

func (s *stubForecaster) Forecast(_ context.Context, productID int64, horizon int) (*domain.ForecastResult, error) {
	s.lastHorizon = horizon
	switch {
	case productID == 404:
		return nil, domain.ProductNotFound(productID)
	case horizon > 365 || horizon < 0:
		return nil, domain.ErrInvalidHorizon
	case productID == 500:
		return nil, errors.New("boom")
	}
	return &domain.ForecastResult{ProductID: productID, ModelType: domain.ModelStatistical}, nil
}

func (s *stubForecaster) ForecastBatch(_ context.Context, ids []int64, _ int) (domain.BatchResult[domain.ForecastResult], error) {
	out := domain.BatchResult[domain.ForecastResult]{Results: []domain.ForecastResult{}, Errors: []domain.BatchError{}}
	for _, id := range ids {
		out.Results = append(out.Results, domain.ForecastResult{ProductID: id})
	}
	return out, nil
}

func (s *stubForecaster) InvalidateForecast(_ context.Context, productID int64) error {
	s.invalidated = append(s.invalidated, productID)
	return nil
}

type stubOptimizer struct{}

func (stubOptimizer) Optimize(_ context.Context, productID int64) (*domain.OptimizationResult, error) {
	return &domain.OptimizationResult{ProductID: productID, RiskLevel: domain.RiskLow}, nil
}

func (stubOptimizer) OptimizeBatch(_ context.Context, ids []int64) domain.BatchResult[domain.OptimizationResult] {
	return domain.BatchResult[domain.OptimizationResult]{
		Results: []domain.OptimizationResult{},
		Errors:  []domain.BatchError{{ProductID: ids[0], Error: "product not found"}},
	}
}

type stubAnomalies struct{}

func (stubAnomalies) Detect(context.Context, int64) ([]domain.AnomalyRecord, error) {
	return []domain.AnomalyRecord{{AnomalyScore: 3.2, Severity: domain.SeverityHigh}}, nil
}

type stubInsights struct{}

func (stubInsights) Generate(_ context.Context, productID int64) ([]domain.Insight, error) {
	return []domain.Insight{{ProductID: productID, Title: "Stockout risk", Priority: domain.PriorityCritical}}, nil
}

type stubRegistry struct{}

func (stubRegistry) Status() []model.HandleStatus {
	return []model.HandleStatus{{CategoryID: 1, Status: model.StatusTrained}}
}

func (stubRegistry) Persist(_ context.Context, categoryID int64) error {
	if categoryID == 9 {
		return model.ErrModelNotFound
	}
	return nil
}

func newTestRouter(f *stubForecaster) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewForecastHandler(f, stubOptimizer{}, stubAnomalies{}, stubInsights{}, 3)
	m := NewModelHandler(stubRegistry{})

	r.GET("/products/:id/forecast", h.GetForecast)
	r.DELETE("/products/:id/forecast/cache", h.InvalidateForecast)
	r.GET("/products/:id/optimization", h.GetOptimization)
	r.GET("/products/:id/anomalies", h.GetAnomalies)
	r.GET("/products/:id/insights", h.GetInsights)
	r.POST("/forecasts/batch", h.ForecastBatch)
	r.POST("/optimizations/batch", h.OptimizeBatch)
	r.GET("/models", m.ListModels)
	r.POST("/models/:category/persist", m.PersistModel)
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetForecast(t *testing.T) {
	f := &stubForecaster{}
	r := newTestRouter(f)

	w := do(r, http.MethodGet, "/products/7/forecast?days=14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 14, f.lastHorizon)

	var got domain.ForecastResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.ProductID)
	assert.Equal(t, domain.ModelStatistical, got.ModelType)

	do(r, http.MethodGet, "/products/7/forecast", nil)
	assert.Equal(t, 0, f.lastHorizon)
}

func TestGetForecast_ErrorMapping(t *testing.T) {
	r := newTestRouter(&stubForecaster{})

	cases := map[string]int{
		"/products/404/forecast":        http.StatusNotFound,
		"/products/7/forecast?days=400": http.StatusBadRequest,
		"/products/7/forecast?days=abc": http.StatusBadRequest,
		"/products/abc/forecast":        http.StatusBadRequest,
		"/products/500/forecast":        http.StatusInternalServerError,
		"/products/-1/forecast?days=7":  http.StatusBadRequest,
	}
	for path, want := range cases {
		w := do(r, http.MethodGet, path, nil)
		assert.Equal(t, want, w.Code, path)
	}
}

func TestInvalidateForecast(t *testing.T) {
	f := &stubForecaster{}
	r := newTestRouter(f)

	w := do(r, http.MethodDelete, "/products/12/forecast/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{12}, f.invalidated)
}

func TestProductEndpoints(t *testing.T) {
	r := newTestRouter(&stubForecaster{})

	w := do(r, http.MethodGet, "/products/3/optimization", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"risk_level":"LOW"`)

	w = do(r, http.MethodGet, "/products/3/anomalies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"severity":"HIGH"`)

	w = do(r, http.MethodGet, "/products/3/insights", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Stockout risk"`)
}

func TestBatchEndpoints(t *testing.T) {
	r := newTestRouter(&stubForecaster{})

	w := do(r, http.MethodPost, "/forecasts/batch", batchRequest{ProductIDs: []int64{1, 2}, Days: 7})
	require.Equal(t, http.StatusOK, w.Code)
	var forecasts domain.BatchResult[domain.ForecastResult]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &forecasts))
	assert.Len(t, forecasts.Results, 2)

	w = do(r, http.MethodPost, "/optimizations/batch", batchRequest{ProductIDs: []int64{5}})
	require.Equal(t, http.StatusOK, w.Code)
	var optimized domain.BatchResult[domain.OptimizationResult]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &optimized))
	require.Len(t, optimized.Errors, 1)
	assert.Equal(t, int64(5), optimized.Errors[0].ProductID)

	w = do(r, http.MethodPost, "/forecasts/batch", batchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/forecasts/batch", batchRequest{ProductIDs: []int64{1, 2, 3, 4}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelEndpoints(t *testing.T) {
	r := newTestRouter(&stubForecaster{})

	w := do(r, http.MethodGet, "/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"trained"`)

	w = do(r, http.MethodPost, "/models/1/persist", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/models/9/persist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
