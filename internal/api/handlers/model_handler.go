package handlers

import (
	"context"
	"net/http"

	"github.com/andresuchdata/stockcast/backend-go/internal/model"
	"github.com/gin-gonic/gin"
)

// ModelRegistry is the part of the registry exposed over HTTP
type ModelRegistry interface {
	Status() []model.HandleStatus
	Persist(ctx context.Context, categoryID int64) error
}

type ModelHandler struct {
	registry ModelRegistry
}

func NewModelHandler(registry ModelRegistry) *ModelHandler {
	return &ModelHandler{registry: registry}
}

func (h *ModelHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.registry.Status()})
}

func (h *ModelHandler) PersistModel(c *gin.Context) {
	categoryID, ok := parseID(c, "category")
	if !ok {
		return
	}

	if err := h.registry.Persist(c.Request.Context(), categoryID); err != nil {
		writeError(c, "failed to persist model", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category_id": categoryID, "persisted": true})
}
