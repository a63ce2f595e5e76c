package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autotrader/internal/store"
)

type SnapshotHandler struct {
	Store *store.Store
}

func (h *SnapshotHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/snapshot")
	g.GET("/export", h.export)
	g.POST("/import", h.importSnapshot)
}

func (h *SnapshotHandler) export(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	Ok(c, h.Store.Export(), nil)
}

func (h *SnapshotHandler) importSnapshot(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	var snap store.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		Error(c, http.StatusBadRequest, "invalid snapshot body", nil)
		return
	}
	res := h.Store.Import(snap)
	Ok(c, res, nil)
}
