package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autotrader/internal/engine"
	"autotrader/internal/event"
)

// PreviewHandler runs one synthetic event through the evaluation path without
// dispatching or mutating any profile state.
type PreviewHandler struct {
	Engine *engine.Engine
}

func (h *PreviewHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/preview", h.preview)
}

func (h *PreviewHandler) preview(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var ev event.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		Error(c, http.StatusBadRequest, "invalid event body", nil)
		return
	}
	if _, ok := event.ParseType(string(ev.Type)); !ok {
		Error(c, http.StatusBadRequest, "invalid event type", nil)
		return
	}
	results := h.Engine.Preview(ev)
	Ok(c, results, map[string]any{"total": len(results)})
}
