package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"autotrader/internal/profile"
	"autotrader/internal/store"
)

type WatchlistHandler struct {
	Store *store.Store
}

func (h *WatchlistHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/watchlists")
	g.GET("", h.list)
	g.POST("", h.upsert)
	g.DELETE("/:id", h.delete)
}

func (h *WatchlistHandler) list(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	items := h.Store.Watchlists()
	Ok(c, items, map[string]any{"total": len(items)})
}

type watchlistRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
}

func (h *WatchlistHandler) upsert(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	var w profile.Watchlist
	if strings.TrimSpace(req.ID) == "" {
		w = profile.NewWatchlist(req.Name, req.Addresses)
	} else {
		w = profile.Watchlist{ID: req.ID, Name: req.Name, Addresses: req.Addresses}
	}
	if err := w.Validate(); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	h.Store.UpsertWatchlist(w)
	Ok(c, w, nil)
}

func (h *WatchlistHandler) delete(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	id := c.Param("id")
	if err := h.Store.RemoveWatchlist(id); err != nil {
		Error(c, http.StatusNotFound, "watchlist not found", nil)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}
