package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"autotrader/internal/repository"
)

type DispatchHandler struct {
	Repo repository.Repository
}

func (h *DispatchHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/dispatches", h.list)
}

func (h *DispatchHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListDispatchesParams{}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Limit = n
		}
	}
	if v := strings.TrimSpace(c.Query("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Offset = n
		}
	}
	if v := strings.TrimSpace(c.Query("profile_id")); v != "" {
		params.ProfileID = &v
	}
	if v := strings.TrimSpace(c.Query("family")); v != "" {
		params.Family = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		params.Status = &v
	}
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid since timestamp", nil)
			return
		}
		params.Since = &t
	}
	params.OrderBy = strings.TrimSpace(c.Query("order_by"))
	if v := strings.TrimSpace(c.Query("asc")); v != "" {
		asc := v == "true" || v == "1"
		params.Asc = &asc
	}
	items, err := h.Repo.ListDispatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountDispatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total})
}
