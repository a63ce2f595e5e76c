package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autotrader/internal/event"
	"autotrader/internal/profile"
	"autotrader/internal/store"
)

type ProfileHandler struct {
	Store *store.Store
}

func (h *ProfileHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/profiles/:family")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/toggle", h.toggle)
	g.POST("/:id/duplicate", h.duplicate)
}

func familyParam(c *gin.Context) (profile.Family, bool) {
	f, ok := profile.ParseFamily(c.Param("family"))
	if !ok {
		Error(c, http.StatusBadRequest, "invalid family", nil)
		return "", false
	}
	return f, true
}

func (h *ProfileHandler) list(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family, ok := familyParam(c)
	if !ok {
		return
	}
	items := h.Store.List(family)
	Ok(c, items, map[string]any{"total": len(items)})
}

func (h *ProfileHandler) get(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family, ok := familyParam(c)
	if !ok {
		return
	}
	item, err := h.Store.Get(family, c.Param("id"))
	if err != nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	Ok(c, item, nil)
}

// profileRequest carries the editable fields. Pointers distinguish "absent"
// from zero on update; execution bookkeeping is never editable here.
type profileRequest struct {
	Name           *string              `json:"name"`
	Description    *string              `json:"description"`
	Conditions     *[]profile.Condition `json:"conditions"`
	ConditionLogic *string              `json:"condition_logic"`
	Actions        *[]profile.Action    `json:"actions"`
	Cooldown       *int64               `json:"cooldown"`
	CooldownUnit   *string              `json:"cooldown_unit"`
	MaxExecutions  *int                 `json:"max_executions"`
	EventTypes     *[]string            `json:"event_types"`
	WatchWallets   *[]string            `json:"watch_wallets"`
	MintFilter     *[]string            `json:"mint_filter"`
	TargetWallets  *[]string            `json:"target_wallets"`
}

func (req profileRequest) apply(p *profile.Profile) error {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Conditions != nil {
		p.Conditions = *req.Conditions
		for i := range p.Conditions {
			if p.Conditions[i].ID == "" {
				p.Conditions[i].ID = uuid.NewString()
			}
		}
	}
	if req.ConditionLogic != nil {
		p.ConditionLogic = profile.Logic(strings.ToUpper(strings.TrimSpace(*req.ConditionLogic)))
	}
	if req.Actions != nil {
		p.Actions = *req.Actions
		for i := range p.Actions {
			if p.Actions[i].ID == "" {
				p.Actions[i].ID = uuid.NewString()
			}
		}
	}
	if req.Cooldown != nil {
		p.Cooldown = *req.Cooldown
	}
	if req.CooldownUnit != nil {
		p.CooldownUnit = profile.CooldownUnit(strings.TrimSpace(*req.CooldownUnit))
	}
	if req.MaxExecutions != nil {
		p.MaxExecutions = *req.MaxExecutions
	}
	if req.EventTypes != nil {
		types := make([]event.Type, 0, len(*req.EventTypes))
		for _, raw := range *req.EventTypes {
			t, ok := event.ParseType(raw)
			if !ok {
				return errors.New("invalid event type " + raw)
			}
			types = append(types, t)
		}
		p.EventTypes = types
	}
	if req.WatchWallets != nil {
		p.WatchWallets = *req.WatchWallets
	}
	if req.MintFilter != nil {
		p.MintFilter = *req.MintFilter
	}
	if req.TargetWallets != nil {
		p.TargetWallets = *req.TargetWallets
	}
	return p.Validate()
}

func (h *ProfileHandler) create(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family, ok := familyParam(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	p := profile.New(family, name)
	if err := req.apply(p); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Store.Add(p); err != nil {
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	}
	Ok(c, *p, nil)
}

func (h *ProfileHandler) update(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family, ok := familyParam(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Store.Update(family, c.Param("id"), req.apply)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(c, http.StatusNotFound, "profile not found", nil)
			return
		}
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ProfileHandler) delete(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family, ok := familyParam(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.Store.Remove(family, id); err != nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}

func (h *ProfileHandler) toggle(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family, ok := familyParam(c)
	if !ok {
		return
	}
	item, err := h.Store.ToggleActive(family, c.Param("id"))
	if err != nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ProfileHandler) duplicate(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family, ok := familyParam(c)
	if !ok {
		return
	}
	item, err := h.Store.Duplicate(family, c.Param("id"))
	if err != nil {
		Error(c, http.StatusNotFound, "profile not found", nil)
		return
	}
	Ok(c, item, nil)
}
