package v1

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/a2alab/relay/internal/domain"
)

type agentView struct {
	Label   string            `json:"label"`
	BaseURL string            `json:"base_url"`
	Card    *domain.AgentCard `json:"card,omitempty"`
}

// ListAgents lists the configured endpoints and any resolved cards.
// GET /v1/agents
func (h *Handler) ListAgents(c echo.Context) error {
	endpoints := h.service.Endpoints()

	views := make([]agentView, 0, len(endpoints))
	for label, ep := range endpoints {
		views = append(views, agentView{Label: label, BaseURL: ep.BaseURL, Card: ep.Card})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Label < views[j].Label })

	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": views,
	})
}
