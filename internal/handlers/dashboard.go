package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/services"
)

type DashboardHandler struct {
	log       *logger.Logger
	dashboard services.DashboardService
}

func NewDashboardHandler(log *logger.Logger, dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		log:       log.With("handler", "DashboardHandler"),
		dashboard: dashboard,
	}
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, stats)
}

type recentUploadsResponse struct {
	Uploads []UploadJSON `json:"uploads"`
}

func (h *DashboardHandler) GetRecent(c *gin.Context) {
	uploads, err := h.dashboard.Recent(c.Request.Context())
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	out := make([]UploadJSON, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, NewUploadJSON(u))
	}
	RespondOK(c, recentUploadsResponse{Uploads: out})
}
