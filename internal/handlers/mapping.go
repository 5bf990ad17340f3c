package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/services"
)

type MappingHandler struct {
	log     *logger.Logger
	mapping services.MappingService
	detail  services.DetailService
}

func NewMappingHandler(log *logger.Logger, mapping services.MappingService, detail services.DetailService) *MappingHandler {
	return &MappingHandler{
		log:     log.With("handler", "MappingHandler"),
		mapping: mapping,
		detail:  detail,
	}
}

type mappingDecisionRequest struct {
	BlockID   string `json:"block_id"`
	AssetType string `json:"asset_type"`
}

type approveMappingRequest struct {
	Decisions []mappingDecisionRequest `json:"decisions"`
}

type approveMappingResponse struct {
	Success  bool   `json:"success"`
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
}

func (h *MappingHandler) ApproveMapping(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.NotFound(fmt.Errorf("invalid upload id")))
		return
	}
	var req approveMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.InvalidSource(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	decisions := make([]services.MappingDecision, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		blockID, err := uuid.Parse(d.BlockID)
		if err != nil {
			RespondError(c, h.log, apierr.UnknownBlock(fmt.Errorf("invalid block id %q", d.BlockID)))
			return
		}
		if d.AssetType == "" {
			RespondError(c, h.log, apierr.InvalidSource(fmt.Errorf("asset_type is required for block %s", blockID)))
			return
		}
		decisions = append(decisions, services.MappingDecision{
			BlockID:   blockID,
			AssetType: d.AssetType,
		})
	}

	upload, err := h.mapping.ApproveMapping(c.Request.Context(), uploadID, decisions)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, approveMappingResponse{
		Success:  true,
		UploadID: upload.ID.String(),
		Status:   upload.Status,
	})
}

type blockListResponse struct {
	Blocks []ContentBlockJSON `json:"blocks"`
}

func (h *MappingHandler) GetBlocks(c *gin.Context) {
	uploadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.NotFound(fmt.Errorf("invalid upload id")))
		return
	}
	blocks, err := h.detail.Blocks(c.Request.Context(), uploadID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, blockListResponse{Blocks: NewContentBlockListJSON(blocks)})
}
