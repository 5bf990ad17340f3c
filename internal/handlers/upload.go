package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/services"
)

type UploadHandler struct {
	log       *logger.Logger
	ingestion services.IngestionService
	detail    services.DetailService
}

func NewUploadHandler(log *logger.Logger, ingestion services.IngestionService, detail services.DetailService) *UploadHandler {
	return &UploadHandler{
		log:       log.With("handler", "UploadHandler"),
		ingestion: ingestion,
		detail:    detail,
	}
}

type ingestionResponse struct {
	Success         bool   `json:"success"`
	UploadID        string `json:"upload_id"`
	Status          string `json:"status"`
	BlocksExtracted int    `json:"blocks_extracted"`
	Message         string `json:"message"`
}

func (h *UploadHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, h.log, apierr.InvalidSource(fmt.Errorf("file field is required")))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, h.log, apierr.InvalidSource(fmt.Errorf("failed to open uploaded file: %w", err)))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, h.log, apierr.InvalidSource(fmt.Errorf("failed to read uploaded file: %w", err)))
		return
	}

	result, err := h.ingestion.IngestFile(
		c.Request.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		data,
		c.PostForm("title"),
		c.PostForm("description"),
	)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	respondIngestion(c, result)
}

type importURLRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *UploadHandler) ImportURL(c *gin.Context) {
	var req importURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.InvalidSource(fmt.Errorf("invalid request body: %w", err)))
		return
	}
	result, err := h.ingestion.IngestURL(c.Request.Context(), req.URL, req.Title, req.Description)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	respondIngestion(c, result)
}

func respondIngestion(c *gin.Context, result *services.IngestionResult) {
	c.JSON(http.StatusOK, ingestionResponse{
		Success:         true,
		UploadID:        result.UploadID.String(),
		Status:          result.Status,
		BlocksExtracted: result.BlocksExtracted,
		Message:         result.Message,
	})
}

type uploadDetailResponse struct {
	Upload UploadJSON         `json:"upload"`
	Blocks []ContentBlockJSON `json:"blocks"`
}

func (h *UploadHandler) GetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.NotFound(fmt.Errorf("invalid upload id")))
		return
	}
	detail, err := h.detail.Describe(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, uploadDetailResponse{
		Upload: NewUploadJSON(detail.Upload),
		Blocks: NewContentBlockListJSON(detail.Blocks),
	})
}

func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.NotFound(fmt.Errorf("invalid upload id")))
		return
	}
	if err := h.ingestion.DeleteUpload(c.Request.Context(), id); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

type uploadListResponse struct {
	Items    []UploadJSON `json:"items"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

func (h *UploadHandler) ListUploads(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	pageResult, err := h.detail.List(c.Request.Context(), page, pageSize, c.Query("status"))
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	items := make([]UploadJSON, 0, len(pageResult.Items))
	for _, u := range pageResult.Items {
		items = append(items, NewUploadJSON(u))
	}
	RespondOK(c, uploadListResponse{
		Items:    items,
		Total:    pageResult.Total,
		Page:     pageResult.Page,
		PageSize: pageResult.PageSize,
	})
}
