package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/types"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, log *logger.Logger, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, ErrorEnvelope{
			Error: APIError{
				Message: apiErr.Err.Error(),
				Code:    apiErr.Code,
			},
		})
		return
	}
	log.Error("unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorEnvelope{
		Error: APIError{
			Message: "internal server error",
			Code:    "internal",
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func queryInt(c *gin.Context, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}

type UploadJSON struct {
	ID           string     `json:"id"`
	SourceType   string     `json:"source_type"`
	OriginalName string     `json:"original_name,omitempty"`
	MimeType     string     `json:"mime_type,omitempty"`
	SizeBytes    int64      `json:"size_bytes"`
	SourceURL    string     `json:"source_url,omitempty"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

type ContentBlockJSON struct {
	ID                 string          `json:"id"`
	UploadID           string          `json:"upload_id"`
	Kind               string          `json:"kind"`
	Content            string          `json:"content"`
	ConfidenceScore    float64         `json:"confidence_score"`
	SuggestedAssetType string          `json:"suggested_asset_type,omitempty"`
	FinalAssetType     string          `json:"final_asset_type,omitempty"`
	MappingApproved    bool            `json:"mapping_approved"`
	Position           int             `json:"position"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
}

func NewUploadJSON(u *types.Upload) UploadJSON {
	return UploadJSON{
		ID:           u.ID.String(),
		SourceType:   u.SourceType,
		OriginalName: u.OriginalName,
		MimeType:     u.MimeType,
		SizeBytes:    u.SizeBytes,
		SourceURL:    u.SourceURL,
		Title:        u.Title,
		Description:  u.Description,
		Status:       u.Status,
		ErrorMessage: u.ErrorMessage,
		CreatedAt:    u.CreatedAt,
		ProcessedAt:  u.ProcessedAt,
	}
}

func NewContentBlockJSON(b *types.ContentBlock) ContentBlockJSON {
	out := ContentBlockJSON{
		ID:                 b.ID.String(),
		UploadID:           b.UploadID.String(),
		Kind:               b.Kind,
		Content:            b.Content,
		ConfidenceScore:    b.ConfidenceScore,
		SuggestedAssetType: b.SuggestedAssetType,
		FinalAssetType:     b.FinalAssetType,
		MappingApproved:    b.MappingApproved,
		Position:           b.Position,
	}
	if len(b.Metadata) > 0 {
		out.Metadata = json.RawMessage(b.Metadata)
	}
	return out
}

func NewContentBlockListJSON(blocks []*types.ContentBlock) []ContentBlockJSON {
	out := make([]ContentBlockJSON, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, NewContentBlockJSON(b))
	}
	return out
}
