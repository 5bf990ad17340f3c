package types

import (
	"time"

	"github.com/google/uuid"
)

// Upload statuses. Transitions form the directed path
// processing -> completed -> mapped, or processing -> failed.
const (
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
	UploadStatusMapped     = "mapped"
)

// Upload source kinds.
const (
	SourceTypeFile = "file"
	SourceTypeURL  = "url"
)

type Upload struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SourceType   string `gorm:"column:source_type;not null" json:"source_type"`
	OriginalName string `gorm:"column:original_name" json:"original_name"`
	MimeType     string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64  `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey   string `gorm:"column:storage_key" json:"storage_key"`
	SourceURL    string `gorm:"column:source_url" json:"source_url"`

	Title       string `gorm:"column:title" json:"title"`
	Description string `gorm:"column:description" json:"description"`

	Status       string `gorm:"column:status;not null;default:'processing';index" json:"status"`
	ErrorMessage string `gorm:"column:error_message" json:"error_message"`

	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (Upload) TableName() string { return "upload" }

// AllowedFromStatuses returns the statuses an upload may be in for a
// transition into to. An empty result means to is never a legal target
// (processing is entry-only; re-entry is disallowed).
func AllowedFromStatuses(to string) []string {
	switch to {
	case UploadStatusCompleted, UploadStatusFailed:
		return []string{UploadStatusProcessing}
	case UploadStatusMapped:
		return []string{UploadStatusCompleted}
	default:
		return nil
	}
}

func IsValidUploadStatus(s string) bool {
	switch s {
	case UploadStatusProcessing, UploadStatusCompleted, UploadStatusFailed, UploadStatusMapped:
		return true
	}
	return false
}
