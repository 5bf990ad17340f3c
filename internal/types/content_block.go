package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Playbook asset taxonomy. Owned by the extraction collaborator; the
// pipeline stores these strings opaquely. Listed here for callers and tests.
var PlaybookAssetTypes = []string{
	"goal", "strategy", "timeline", "faq", "task",
	"metric", "resource", "example", "template", "checklist",
}

type ContentBlock struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UploadID uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`
	Upload   *Upload   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UploadID;references:ID" json:"upload,omitempty"`

	Kind            string  `gorm:"column:kind;not null" json:"kind"`
	Content         string  `gorm:"column:content;not null" json:"content"`
	ConfidenceScore float64 `gorm:"column:confidence_score;not null;default:0.8" json:"confidence_score"`

	SuggestedAssetType string `gorm:"column:suggested_asset_type" json:"suggested_asset_type"`
	FinalAssetType     string `gorm:"column:final_asset_type" json:"final_asset_type"`
	MappingApproved    bool   `gorm:"column:mapping_approved;not null;default:false" json:"mapping_approved"`

	Position int            `gorm:"column:position;not null" json:"position"`
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ContentBlock) TableName() string { return "content_block" }
