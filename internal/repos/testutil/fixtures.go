package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playbookos/playbook-backend/internal/types"
)

func SeedUpload(tb testing.TB, ctx context.Context, tx *gorm.DB, status string) *types.Upload {
	tb.Helper()
	u := &types.Upload{
		ID:           uuid.New(),
		SourceType:   types.SourceTypeFile,
		OriginalName: "playbook.md",
		MimeType:     "text/markdown",
		SizeBytes:    64,
		StorageKey:   "uploads/test/playbook.md",
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed upload: %v", err)
	}
	return u
}

func SeedContentBlock(tb testing.TB, ctx context.Context, tx *gorm.DB, uploadID uuid.UUID, position int) *types.ContentBlock {
	tb.Helper()
	b := &types.ContentBlock{
		ID:                 uuid.New(),
		UploadID:           uploadID,
		Kind:               "paragraph",
		Content:            "block content",
		ConfidenceScore:    0.8,
		SuggestedAssetType: "strategy",
		Position:           position,
		CreatedAt:          time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed content block: %v", err)
	}
	return b
}
