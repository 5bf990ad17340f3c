package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/types"
)

const defaultConfidenceScore = 0.8

// IngestionResult is what callers get back from an ingestion attempt. A
// failed extraction is still a result, not an error: the upload id exists
// and its status records the failure.
type IngestionResult struct {
	UploadID        uuid.UUID
	Status          string
	BlocksExtracted int
	Message         string
}

// IngestionService runs the pipeline: normalize the source, create the
// upload record, call the extraction provider once, and persist the
// outcome. Block insertion and the completed transition happen in one
// transaction so an upload is never completed with a partial block list.
type IngestionService interface {
	IngestFile(ctx context.Context, name, mimeType string, data []byte, title, description string) (*IngestionResult, error)
	IngestURL(ctx context.Context, rawURL, title, description string) (*IngestionResult, error)
	// DeleteUpload removes the upload, its blocks, and its stored bytes.
	DeleteUpload(ctx context.Context, uploadID uuid.UUID) error
}

type ingestionService struct {
	log       *logger.Logger
	db        *gorm.DB
	source    SourceService
	extractor ExtractionClient
	bucket    BucketService
	uploads   repos.UploadRepo
	blocks    repos.ContentBlockRepo
}

func NewIngestionService(
	log *logger.Logger,
	db *gorm.DB,
	source SourceService,
	extractor ExtractionClient,
	bucket BucketService,
	uploads repos.UploadRepo,
	blocks repos.ContentBlockRepo,
) IngestionService {
	return &ingestionService{
		log:       log.With("service", "IngestionService"),
		db:        db,
		source:    source,
		extractor: extractor,
		bucket:    bucket,
		uploads:   uploads,
		blocks:    blocks,
	}
}

func (s *ingestionService) IngestFile(ctx context.Context, name, mimeType string, data []byte, title, description string) (*IngestionResult, error) {
	req, err := s.source.NormalizeFile(ctx, name, mimeType, data, title, description)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, req)
}

func (s *ingestionService) IngestURL(ctx context.Context, rawURL, title, description string) (*IngestionResult, error) {
	req, err := s.source.NormalizeURL(ctx, rawURL, title, description)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, req)
}

func (s *ingestionService) ingest(ctx context.Context, req *IngestionRequest) (*IngestionResult, error) {
	upload := &types.Upload{
		ID:           uuid.New(),
		SourceType:   req.SourceType,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
		StorageKey:   req.StorageKey,
		SourceURL:    req.SourceURL,
		Title:        req.Title,
		Description:  req.Description,
		Status:       types.UploadStatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.uploads.Create(ctx, nil, upload); err != nil {
		return nil, apierr.StorageFailed(fmt.Errorf("failed to create upload record: %w", err))
	}

	extracted, err := s.extractor.Extract(ctx, ExtractionSource{
		SourceType:   req.SourceType,
		StorageKey:   req.StorageKey,
		SourceURL:    req.SourceURL,
		MimeType:     req.MimeType,
		OriginalName: req.OriginalName,
	})
	if err != nil {
		s.log.Error("extraction failed", "upload_id", upload.ID, "error", err)
		return s.settleFailed(ctx, upload.ID, fmt.Sprintf("extraction failed: %v", err)), nil
	}

	blocks := make([]*types.ContentBlock, 0, len(extracted))
	for i, eb := range extracted {
		block := &types.ContentBlock{
			ID:                 uuid.New(),
			UploadID:           upload.ID,
			Kind:               eb.Kind,
			Content:            eb.Content,
			ConfidenceScore:    resolveConfidence(eb.ConfidenceScore),
			SuggestedAssetType: eb.SuggestedAssetType,
			Position:           i,
			CreatedAt:          time.Now().UTC(),
		}
		if len(eb.Metadata) > 0 {
			raw, merr := json.Marshal(eb.Metadata)
			if merr != nil {
				s.log.Error("failed to encode block metadata", "upload_id", upload.ID, "position", i, "error", merr)
				return s.settleFailed(ctx, upload.ID, "failed to encode block metadata"), nil
			}
			block.Metadata = datatypes.JSON(raw)
		}
		blocks = append(blocks, block)
	}

	if err := s.persistCompleted(ctx, upload.ID, blocks); err != nil {
		s.log.Error("failed to persist extraction result", "upload_id", upload.ID, "error", err)
		return s.settleFailed(ctx, upload.ID, fmt.Sprintf("failed to persist extraction result: %v", err)), nil
	}

	s.log.Info("ingestion completed", "upload_id", upload.ID, "blocks", len(blocks))
	return &IngestionResult{
		UploadID:        upload.ID,
		Status:          types.UploadStatusCompleted,
		BlocksExtracted: len(blocks),
		Message:         fmt.Sprintf("extracted %d content blocks", len(blocks)),
	}, nil
}

// persistCompleted inserts all blocks and advances the upload to completed
// in a single transaction.
func (s *ingestionService) persistCompleted(ctx context.Context, uploadID uuid.UUID, blocks []*types.ContentBlock) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.blocks.CreateBatch(ctx, tx, blocks); err != nil {
			return fmt.Errorf("failed to insert content blocks: %w", err)
		}
		now := time.Now().UTC()
		if err := s.uploads.TransitionStatus(ctx, tx, uploadID, types.UploadStatusCompleted, map[string]any{"processed_at": &now}); err != nil {
			return fmt.Errorf("failed to transition upload to completed: %w", err)
		}
		return nil
	})
}

func (s *ingestionService) DeleteUpload(ctx context.Context, uploadID uuid.UUID) error {
	upload, err := s.uploads.GetByID(ctx, nil, uploadID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return apierr.NotFound(fmt.Errorf("upload %s not found", uploadID))
		}
		return apierr.StorageFailed(fmt.Errorf("failed to load upload: %w", err))
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.blocks.DeleteByUploadID(ctx, tx, uploadID); err != nil {
			return fmt.Errorf("failed to delete content blocks: %w", err)
		}
		if err := s.uploads.Delete(ctx, tx, uploadID); err != nil {
			return fmt.Errorf("failed to delete upload: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return apierr.StorageFailed(txErr)
	}

	// Best effort; the rows are already gone.
	if upload.StorageKey != "" {
		if err := s.bucket.DeleteFile(ctx, upload.StorageKey); err != nil {
			s.log.Warn("failed to delete stored bytes", "upload_id", uploadID, "key", upload.StorageKey, "error", err)
		}
	}

	s.log.Info("upload deleted", "upload_id", uploadID)
	return nil
}

func (s *ingestionService) settleFailed(ctx context.Context, uploadID uuid.UUID, message string) *IngestionResult {
	now := time.Now().UTC()
	if err := s.uploads.TransitionStatus(ctx, nil, uploadID, types.UploadStatusFailed, map[string]any{
		"error_message": message,
		"processed_at":  &now,
	}); err != nil {
		s.log.Error("failed to record upload failure", "upload_id", uploadID, "error", err)
	}
	return &IngestionResult{
		UploadID: uploadID,
		Status:   types.UploadStatusFailed,
		Message:  message,
	}
}

func resolveConfidence(score *float64) float64 {
	if score == nil {
		return defaultConfidenceScore
	}
	v := *score
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
