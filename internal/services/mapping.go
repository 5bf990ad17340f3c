package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/types"
)

// MappingDecision assigns one content block to a playbook asset type. The
// asset type string is treated as opaque; the taxonomy is owned by the
// analysis side.
type MappingDecision struct {
	BlockID   uuid.UUID
	AssetType string
}

// MappingService applies a human's approval of block-to-asset mappings.
// The whole approval is one transaction: either every decision lands and
// the upload advances to mapped, or nothing changes.
type MappingService interface {
	ApproveMapping(ctx context.Context, uploadID uuid.UUID, decisions []MappingDecision) (*types.Upload, error)
}

type mappingService struct {
	log     *logger.Logger
	db      *gorm.DB
	uploads repos.UploadRepo
	blocks  repos.ContentBlockRepo
}

func NewMappingService(log *logger.Logger, db *gorm.DB, uploads repos.UploadRepo, blocks repos.ContentBlockRepo) MappingService {
	return &mappingService{
		log:     log.With("service", "MappingService"),
		db:      db,
		uploads: uploads,
		blocks:  blocks,
	}
}

func (s *mappingService) ApproveMapping(ctx context.Context, uploadID uuid.UUID, decisions []MappingDecision) (*types.Upload, error) {
	var upload *types.Upload
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the upload row so concurrent approvals of the same upload
		// serialize on the status check.
		var err error
		upload, err = s.uploads.GetByIDForUpdate(ctx, tx, uploadID)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				return apierr.NotFound(fmt.Errorf("upload %s not found", uploadID))
			}
			return apierr.StorageFailed(fmt.Errorf("failed to load upload: %w", err))
		}
		if upload.Status != types.UploadStatusCompleted {
			return apierr.InvalidState(fmt.Errorf("upload %s is %s, mapping requires completed", uploadID, upload.Status))
		}

		blockIDs := make([]uuid.UUID, 0, len(decisions))
		seen := make(map[uuid.UUID]struct{}, len(decisions))
		for _, d := range decisions {
			if _, ok := seen[d.BlockID]; ok {
				continue
			}
			seen[d.BlockID] = struct{}{}
			blockIDs = append(blockIDs, d.BlockID)
		}

		if len(blockIDs) > 0 {
			owned, err := s.blocks.GetByIDs(ctx, tx, blockIDs)
			if err != nil {
				return apierr.StorageFailed(fmt.Errorf("failed to load blocks: %w", err))
			}
			ownedByUpload := make(map[uuid.UUID]struct{}, len(owned))
			for _, b := range owned {
				if b.UploadID == uploadID {
					ownedByUpload[b.ID] = struct{}{}
				}
			}
			for _, id := range blockIDs {
				if _, ok := ownedByUpload[id]; !ok {
					return apierr.UnknownBlock(fmt.Errorf("block %s does not belong to upload %s", id, uploadID))
				}
			}
		}

		for _, d := range decisions {
			if err := s.blocks.SetFinalAssetType(ctx, tx, d.BlockID, d.AssetType); err != nil {
				return apierr.StorageFailed(fmt.Errorf("failed to apply mapping for block %s: %w", d.BlockID, err))
			}
		}

		if err := s.uploads.TransitionStatus(ctx, tx, uploadID, types.UploadStatusMapped, nil); err != nil {
			if errors.Is(err, repos.ErrInvalidTransition) {
				return apierr.InvalidState(fmt.Errorf("upload %s is no longer mappable", uploadID))
			}
			return apierr.StorageFailed(fmt.Errorf("failed to transition upload to mapped: %w", err))
		}
		return nil
	})
	if txErr != nil {
		var ae *apierr.Error
		if errors.As(txErr, &ae) {
			return nil, txErr
		}
		return nil, apierr.StorageFailed(fmt.Errorf("failed to commit mapping approval: %w", txErr))
	}

	s.log.Info("mapping approved", "upload_id", uploadID, "decisions", len(decisions))
	upload.Status = types.UploadStatusMapped
	return upload, nil
}
