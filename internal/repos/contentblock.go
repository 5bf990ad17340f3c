package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/types"
)

type ContentBlockRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, blocks []*types.ContentBlock) error
	GetByUploadID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) ([]*types.ContentBlock, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, blockIDs []uuid.UUID) ([]*types.ContentBlock, error)
	CountByUploadID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) (int64, error)
	// SetFinalAssetType stamps the human-approved asset type on one block and
	// marks the mapping approved. ErrNotFound when the block does not exist.
	SetFinalAssetType(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, assetType string) error
	DeleteByUploadID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) error
}

type contentBlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentBlockRepo(db *gorm.DB, baseLog *logger.Logger) ContentBlockRepo {
	repoLog := baseLog.With("repo", "ContentBlockRepo")
	return &contentBlockRepo{db: db, log: repoLog}
}

func (r *contentBlockRepo) CreateBatch(ctx context.Context, tx *gorm.DB, blocks []*types.ContentBlock) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(blocks) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(&blocks).Error; err != nil {
		return err
	}
	return nil
}

func (r *contentBlockRepo) GetByUploadID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) ([]*types.ContentBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentBlock
	if err := transaction.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentBlockRepo) GetByIDs(ctx context.Context, tx *gorm.DB, blockIDs []uuid.UUID) ([]*types.ContentBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentBlock
	if len(blockIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", blockIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentBlockRepo) CountByUploadID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContentBlock{}).
		Where("upload_id = ?", uploadID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *contentBlockRepo) SetFinalAssetType(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, assetType string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.ContentBlock{}).
		Where("id = ?", blockID).
		Updates(map[string]any{
			"final_asset_type": assetType,
			"mapping_approved": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contentBlockRepo) DeleteByUploadID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Delete(&types.ContentBlock{}).Error; err != nil {
		return err
	}
	return nil
}
