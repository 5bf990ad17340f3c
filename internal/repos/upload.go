package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/types"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidTransition is returned when a status update would leave the
// processing -> completed -> mapped / processing -> failed path.
var ErrInvalidTransition = errors.New("invalid status transition")

type UploadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, upload *types.Upload) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error)
	// GetByIDForUpdate loads the upload row with a FOR UPDATE lock so the
	// surrounding transaction serializes against concurrent writers.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error)
	// TransitionStatus moves the upload into to, applying extra column
	// updates in the same statement. The update is guarded by the set of
	// legal predecessor statuses; an upload in any other status is left
	// untouched and ErrInvalidTransition is returned.
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string, extra map[string]any) error
	List(ctx context.Context, tx *gorm.DB, page, pageSize int, status string) ([]*types.Upload, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error)
	SumSizeBytes(ctx context.Context, tx *gorm.DB) (int64, error)
	Recent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Upload, error)
}

type uploadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadRepo(db *gorm.DB, baseLog *logger.Logger) UploadRepo {
	repoLog := baseLog.With("repo", "UploadRepo")
	return &uploadRepo{db: db, log: repoLog}
}

func (r *uploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *types.Upload) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(upload).Error; err != nil {
		return err
	}
	return nil
}

func (r *uploadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var upload types.Upload
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx)
	// SQLite is single-writer; FOR UPDATE is a syntax error there.
	if transaction.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var upload types.Upload
	if err := query.
		Where("id = ?", id).
		First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string, extra map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	allowed := types.AllowedFromStatuses(to)
	if len(allowed) == 0 {
		return ErrInvalidTransition
	}

	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	res := transaction.WithContext(ctx).
		Model(&types.Upload{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Disambiguate: missing row vs. row in an illegal status.
		var count int64
		if err := transaction.WithContext(ctx).
			Model(&types.Upload{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

func (r *uploadRepo) List(ctx context.Context, tx *gorm.DB, page, pageSize int, status string) ([]*types.Upload, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	query := transaction.WithContext(ctx).Model(&types.Upload{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Upload
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *uploadRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Upload{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *uploadRepo) CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Model(&types.Upload{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *uploadRepo) SumSizeBytes(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total *int64
	if err := transaction.WithContext(ctx).
		Model(&types.Upload{}).
		Select("SUM(size_bytes)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *uploadRepo) Recent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit < 1 {
		limit = 5
	}
	var results []*types.Upload
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
