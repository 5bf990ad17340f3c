package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/types"
)

// UploadDetail is the full read model for one upload: the record itself
// plus its blocks in extraction order, mapping fields included.
type UploadDetail struct {
	Upload *types.Upload
	Blocks []*types.ContentBlock
}

// UploadPage is one page of the upload listing.
type UploadPage struct {
	Items    []*types.Upload
	Total    int64
	Page     int
	PageSize int
}

// DetailService is the read side of the pipeline. All methods are pure
// reads; nothing here mutates state.
type DetailService interface {
	Describe(ctx context.Context, uploadID uuid.UUID) (*UploadDetail, error)
	Blocks(ctx context.Context, uploadID uuid.UUID) ([]*types.ContentBlock, error)
	List(ctx context.Context, page, pageSize int, status string) (*UploadPage, error)
}

type detailService struct {
	log     *logger.Logger
	uploads repos.UploadRepo
	blocks  repos.ContentBlockRepo
}

func NewDetailService(log *logger.Logger, uploads repos.UploadRepo, blocks repos.ContentBlockRepo) DetailService {
	return &detailService{
		log:     log.With("service", "DetailService"),
		uploads: uploads,
		blocks:  blocks,
	}
}

func (s *detailService) Describe(ctx context.Context, uploadID uuid.UUID) (*UploadDetail, error) {
	upload, err := s.uploads.GetByID(ctx, nil, uploadID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("upload %s not found", uploadID))
		}
		return nil, apierr.StorageFailed(fmt.Errorf("failed to load upload: %w", err))
	}
	blocks, err := s.blocks.GetByUploadID(ctx, nil, uploadID)
	if err != nil {
		return nil, apierr.StorageFailed(fmt.Errorf("failed to load blocks: %w", err))
	}
	return &UploadDetail{Upload: upload, Blocks: blocks}, nil
}

func (s *detailService) Blocks(ctx context.Context, uploadID uuid.UUID) ([]*types.ContentBlock, error) {
	detail, err := s.Describe(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return detail.Blocks, nil
}

func (s *detailService) List(ctx context.Context, page, pageSize int, status string) (*UploadPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	if status != "" && !types.IsValidUploadStatus(status) {
		return nil, apierr.InvalidSource(fmt.Errorf("unknown status filter %q", status))
	}
	items, total, err := s.uploads.List(ctx, nil, page, pageSize, status)
	if err != nil {
		return nil, apierr.StorageFailed(fmt.Errorf("failed to list uploads: %w", err))
	}
	return &UploadPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}
