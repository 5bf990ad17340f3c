package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/types"
)

const recentUploadsLimit = 5

// DashboardStats aggregates the pipeline's current shape for the dashboard.
type DashboardStats struct {
	TotalUploads     int64 `json:"total_uploads"`
	Completed        int64 `json:"completed"`
	Processing       int64 `json:"processing"`
	Failed           int64 `json:"failed"`
	Mapped           int64 `json:"mapped"`
	TotalStorageSize int64 `json:"total_storage_size"`
}

type DashboardService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
	Recent(ctx context.Context) ([]*types.Upload, error)
}

type dashboardService struct {
	log     *logger.Logger
	uploads repos.UploadRepo
}

func NewDashboardService(log *logger.Logger, uploads repos.UploadRepo) DashboardService {
	return &dashboardService{
		log:     log.With("service", "DashboardService"),
		uploads: uploads,
	}
}

func (s *dashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	g, gctx := errgroup.WithContext(ctx)

	counts := []struct {
		status string
		dest   *int64
	}{
		{"", &stats.TotalUploads},
		{types.UploadStatusCompleted, &stats.Completed},
		{types.UploadStatusProcessing, &stats.Processing},
		{types.UploadStatusFailed, &stats.Failed},
		{types.UploadStatusMapped, &stats.Mapped},
	}
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.uploads.CountByStatus(gctx, nil, c.status)
			if err != nil {
				return err
			}
			*c.dest = n
			return nil
		})
	}
	g.Go(func() error {
		sum, err := s.uploads.SumSizeBytes(gctx, nil)
		if err != nil {
			return err
		}
		stats.TotalStorageSize = sum
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, apierr.StorageFailed(fmt.Errorf("failed to aggregate dashboard stats: %w", err))
	}
	return stats, nil
}

func (s *dashboardService) Recent(ctx context.Context) ([]*types.Upload, error) {
	uploads, err := s.uploads.Recent(ctx, nil, recentUploadsLimit)
	if err != nil {
		return nil, apierr.StorageFailed(fmt.Errorf("failed to load recent uploads: %w", err))
	}
	return uploads, nil
}
