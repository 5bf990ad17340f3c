package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/types"
)

type fakeBucket struct {
	objects map[string][]byte
	failPut bool
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) UploadFile(ctx context.Context, key string, contentType string, file io.Reader) error {
	if b.failPut {
		return fmt.Errorf("bucket unavailable")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://bucket.test/" + key
}

func (b *fakeBucket) BucketName() string {
	return "test-bucket"
}

type fakeExtractor struct {
	blocks     []ExtractedBlock
	err        error
	calls      int
	lastSource ExtractionSource
}

func (e *fakeExtractor) Extract(ctx context.Context, source ExtractionSource) ([]ExtractedBlock, error) {
	e.calls++
	e.lastSource = source
	if e.err != nil {
		return nil, e.err
	}
	return e.blocks, nil
}

// failingBlockRepo delegates reads to the real repo but refuses writes, for
// exercising rollback paths.
type failingBlockRepo struct {
	repos.ContentBlockRepo
}

func (r *failingBlockRepo) CreateBatch(ctx context.Context, tx *gorm.DB, blocks []*types.ContentBlock) error {
	return fmt.Errorf("insert rejected")
}

type fakeUploadRepo struct {
	uploads []*types.Upload
}

func (r *fakeUploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *types.Upload) error {
	r.uploads = append(r.uploads, upload)
	return nil
}

func (r *fakeUploadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error) {
	for _, u := range r.uploads {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repos.ErrNotFound
}

func (r *fakeUploadRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeUploadRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, to string, extra map[string]any) error {
	u, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}
	u.Status = to
	return nil
}

func (r *fakeUploadRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	for i, u := range r.uploads {
		if u.ID == id {
			r.uploads = append(r.uploads[:i], r.uploads[i+1:]...)
			return nil
		}
	}
	return repos.ErrNotFound
}

func (r *fakeUploadRepo) List(ctx context.Context, tx *gorm.DB, page, pageSize int, status string) ([]*types.Upload, int64, error) {
	return r.uploads, int64(len(r.uploads)), nil
}

func (r *fakeUploadRepo) CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error) {
	if status == "" {
		return int64(len(r.uploads)), nil
	}
	var n int64
	for _, u := range r.uploads {
		if u.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeUploadRepo) SumSizeBytes(ctx context.Context, tx *gorm.DB) (int64, error) {
	var sum int64
	for _, u := range r.uploads {
		sum += u.SizeBytes
	}
	return sum, nil
}

func (r *fakeUploadRepo) Recent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Upload, error) {
	if len(r.uploads) <= limit {
		return r.uploads, nil
	}
	return r.uploads[:limit], nil
}
