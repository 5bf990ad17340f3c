package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/repos/testutil"
	"github.com/playbookos/playbook-backend/internal/types"
)

func newIngestionHarness(t *testing.T, extractor ExtractionClient) (IngestionService, repos.UploadRepo, repos.ContentBlockRepo) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	uploads := repos.NewUploadRepo(tx, log)
	blocks := repos.NewContentBlockRepo(tx, log)
	bucket := newFakeBucket()
	source := NewSourceService(log, bucket)
	svc := NewIngestionService(log, tx, source, extractor, bucket, uploads, blocks)
	return svc, uploads, blocks
}

func floatPtr(v float64) *float64 { return &v }

func TestIngestFileCompletes(t *testing.T) {
	extractor := &fakeExtractor{blocks: []ExtractedBlock{
		{Kind: "heading", Content: "Q3 Goals", ConfidenceScore: floatPtr(0.95), SuggestedAssetType: "goal"},
		{Kind: "paragraph", Content: "Ship the new onboarding flow.", Metadata: map[string]any{"page": 1}},
		{Kind: "list", Content: "- hire\n- train", ConfidenceScore: floatPtr(1.5), SuggestedAssetType: "task"},
	}}
	svc, uploads, blocks := newIngestionHarness(t, extractor)
	ctx := context.Background()

	result, err := svc.IngestFile(ctx, "plan.md", "", []byte("# Q3 Goals"), "Q3 Plan", "")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if result.Status != types.UploadStatusCompleted || result.BlocksExtracted != 3 {
		t.Fatalf("result: %+v", result)
	}
	if extractor.calls != 1 {
		t.Fatalf("extractor calls: want 1 got %d", extractor.calls)
	}

	upload, err := uploads.GetByID(ctx, nil, result.UploadID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if upload.Status != types.UploadStatusCompleted || upload.ProcessedAt == nil {
		t.Fatalf("upload after ingest: status=%s processed_at=%v", upload.Status, upload.ProcessedAt)
	}
	if upload.Title != "Q3 Plan" {
		t.Fatalf("title: got %q", upload.Title)
	}

	stored, err := blocks.GetByUploadID(ctx, nil, result.UploadID)
	if err != nil {
		t.Fatalf("GetByUploadID: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored blocks: want 3 got %d", len(stored))
	}
	for i, b := range stored {
		if b.Position != i {
			t.Fatalf("block %d position: got %d", i, b.Position)
		}
	}
	if stored[0].ConfidenceScore != 0.95 {
		t.Fatalf("reported confidence: got %v", stored[0].ConfidenceScore)
	}
	if stored[1].ConfidenceScore != defaultConfidenceScore {
		t.Fatalf("default confidence: got %v", stored[1].ConfidenceScore)
	}
	if stored[2].ConfidenceScore != 1 {
		t.Fatalf("clamped confidence: got %v", stored[2].ConfidenceScore)
	}
	if len(stored[1].Metadata) == 0 {
		t.Fatalf("metadata was not persisted")
	}
}

func TestIngestURLEmptyExtractionCompletes(t *testing.T) {
	svc, uploads, blocks := newIngestionHarness(t, &fakeExtractor{})
	ctx := context.Background()

	result, err := svc.IngestURL(ctx, "https://example.com/playbook", "", "")
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}
	if result.Status != types.UploadStatusCompleted || result.BlocksExtracted != 0 {
		t.Fatalf("result: %+v", result)
	}
	upload, err := uploads.GetByID(ctx, nil, result.UploadID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if upload.SourceType != types.SourceTypeURL || upload.SourceURL != "https://example.com/playbook" {
		t.Fatalf("upload source fields: %+v", upload)
	}
	n, err := blocks.CountByUploadID(ctx, nil, result.UploadID)
	if err != nil || n != 0 {
		t.Fatalf("block count: err=%v n=%d", err, n)
	}
}

func TestIngestExtractionFailureSettlesFailed(t *testing.T) {
	extractor := &fakeExtractor{err: fmt.Errorf("analysis service unavailable")}
	svc, uploads, blocks := newIngestionHarness(t, extractor)
	ctx := context.Background()

	result, err := svc.IngestFile(ctx, "plan.pdf", "application/pdf", []byte("%PDF"), "", "")
	if err != nil {
		t.Fatalf("a failed extraction is a result, not an error: %v", err)
	}
	if result.Status != types.UploadStatusFailed || result.UploadID == uuid.Nil {
		t.Fatalf("result: %+v", result)
	}
	if result.Message == "" {
		t.Fatalf("failure message must be set")
	}

	upload, err := uploads.GetByID(ctx, nil, result.UploadID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if upload.Status != types.UploadStatusFailed || upload.ErrorMessage == "" {
		t.Fatalf("upload after failure: status=%s error=%q", upload.Status, upload.ErrorMessage)
	}
	if upload.ProcessedAt == nil {
		t.Fatalf("processed_at must be stamped when the upload settles")
	}
	n, err := blocks.CountByUploadID(ctx, nil, result.UploadID)
	if err != nil || n != 0 {
		t.Fatalf("failed upload must have zero blocks: err=%v n=%d", err, n)
	}
}

func TestIngestBlockPersistFailureIsAtomic(t *testing.T) {
	extractor := &fakeExtractor{blocks: []ExtractedBlock{
		{Kind: "paragraph", Content: "one"},
		{Kind: "paragraph", Content: "two"},
	}}

	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	uploads := repos.NewUploadRepo(tx, log)
	realBlocks := repos.NewContentBlockRepo(tx, log)
	bucket := newFakeBucket()
	source := NewSourceService(log, bucket)
	svc := NewIngestionService(log, tx, source, extractor, bucket, uploads, &failingBlockRepo{ContentBlockRepo: realBlocks})
	ctx := context.Background()

	result, err := svc.IngestFile(ctx, "plan.txt", "", []byte("content"), "", "")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if result.Status != types.UploadStatusFailed {
		t.Fatalf("result status: want=%s got=%s", types.UploadStatusFailed, result.Status)
	}
	if !strings.Contains(result.Message, "insert rejected") {
		t.Fatalf("failure must come from the rejected insert, got %q", result.Message)
	}

	upload, err := uploads.GetByID(ctx, nil, result.UploadID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if upload.Status != types.UploadStatusFailed || !strings.Contains(upload.ErrorMessage, "insert rejected") {
		t.Fatalf("upload must settle as failed: status=%s error=%q", upload.Status, upload.ErrorMessage)
	}
	n, err := realBlocks.CountByUploadID(ctx, nil, result.UploadID)
	if err != nil || n != 0 {
		t.Fatalf("no blocks may survive a failed insert: err=%v n=%d", err, n)
	}
}

func TestDeleteUpload(t *testing.T) {
	extractor := &fakeExtractor{blocks: []ExtractedBlock{
		{Kind: "paragraph", Content: "one"},
		{Kind: "paragraph", Content: "two"},
	}}
	svc, uploads, blocks := newIngestionHarness(t, extractor)
	ctx := context.Background()

	result, err := svc.IngestFile(ctx, "plan.txt", "", []byte("content"), "", "")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	if err := svc.DeleteUpload(ctx, result.UploadID); err != nil {
		t.Fatalf("DeleteUpload: %v", err)
	}
	if _, err := uploads.GetByID(ctx, nil, result.UploadID); !errors.Is(err, repos.ErrNotFound) {
		t.Fatalf("upload must be gone: %v", err)
	}
	n, err := blocks.CountByUploadID(ctx, nil, result.UploadID)
	if err != nil || n != 0 {
		t.Fatalf("blocks must be gone: err=%v n=%d", err, n)
	}

	if err := svc.DeleteUpload(ctx, result.UploadID); apierr.Code(err) != apierr.CodeNotFound {
		t.Fatalf("double delete: want code=%s got err=%v", apierr.CodeNotFound, err)
	}
}

func TestIngestFileRejectsInvalidSourceWithoutUpload(t *testing.T) {
	extractor := &fakeExtractor{}
	svc, uploads, _ := newIngestionHarness(t, extractor)
	ctx := context.Background()

	_, err := svc.IngestFile(ctx, "malware.exe", "", []byte("mz"), "", "")
	if apierr.Code(err) != apierr.CodeInvalidSource {
		t.Fatalf("want code=%s got err=%v", apierr.CodeInvalidSource, err)
	}
	if extractor.calls != 0 {
		t.Fatalf("extractor must not run for rejected sources")
	}
	n, err := uploads.CountByStatus(ctx, nil, "")
	if err != nil || n != 0 {
		t.Fatalf("no upload row may exist after rejection: err=%v n=%d", err, n)
	}
}
