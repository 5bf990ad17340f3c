package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/repos"
	"github.com/playbookos/playbook-backend/internal/repos/testutil"
	"github.com/playbookos/playbook-backend/internal/types"
)

func newMappingHarness(t *testing.T) (MappingService, repos.UploadRepo, repos.ContentBlockRepo, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	uploads := repos.NewUploadRepo(tx, log)
	blocks := repos.NewContentBlockRepo(tx, log)
	svc := NewMappingService(log, tx, uploads, blocks)
	return svc, uploads, blocks, tx
}

func TestApproveMappingPartialCoverage(t *testing.T) {
	svc, uploads, blocks, tx := newMappingHarness(t)
	ctx := context.Background()

	upload := testutil.SeedUpload(t, ctx, tx, types.UploadStatusCompleted)
	b1 := testutil.SeedContentBlock(t, ctx, tx, upload.ID, 0)
	b2 := testutil.SeedContentBlock(t, ctx, tx, upload.ID, 1)
	b3 := testutil.SeedContentBlock(t, ctx, tx, upload.ID, 2)

	got, err := svc.ApproveMapping(ctx, upload.ID, []MappingDecision{
		{BlockID: b1.ID, AssetType: "goal"},
		{BlockID: b2.ID, AssetType: "strategy"},
	})
	if err != nil {
		t.Fatalf("ApproveMapping: %v", err)
	}
	if got.Status != types.UploadStatusMapped {
		t.Fatalf("returned status: want=%s got=%s", types.UploadStatusMapped, got.Status)
	}

	reloaded, err := uploads.GetByID(ctx, nil, upload.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != types.UploadStatusMapped {
		t.Fatalf("upload status: want=%s got=%s", types.UploadStatusMapped, reloaded.Status)
	}

	stored, err := blocks.GetByUploadID(ctx, nil, upload.ID)
	if err != nil {
		t.Fatalf("GetByUploadID: %v", err)
	}
	byID := map[uuid.UUID]*types.ContentBlock{}
	for _, b := range stored {
		byID[b.ID] = b
	}
	if byID[b1.ID].FinalAssetType != "goal" || !byID[b1.ID].MappingApproved {
		t.Fatalf("block 1: %+v", byID[b1.ID])
	}
	if byID[b2.ID].FinalAssetType != "strategy" || !byID[b2.ID].MappingApproved {
		t.Fatalf("block 2: %+v", byID[b2.ID])
	}
	// The undecided block stays untouched.
	if byID[b3.ID].FinalAssetType != "" || byID[b3.ID].MappingApproved {
		t.Fatalf("block 3 must be untouched: %+v", byID[b3.ID])
	}
}

func TestApproveMappingUnknownBlockAppliesNothing(t *testing.T) {
	svc, uploads, blocks, tx := newMappingHarness(t)
	ctx := context.Background()

	upload := testutil.SeedUpload(t, ctx, tx, types.UploadStatusCompleted)
	own := testutil.SeedContentBlock(t, ctx, tx, upload.ID, 0)

	other := testutil.SeedUpload(t, ctx, tx, types.UploadStatusCompleted)
	foreign := testutil.SeedContentBlock(t, ctx, tx, other.ID, 0)

	_, err := svc.ApproveMapping(ctx, upload.ID, []MappingDecision{
		{BlockID: own.ID, AssetType: "goal"},
		{BlockID: foreign.ID, AssetType: "task"},
	})
	if apierr.Code(err) != apierr.CodeUnknownBlock {
		t.Fatalf("want code=%s got err=%v", apierr.CodeUnknownBlock, err)
	}

	reloaded, err := uploads.GetByID(ctx, nil, upload.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != types.UploadStatusCompleted {
		t.Fatalf("upload must stay completed, got %s", reloaded.Status)
	}
	stored, err := blocks.GetByUploadID(ctx, nil, upload.ID)
	if err != nil {
		t.Fatalf("GetByUploadID: %v", err)
	}
	if stored[0].FinalAssetType != "" || stored[0].MappingApproved {
		t.Fatalf("no decision may be applied: %+v", stored[0])
	}

	// Same answer for a block id that exists nowhere.
	_, err = svc.ApproveMapping(ctx, upload.ID, []MappingDecision{
		{BlockID: uuid.New(), AssetType: "goal"},
	})
	if apierr.Code(err) != apierr.CodeUnknownBlock {
		t.Fatalf("nonexistent block: want code=%s got err=%v", apierr.CodeUnknownBlock, err)
	}
}

func TestApproveMappingRequiresCompleted(t *testing.T) {
	svc, _, _, tx := newMappingHarness(t)
	ctx := context.Background()

	for _, status := range []string{
		types.UploadStatusProcessing,
		types.UploadStatusFailed,
		types.UploadStatusMapped,
	} {
		upload := testutil.SeedUpload(t, ctx, tx, status)
		_, err := svc.ApproveMapping(ctx, upload.ID, nil)
		if apierr.Code(err) != apierr.CodeInvalidState {
			t.Fatalf("status %s: want code=%s got err=%v", status, apierr.CodeInvalidState, err)
		}
	}
}

func TestApproveMappingNotFound(t *testing.T) {
	svc, _, _, _ := newMappingHarness(t)

	_, err := svc.ApproveMapping(context.Background(), uuid.New(), nil)
	if apierr.Code(err) != apierr.CodeNotFound {
		t.Fatalf("want code=%s got err=%v", apierr.CodeNotFound, err)
	}
}

func TestApproveMappingEmptyDecisions(t *testing.T) {
	svc, uploads, _, tx := newMappingHarness(t)
	ctx := context.Background()

	upload := testutil.SeedUpload(t, ctx, tx, types.UploadStatusCompleted)
	got, err := svc.ApproveMapping(ctx, upload.ID, nil)
	if err != nil {
		t.Fatalf("ApproveMapping: %v", err)
	}
	if got.Status != types.UploadStatusMapped {
		t.Fatalf("status: want=%s got=%s", types.UploadStatusMapped, got.Status)
	}
	reloaded, err := uploads.GetByID(ctx, nil, upload.ID)
	if err != nil || reloaded.Status != types.UploadStatusMapped {
		t.Fatalf("reloaded: err=%v status=%s", err, reloaded.Status)
	}
}
