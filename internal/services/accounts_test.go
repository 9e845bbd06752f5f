package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/search"
)

func TestUnlinkCascades(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	gone := testutil.SeedAccount(t, e.ctx, e.db, owner, types.ProviderGoogle)
	kept := testutil.SeedAccount(t, e.ctx, e.db, owner, types.ProviderDropbox)
	r1 := testutil.SeedCloudRecord(t, e.ctx, e.db, gone, types.StorageGoogleDrive, "f1", "a.pdf")
	r2 := testutil.SeedCloudRecord(t, e.ctx, e.db, gone, types.StorageGmail, "m1/1", "b.pdf")
	r3 := testutil.SeedCloudRecord(t, e.ctx, e.db, kept, types.StorageDropbox, "/c.pdf", "c.pdf")
	local := testutil.SeedLocalRecord(t, e.ctx, e.db, owner, "/home/u/d.pdf")
	if err := e.index.Upsert(e.ctx, search.FromRecords([]*types.IndexedRecord{r1, r2, r3, local})); err != nil {
		t.Fatalf("seed index: %v", err)
	}

	svc := NewAccountService(e.db, e.log, e.records, e.accounts, e.index, e.metrics)
	if _, err := svc.Unlink(e.ctx, uuid.New(), gone.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner: expected not found, got %v", err)
	}

	res, err := svc.Unlink(e.ctx, owner, gone.ID)
	if err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if res.RecordsDeleted != 2 {
		t.Fatalf("expected 2 records deleted, got %d", res.RecordsDeleted)
	}
	if _, err := e.accounts.GetByID(dbctx.Context{Ctx: e.ctx}, gone.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("account still present: %v", err)
	}
	left := recordsOf(t, e, owner)
	if len(left) != 2 || left[r3.CanonicalPath] == nil || left[local.CanonicalPath] == nil {
		t.Fatalf("unexpected survivors %v", left)
	}
	if e.index.Len() != 2 {
		t.Fatalf("index documents for the unlinked account must be dropped, %d left", e.index.Len())
	}
	if _, ok := e.index.Get(search.DocID(r1.StorageType, r1.CanonicalPath)); ok {
		t.Fatal("drive document survived unlink")
	}
}
