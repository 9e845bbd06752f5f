package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
)

func localRecord(owner uuid.UUID, path, name, filetype string) *types.IndexedRecord {
	return &types.IndexedRecord{
		OwnerID:       owner,
		Filename:      name,
		CanonicalPath: path,
		Filetype:      filetype,
		StorageType:   types.StorageLocal,
	}
}

func TestIndexedRecordRepoInsertNewIsAdditive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewIndexedRecordRepo(db, testutil.Logger(t))

	owner := uuid.New()
	n, err := repo.InsertNew(dbc, []*types.IndexedRecord{
		localRecord(owner, "/home/u/a.txt", "a.txt", "txt"),
		localRecord(owner, "/home/u/b.pdf", "b.pdf", "pdf"),
	})
	if err != nil || n != 2 {
		t.Fatalf("InsertNew: n=%d err=%v", n, err)
	}

	// Same path again with a different filetype: skipped, not revised.
	n, err = repo.InsertNew(dbc, []*types.IndexedRecord{localRecord(owner, "/home/u/a.txt", "a.txt", "changed")})
	if err != nil || n != 0 {
		t.Fatalf("InsertNew duplicate: n=%d err=%v", n, err)
	}
	got, err := repo.GetByPath(dbc, owner, "/home/u/a.txt")
	if err != nil || got == nil {
		t.Fatalf("GetByPath: rec=%v err=%v", got, err)
	}
	if got.Filetype != "txt" {
		t.Fatalf("filetype revised to %q", got.Filetype)
	}

	// Another owner cannot claim a taken path.
	other := uuid.New()
	n, err = repo.InsertNew(dbc, []*types.IndexedRecord{localRecord(other, "/home/u/a.txt", "a.txt", "txt")})
	if err != nil || n != 0 {
		t.Fatalf("InsertNew other owner: n=%d err=%v", n, err)
	}
	if rec, err := repo.GetByPath(dbc, other, "/home/u/a.txt"); err != nil || rec != nil {
		t.Fatalf("other owner lookup: rec=%v err=%v", rec, err)
	}

	rows, err := repo.GetByPaths(dbc, owner, []string{"/home/u/a.txt", "/home/u/b.pdf", "/missing"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByPaths: len=%d err=%v", len(rows), err)
	}
}

func TestIndexedRecordRepoUpsertByPathOverwrites(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewIndexedRecordRepo(db, testutil.Logger(t))

	owner := uuid.New()
	acct := testutil.SeedAccount(t, ctx, tx, owner, types.ProviderGoogle)
	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mk := func(name string) *types.IndexedRecord {
		return &types.IndexedRecord{
			OwnerID:       owner,
			AccountID:     testutil.PtrUUID(acct.ID),
			Filename:      name,
			CanonicalPath: "drive://f1",
			Filetype:      "pdf",
			StorageType:   types.StorageGoogleDrive,
			CloudFileID:   testutil.PtrString("f1"),
			MimeType:      testutil.PtrString("application/pdf"),
			LastModified:  &mod,
		}
	}
	if err := repo.UpsertByPath(dbc, []*types.IndexedRecord{mk("v1.pdf")}); err != nil {
		t.Fatalf("UpsertByPath: %v", err)
	}
	if _, err := repo.ToggleFavorite(dbc, owner, "drive://f1"); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if err := repo.UpsertByPath(dbc, []*types.IndexedRecord{mk("v2.pdf")}); err != nil {
		t.Fatalf("UpsertByPath second: %v", err)
	}
	got, err := repo.GetByPath(dbc, owner, "drive://f1")
	if err != nil || got == nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if got.Filename != "v2.pdf" {
		t.Fatalf("filename = %q", got.Filename)
	}
	if got.IsFavorite {
		t.Fatalf("favorite survived upsert")
	}
}

func TestIndexedRecordRepoUpsertByPathConcurrentWriters(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewIndexedRecordRepo(db, testutil.Logger(t))

	owner := uuid.New()
	acct := testutil.SeedAccount(t, ctx, db, owner, types.ProviderGoogle)
	t.Cleanup(func() {
		db.Where("owner_id = ?", owner).Delete(&types.IndexedRecord{})
		db.Delete(acct)
	})

	const (
		writers = 6
		span    = 8
		paths   = writers + span - 1
	)
	prefix := uuid.NewString()
	cloudID := func(i int) string { return fmt.Sprintf("%s-%d", prefix, i) }

	// Writer w covers paths [w, w+span), so neighbours overlap on most rows.
	// Each writer walks its batch in the opposite order of its neighbour.
	batch := func(w int) []*types.IndexedRecord {
		out := make([]*types.IndexedRecord, 0, span)
		for k := 0; k < span; k++ {
			i := w + k
			if w%2 == 1 {
				i = w + span - 1 - k
			}
			id := cloudID(i)
			out = append(out, &types.IndexedRecord{
				OwnerID:       owner,
				AccountID:     testutil.PtrUUID(acct.ID),
				Filename:      fmt.Sprintf("w%d-%d.pdf", w, i),
				CanonicalPath: types.CloudPath(types.StorageGoogleDrive, id),
				Filetype:      "pdf",
				StorageType:   types.StorageGoogleDrive,
				CloudFileID:   testutil.PtrString(id),
				MimeType:      testutil.PtrString(fmt.Sprintf("application/x-w%d", w)),
			})
		}
		return out
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers*3)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for round := 0; round < 3; round++ {
				errs <- dbctx.Transact(ctx, db, func(dbc dbctx.Context) error {
					return repo.UpsertByPath(dbc, batch(w))
				})
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpsertByPath: %v", err)
		}
	}

	var n int64
	if err := db.Model(&types.IndexedRecord{}).Where("owner_id = ?", owner).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != paths {
		t.Fatalf("rows = %d, want %d", n, paths)
	}

	dbc := dbctx.Context{Ctx: ctx}
	for i := 0; i < paths; i++ {
		path := types.CloudPath(types.StorageGoogleDrive, cloudID(i))
		got, err := repo.GetByPath(dbc, owner, path)
		if err != nil || got == nil {
			t.Fatalf("GetByPath %s: rec=%v err=%v", path, got, err)
		}
		var w, j int
		if _, err := fmt.Sscanf(got.Filename, "w%d-%d.pdf", &w, &j); err != nil || j != i {
			t.Fatalf("%s: filename %q", path, got.Filename)
		}
		if w < i-span+1 || w > i {
			t.Fatalf("%s: written by w%d, which never touched it", path, w)
		}
		if got.MimeType == nil || *got.MimeType != fmt.Sprintf("application/x-w%d", w) {
			t.Fatalf("%s: row mixes writers: filename %q mime %v", path, got.Filename, got.MimeType)
		}
	}
}

func TestIndexedRecordRepoReleaseCloudIDs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewIndexedRecordRepo(db, testutil.Logger(t))

	owner := uuid.New()
	acct := testutil.SeedAccount(t, ctx, tx, owner, types.ProviderDropbox)
	old := testutil.SeedCloudRecord(t, ctx, tx, acct, types.StorageDropbox, "id:1", "old.txt")

	n, err := repo.ReleaseCloudIDs(dbc, map[string]string{"id:1": "dropbox:///renamed.txt"})
	if err != nil || n != 1 {
		t.Fatalf("ReleaseCloudIDs: n=%d err=%v", n, err)
	}
	got, _ := repo.GetByPath(dbc, owner, old.CanonicalPath)
	if got == nil || got.CloudFileID != nil {
		t.Fatalf("cloud id not released: %+v", got)
	}

	// Claims that match the holder's own path leave it alone.
	same := testutil.SeedCloudRecord(t, ctx, tx, acct, types.StorageDropbox, "id:2", "same.txt")
	n, err = repo.ReleaseCloudIDs(dbc, map[string]string{"id:2": same.CanonicalPath})
	if err != nil || n != 0 {
		t.Fatalf("ReleaseCloudIDs same path: n=%d err=%v", n, err)
	}
}

func TestIndexedRecordRepoScanAndOwners(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewIndexedRecordRepo(db, testutil.Logger(t))

	owner := uuid.New()
	other := uuid.New()
	testutil.SeedLocalRecord(t, ctx, tx, owner, "/d/Invoice2024.pdf")
	testutil.SeedLocalRecord(t, ctx, tx, owner, "/d/notes.txt")
	testutil.SeedLocalRecord(t, ctx, tx, owner, "/d/100%_done.txt")
	testutil.SeedLocalRecord(t, ctx, tx, other, "/e/invoice.pdf")

	rows, err := repo.Scan(dbc, types.RecordFilter{OwnerID: owner, FilenameContains: "INVOICE"})
	if err != nil || len(rows) != 1 || rows[0].Filename != "Invoice2024.pdf" {
		t.Fatalf("Scan invoice: rows=%v err=%v", rows, err)
	}
	rows, err = repo.Scan(dbc, types.RecordFilter{OwnerID: owner, Filetype: "txt"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("Scan filetype: len=%d err=%v", len(rows), err)
	}
	for _, q := range []string{"invoice*", "*voice*", "inv*2024"} {
		rows, err = repo.Scan(dbc, types.RecordFilter{OwnerID: owner, FilenameContains: q})
		if err != nil || len(rows) != 1 || rows[0].Filename != "Invoice2024.pdf" {
			t.Fatalf("Scan %q: rows=%v err=%v", q, rows, err)
		}
	}
	rows, err = repo.Scan(dbc, types.RecordFilter{OwnerID: owner, FilenameContains: "%"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("Scan literal percent: len=%d err=%v", len(rows), err)
	}
	rows, err = repo.Scan(dbc, types.RecordFilter{OwnerID: owner, StorageType: types.StorageDropbox})
	if err != nil || len(rows) != 0 {
		t.Fatalf("Scan storage type: len=%d err=%v", len(rows), err)
	}

	ids, err := repo.DistinctOwnerIDs(dbc)
	if err != nil {
		t.Fatalf("DistinctOwnerIDs: %v", err)
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[owner] || !seen[other] {
		t.Fatalf("DistinctOwnerIDs missing owners: %v", ids)
	}
}

func TestIndexedRecordRepoToggleAndDeleteByAccount(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewIndexedRecordRepo(db, testutil.Logger(t))

	owner := uuid.New()
	rec := testutil.SeedLocalRecord(t, ctx, tx, owner, "/d/a.txt")

	first, err := repo.ToggleFavorite(dbc, owner, rec.CanonicalPath)
	if err != nil || !first.IsFavorite {
		t.Fatalf("first toggle: %+v err=%v", first, err)
	}
	second, err := repo.ToggleFavorite(dbc, owner, rec.CanonicalPath)
	if err != nil || second.IsFavorite {
		t.Fatalf("second toggle: %+v err=%v", second, err)
	}
	if _, err := repo.ToggleFavorite(dbc, uuid.New(), rec.CanonicalPath); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign owner toggle err=%v", err)
	}

	acct := testutil.SeedAccount(t, ctx, tx, owner, types.ProviderGoogle)
	testutil.SeedCloudRecord(t, ctx, tx, acct, types.StorageGoogleDrive, "x1", "x1.pdf")
	testutil.SeedCloudRecord(t, ctx, tx, acct, types.StorageGoogleDrive, "x2", "x2.pdf")
	if rows, err := repo.ListByAccountID(dbc, acct.ID); err != nil || len(rows) != 2 {
		t.Fatalf("ListByAccountID: len=%d err=%v", len(rows), err)
	}
	n, err := repo.DeleteByAccountID(dbc, acct.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByAccountID: n=%d err=%v", n, err)
	}
	if got, _ := repo.GetByPath(dbc, owner, rec.CanonicalPath); got == nil {
		t.Fatalf("local record removed by account cascade")
	}
}
