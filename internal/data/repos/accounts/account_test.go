package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
)

func TestLinkedAccountRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLinkedAccountRepo(db, testutil.Logger(t))

	owner := uuid.New()
	created, err := repo.Create(dbc, []*types.LinkedAccount{
		{OwnerID: owner, Provider: types.ProviderGoogle, ExternalEmail: "a@example.com", CredentialRef: "t1"},
		{OwnerID: owner, Provider: types.ProviderDropbox, ExternalEmail: "a@example.com", CredentialRef: "t2"},
	})
	if err != nil || len(created) != 2 {
		t.Fatalf("Create: len=%d err=%v", len(created), err)
	}
	if created[0].ID == uuid.Nil {
		t.Fatalf("id not assigned")
	}

	google, err := repo.ListByOwnerAndProvider(dbc, owner, types.ProviderGoogle)
	if err != nil || len(google) != 1 {
		t.Fatalf("ListByOwnerAndProvider: len=%d err=%v", len(google), err)
	}

	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.TouchLastSynced(dbc, google[0].ID, at); err != nil {
		t.Fatalf("TouchLastSynced: %v", err)
	}
	got, err := repo.GetByID(dbc, google[0].ID)
	if err != nil || got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(at) {
		t.Fatalf("GetByID: %+v err=%v", got, err)
	}

	ids, err := repo.DistinctOwnerIDs(dbc)
	if err != nil || len(ids) == 0 {
		t.Fatalf("DistinctOwnerIDs: %v err=%v", ids, err)
	}

	if err := repo.Delete(dbc, google[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(dbc, google[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByID after delete err=%v", err)
	}
}
