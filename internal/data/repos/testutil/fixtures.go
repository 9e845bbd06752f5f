package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

func SeedAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, provider types.Provider) *types.LinkedAccount {
	tb.Helper()
	a := &types.LinkedAccount{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Provider:      provider,
		ExternalEmail: "owner@example.com",
		CredentialRef: "token-" + uuid.NewString(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed account: %v", err)
	}
	return a
}

func SeedLocalRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, path string) *types.IndexedRecord {
	tb.Helper()
	name := filepath.Base(path)
	r := &types.IndexedRecord{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Filename:      name,
		CanonicalPath: path,
		Filetype:      strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		StorageType:   types.StorageLocal,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed local record: %v", err)
	}
	return r
}

func SeedCloudRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, acct *types.LinkedAccount, st types.StorageType, cloudID, name string) *types.IndexedRecord {
	tb.Helper()
	now := time.Now().UTC()
	r := &types.IndexedRecord{
		ID:            uuid.New(),
		OwnerID:       acct.OwnerID,
		AccountID:     PtrUUID(acct.ID),
		Filename:      name,
		CanonicalPath: types.CloudPath(st, cloudID),
		Filetype:      strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		StorageType:   st,
		CloudFileID:   PtrString(cloudID),
		LastModified:  &now,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed cloud record: %v", err)
	}
	return r
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrString(v string) *string { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
