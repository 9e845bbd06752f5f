package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/providers"
	"github.com/yungbote/unifind-backend/internal/search"
)

type env struct {
	ctx      context.Context
	log      *logger.Logger
	db       *gorm.DB
	records  repos.IndexedRecordRepo
	accounts repos.LinkedAccountRepo
	index    *search.MemoryIndex
	metrics  *observability.Metrics
}

func newEnv(t *testing.T) env {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	return env{
		ctx:      context.Background(),
		log:      log,
		db:       db,
		records:  repos.NewIndexedRecordRepo(db, log),
		accounts: repos.NewLinkedAccountRepo(db, log),
		index:    search.NewMemoryIndex(),
		metrics:  observability.NewMetrics(),
	}
}

// fakeAdapter serves a fixed listing, rebuilt on every call so each pass sees
// fresh values.
type fakeAdapter struct {
	source   types.StorageType
	provider types.Provider
	items    []fakeItem
	cloudIDs map[string]string // item id -> cloud id, when they differ
	err      error

	mu     sync.Mutex
	tokens []string
}

type fakeItem struct {
	id, name string
}

func (f *fakeAdapter) Source() types.StorageType { return f.source }

func (f *fakeAdapter) Provider() types.Provider { return f.provider }

func (f *fakeAdapter) Fetch(ctx context.Context, acct *types.LinkedAccount, token string) (*providers.FetchResult, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := &providers.FetchResult{}
	for _, it := range f.items {
		accountID := acct.ID
		cloudID := it.id
		if v, ok := f.cloudIDs[it.id]; ok {
			cloudID = v
		}
		mt := "application/pdf"
		out.Records = append(out.Records, &types.IndexedRecord{
			OwnerID:       acct.OwnerID,
			AccountID:     &accountID,
			Filename:      it.name,
			CanonicalPath: types.CloudPath(f.source, it.id),
			Filetype:      "pdf",
			StorageType:   f.source,
			CloudFileID:   &cloudID,
			MimeType:      &mt,
		})
	}
	return out, nil
}

func newDriveFake(items ...fakeItem) *fakeAdapter {
	return &fakeAdapter{source: types.StorageGoogleDrive, provider: types.ProviderGoogle, items: items}
}

type expiredCreds struct{}

func (expiredCreds) Token(ctx context.Context, acct *types.LinkedAccount) (string, error) {
	return "", &providers.Error{Source: types.StorageGoogleDrive, Kind: providers.ErrCredentialExpired, Err: context.DeadlineExceeded}
}

func recordsOf(t *testing.T, e env, owner uuid.UUID) map[string]*types.IndexedRecord {
	t.Helper()
	recs, err := e.records.Scan(dbctx.Context{Ctx: e.ctx}, types.RecordFilter{OwnerID: owner})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	out := map[string]*types.IndexedRecord{}
	for _, r := range recs {
		out[r.CanonicalPath] = r
	}
	return out
}
