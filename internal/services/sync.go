package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/providers"
	"github.com/yungbote/unifind-backend/internal/search"
)

type SyncResult struct {
	AccountID uuid.UUID         `json:"account_id"`
	Source    types.StorageType `json:"source"`
	Upserted  int               `json:"upserted"`
	Rejected  int               `json:"rejected"`
	Indexed   int               `json:"indexed"`
	SyncedAt  time.Time         `json:"synced_at"`
	Outcome   string            `json:"outcome"`
}

type SyncService interface {
	// SyncAccount runs one adapter pass for one account. An empty source
	// means the provider's primary source.
	SyncAccount(ctx context.Context, ownerID, accountID uuid.UUID, source types.StorageType) (*SyncResult, error)
}

type syncService struct {
	db       *gorm.DB
	log      *logger.Logger
	records  repos.IndexedRecordRepo
	accounts repos.LinkedAccountRepo
	registry *providers.Registry
	creds    providers.CredentialSource
	index    search.Index
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewSyncService(
	db *gorm.DB,
	log *logger.Logger,
	records repos.IndexedRecordRepo,
	accounts repos.LinkedAccountRepo,
	registry *providers.Registry,
	creds providers.CredentialSource,
	index search.Index,
	metrics *observability.Metrics,
) SyncService {
	serviceLog := log.With("service", "SyncService")
	if creds == nil {
		creds = providers.StoredCredentials{}
	}
	if index == nil {
		index = search.Disabled{}
	}
	return &syncService{
		db:       db,
		log:      serviceLog,
		records:  records,
		accounts: accounts,
		registry: registry,
		creds:    creds,
		index:    index,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *syncService) SyncAccount(ctx context.Context, ownerID, accountID uuid.UUID, source types.StorageType) (res *SyncResult, err error) {
	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "sync.account",
		attribute.String("owner_id", ownerID.String()),
		attribute.String("account_id", accountID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	acct, err := s.account(ctx, ownerID, accountID)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = acct.Provider.PrimarySource()
	}
	span.SetAttributes(attribute.String("source", string(source)))
	adapter, ok := s.registry.Get(source)
	if !ok || adapter.Provider() != acct.Provider {
		return nil, fmt.Errorf("%w: source %q is not served by a %s account", ErrInvalidInput, source, acct.Provider)
	}

	log := s.log.With("owner_id", ownerID, "account_id", accountID, "source", source)
	defer func() {
		n := 0
		if res != nil {
			n = res.Upserted
		}
		s.metrics.ObserveSync(string(source), SyncOutcome(err), n, time.Since(started))
	}()

	token, err := s.creds.Token(ctx, acct)
	if err != nil {
		log.Warn("No usable credential; skipping account", "error", err)
		return nil, err
	}
	fetched, err := adapter.Fetch(ctx, acct, token)
	if err != nil {
		log.Warn("Provider listing failed; skipping account", "error", err)
		return nil, err
	}
	if fetched.Rejected > 0 {
		log.Warn("Provider items rejected", "rejected", fetched.Rejected)
	}

	recs := fetched.Records
	paths := make([]string, 0, len(recs))
	claims := make(map[string]string, len(recs))
	for _, r := range recs {
		paths = append(paths, r.CanonicalPath)
		if r.CloudFileID != nil {
			claims[*r.CloudFileID] = r.CanonicalPath
		}
	}

	syncedAt := s.now().UTC()
	err = dbctx.Transact(ctx, s.db, func(dbc dbctx.Context) error {
		if _, err := s.records.ReleaseCloudIDs(dbc, claims); err != nil {
			return fmt.Errorf("release cloud ids: %w", err)
		}
		if err := s.records.UpsertByPath(dbc, recs); err != nil {
			return fmt.Errorf("upsert records: %w", err)
		}
		return s.accounts.TouchLastSynced(dbc, acct.ID, syncedAt)
	})
	if err != nil {
		log.Error("Sync batch rolled back", "records", len(recs), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	res = &SyncResult{
		AccountID: acct.ID,
		Source:    source,
		Upserted:  len(recs),
		Rejected:  fetched.Rejected,
		SyncedAt:  syncedAt,
		Outcome:   SyncOutcome(nil),
	}
	res.Indexed = s.mirror(ctx, log, ownerID, paths)
	log.Info("Account synced", "upserted", res.Upserted, "rejected", res.Rejected, "indexed", res.Indexed)
	return res, nil
}

func (s *syncService) account(ctx context.Context, ownerID, accountID uuid.UUID) (*types.LinkedAccount, error) {
	acct, err := s.accounts.GetByID(dbctx.Context{Ctx: ctx}, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && acct.OwnerID != ownerID) {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acct, nil
}

// mirror re-reads the committed rows so the index sees stored ids and
// timestamps. Failures only cost freshness.
func (s *syncService) mirror(ctx context.Context, log *logger.Logger, ownerID uuid.UUID, paths []string) int {
	if len(paths) == 0 {
		return 0
	}
	stored, err := s.records.GetByPaths(dbctx.Context{Ctx: ctx}, ownerID, paths)
	if err != nil {
		log.Warn("Reload for index failed", "error", err)
		s.metrics.IncIndexWriteError("sync")
		return 0
	}
	if err := s.index.Upsert(ctx, search.FromRecords(stored)); err != nil {
		log.Warn("Index write failed; store batch kept", "error", err)
		s.metrics.IncIndexWriteError("sync")
		return 0
	}
	return len(stored)
}

// SyncOutcome names how a pass ended; it labels metrics and the sync-now
// acknowledgment.
func SyncOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, providers.ErrCredentialExpired):
		return "credential_expired"
	case errors.Is(err, providers.ErrTransient):
		return "transient"
	case errors.Is(err, ErrStoreWrite):
		return "store_error"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		return "rejected"
	default:
		return "error"
	}
}
