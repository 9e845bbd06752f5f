package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/search"
)

type UnlinkResult struct {
	AccountID      uuid.UUID `json:"account_id"`
	RecordsDeleted int64     `json:"records_deleted"`
}

type AccountService interface {
	// Unlink removes the account and every record it produced in one
	// transaction, then drops the matching index documents.
	Unlink(ctx context.Context, ownerID, accountID uuid.UUID) (*UnlinkResult, error)
}

type accountService struct {
	db       *gorm.DB
	log      *logger.Logger
	records  repos.IndexedRecordRepo
	accounts repos.LinkedAccountRepo
	index    search.Index
	metrics  *observability.Metrics
}

func NewAccountService(db *gorm.DB, log *logger.Logger, records repos.IndexedRecordRepo, accounts repos.LinkedAccountRepo, index search.Index, metrics *observability.Metrics) AccountService {
	serviceLog := log.With("service", "AccountService")
	if index == nil {
		index = search.Disabled{}
	}
	return &accountService{
		db:       db,
		log:      serviceLog,
		records:  records,
		accounts: accounts,
		index:    index,
		metrics:  metrics,
	}
}

func (s *accountService) Unlink(ctx context.Context, ownerID, accountID uuid.UUID) (*UnlinkResult, error) {
	var (
		docIDs  []string
		deleted int64
	)
	err := dbctx.Transact(ctx, s.db, func(dbc dbctx.Context) error {
		docIDs = docIDs[:0]
		acct, err := s.accounts.GetByID(dbc, accountID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && acct.OwnerID != ownerID) {
			return fmt.Errorf("%w: account %s", ErrNotFound, accountID)
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		recs, err := s.records.ListByAccountID(dbc, accountID)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		for _, r := range recs {
			docIDs = append(docIDs, search.DocID(r.StorageType, r.CanonicalPath))
		}
		if deleted, err = s.records.DeleteByAccountID(dbc, accountID); err != nil {
			return fmt.Errorf("%w: delete records: %w", ErrStoreWrite, err)
		}
		if err := s.accounts.Delete(dbc, accountID); err != nil {
			return fmt.Errorf("%w: delete account: %w", ErrStoreWrite, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(docIDs) > 0 {
		if err := s.index.Delete(ctx, docIDs); err != nil {
			s.log.Warn("Index cleanup failed after unlink", "account_id", accountID, "documents", len(docIDs), "error", err)
			s.metrics.IncIndexWriteError("unlink")
		}
	}
	s.log.Info("Account unlinked", "owner_id", ownerID, "account_id", accountID, "records_deleted", deleted)
	return &UnlinkResult{AccountID: accountID, RecordsDeleted: deleted}, nil
}
