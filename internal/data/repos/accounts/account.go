package accounts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

type LinkedAccountRepo interface {
	Create(dbc dbctx.Context, accts []*types.LinkedAccount) ([]*types.LinkedAccount, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LinkedAccount, error)
	ListByOwnerAndProvider(dbc dbctx.Context, ownerID uuid.UUID, provider types.Provider) ([]*types.LinkedAccount, error)
	DistinctOwnerIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	TouchLastSynced(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type linkedAccountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLinkedAccountRepo(db *gorm.DB, baseLog *logger.Logger) LinkedAccountRepo {
	repoLog := baseLog.With("repo", "LinkedAccountRepo")
	return &linkedAccountRepo{db: db, log: repoLog}
}

func (r *linkedAccountRepo) Create(dbc dbctx.Context, accts []*types.LinkedAccount) ([]*types.LinkedAccount, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(accts) == 0 {
		return []*types.LinkedAccount{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&accts).Error; err != nil {
		return nil, err
	}
	return accts, nil
}

func (r *linkedAccountRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LinkedAccount, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var acct types.LinkedAccount
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *linkedAccountRepo) ListByOwnerAndProvider(dbc dbctx.Context, ownerID uuid.UUID, provider types.Provider) ([]*types.LinkedAccount, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LinkedAccount
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_id = ? AND provider = ?", ownerID, provider).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *linkedAccountRepo) DistinctOwnerIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.LinkedAccount{}).
		Distinct("owner_id").
		Pluck("owner_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *linkedAccountRepo) TouchLastSynced(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.LinkedAccount{}).
		Where("id = ?", id).
		Update("last_synced_at", at.UTC()).Error
}

func (r *linkedAccountRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.LinkedAccount{}).Error
}
