package records

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

// Keeps IN lists and multi-row inserts under SQLite's bound-variable limit.
const batchSize = 400

type IndexedRecordRepo interface {
	// InsertNew inserts rows whose canonical path is not taken yet and leaves
	// existing rows untouched.
	InsertNew(dbc dbctx.Context, recs []*types.IndexedRecord) (int64, error)
	// UpsertByPath inserts rows or overwrites the mutable fields of existing
	// ones, resetting is_favorite.
	UpsertByPath(dbc dbctx.Context, recs []*types.IndexedRecord) error
	// ReleaseCloudIDs clears cloud_file_id on rows that hold one of ids under
	// a path other than the one the id is being moved to.
	ReleaseCloudIDs(dbc dbctx.Context, claims map[string]string) (int64, error)
	GetByPath(dbc dbctx.Context, ownerID uuid.UUID, path string) (*types.IndexedRecord, error)
	GetByPaths(dbc dbctx.Context, ownerID uuid.UUID, paths []string) ([]*types.IndexedRecord, error)
	ListByAccountID(dbc dbctx.Context, accountID uuid.UUID) ([]*types.IndexedRecord, error)
	DistinctOwnerIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	DeleteByAccountID(dbc dbctx.Context, accountID uuid.UUID) (int64, error)
	Scan(dbc dbctx.Context, filter types.RecordFilter) ([]*types.IndexedRecord, error)
	ToggleFavorite(dbc dbctx.Context, ownerID uuid.UUID, path string) (*types.IndexedRecord, error)
}

type indexedRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndexedRecordRepo(db *gorm.DB, baseLog *logger.Logger) IndexedRecordRepo {
	repoLog := baseLog.With("repo", "IndexedRecordRepo")
	return &indexedRecordRepo{db: db, log: repoLog}
}

func (r *indexedRecordRepo) InsertNew(dbc dbctx.Context, recs []*types.IndexedRecord) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(recs) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "canonical_path"}},
			DoNothing: true,
		}).
		CreateInBatches(recs, batchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

var upsertColumns = []string{
	"filename",
	"is_folder",
	"filetype",
	"cloud_file_id",
	"mime_type",
	"last_modified",
	"is_favorite",
	"updated_at",
}

func (r *indexedRecordRepo) UpsertByPath(dbc dbctx.Context, recs []*types.IndexedRecord) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(recs) == 0 {
		return nil
	}

	// One row per path, sorted, so concurrent passes lock rows in the same order.
	byPath := make(map[string]*types.IndexedRecord, len(recs))
	for _, rec := range recs {
		rec.IsFavorite = false
		byPath[rec.CanonicalPath] = rec
	}
	rows := make([]*types.IndexedRecord, 0, len(byPath))
	for _, rec := range byPath {
		rows = append(rows, rec)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CanonicalPath < rows[j].CanonicalPath })

	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "canonical_path"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		CreateInBatches(rows, batchSize).Error
}

func (r *indexedRecordRepo) ReleaseCloudIDs(dbc dbctx.Context, claims map[string]string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(claims) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(claims))
	for id := range claims {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var released int64
	for _, chunk := range chunkStrings(ids, batchSize) {
		var holders []*types.IndexedRecord
		if err := transaction.WithContext(dbc.Ctx).
			Select("id", "canonical_path", "cloud_file_id").
			Where("cloud_file_id IN ?", chunk).
			Find(&holders).Error; err != nil {
			return released, err
		}
		var stale []uuid.UUID
		for _, h := range holders {
			if h.CloudFileID == nil {
				continue
			}
			if claims[*h.CloudFileID] != h.CanonicalPath {
				stale = append(stale, h.ID)
			}
		}
		if len(stale) == 0 {
			continue
		}
		res := transaction.WithContext(dbc.Ctx).
			Model(&types.IndexedRecord{}).
			Where("id IN ?", stale).
			Update("cloud_file_id", nil)
		if res.Error != nil {
			return released, res.Error
		}
		released += res.RowsAffected
	}
	return released, nil
}

func (r *indexedRecordRepo) GetByPath(dbc dbctx.Context, ownerID uuid.UUID, path string) (*types.IndexedRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.IndexedRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("canonical_path = ? AND owner_id = ?", path, ownerID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *indexedRecordRepo) GetByPaths(dbc dbctx.Context, ownerID uuid.UUID, paths []string) ([]*types.IndexedRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.IndexedRecord
	for _, chunk := range chunkStrings(paths, batchSize) {
		var part []*types.IndexedRecord
		if err := transaction.WithContext(dbc.Ctx).
			Where("owner_id = ? AND canonical_path IN ?", ownerID, chunk).
			Find(&part).Error; err != nil {
			return nil, err
		}
		results = append(results, part...)
	}
	return results, nil
}

func (r *indexedRecordRepo) ListByAccountID(dbc dbctx.Context, accountID uuid.UUID) ([]*types.IndexedRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.IndexedRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("account_id = ?", accountID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *indexedRecordRepo) DistinctOwnerIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.IndexedRecord{}).
		Distinct("owner_id").
		Pluck("owner_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *indexedRecordRepo) DeleteByAccountID(dbc dbctx.Context, accountID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("account_id = ?", accountID).
		Delete(&types.IndexedRecord{})
	return res.RowsAffected, res.Error
}

func (r *indexedRecordRepo) Scan(dbc dbctx.Context, filter types.RecordFilter) ([]*types.IndexedRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Where("owner_id = ?", filter.OwnerID)
	if filter.StorageType != "" {
		q = q.Where("storage_type = ?", filter.StorageType)
	}
	if filter.Filetype != "" {
		q = q.Where("filetype = ?", filter.Filetype)
	}
	if filter.FilenameContains != "" {
		// '*' is the only wildcard glyph callers use; literal % and _ stay literal.
		pattern := "%" + strings.ReplaceAll(escapeLike(strings.ToLower(filter.FilenameContains)), "*", "%") + "%"
		q = q.Where(`LOWER(filename) LIKE ? ESCAPE '\'`, pattern)
	}
	var results []*types.IndexedRecord
	if err := q.Order("created_at ASC").Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *indexedRecordRepo) ToggleFavorite(dbc dbctx.Context, ownerID uuid.UUID, path string) (*types.IndexedRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out *types.IndexedRecord
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.IndexedRecord{}).
			Where("canonical_path = ? AND owner_id = ?", path, ownerID).
			Update("is_favorite", gorm.Expr("NOT is_favorite"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var rec types.IndexedRecord
		if err := tx.Where("canonical_path = ? AND owner_id = ?", path, ownerID).First(&rec).Error; err != nil {
			return err
		}
		out = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func chunkStrings(in []string, size int) [][]string {
	if len(in) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(in)+size-1)/size)
	for start := 0; start < len(in); start += size {
		end := start + size
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}
