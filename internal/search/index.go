package search

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

// ErrUnavailable marks any failure of the index backend. Callers treat it as
// "fall back to the store", never as a hard error.
var ErrUnavailable = errors.New("search index unavailable")

// MaxCandidates caps how many documents a single Search returns.
const MaxCandidates = 100

type Document struct {
	ID            string
	RecordID      uuid.UUID
	OwnerID       uuid.UUID
	AccountID     *uuid.UUID
	Filename      string
	CanonicalPath string
	IsFolder      bool
	Filetype      string
	StorageType   types.StorageType
	CloudFileID   string
	MimeType      string
	LastModified  *time.Time
	IsFavorite    bool
	CreatedAt     time.Time
}

type Query struct {
	OwnerID     uuid.UUID
	Text        string
	StorageType types.StorageType
	Filetype    string
	Limit       int
}

type Index interface {
	Upsert(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, ids []string) error
	Search(ctx context.Context, q Query) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// DocID is stable per (storage type, path) so re-indexing overwrites.
func DocID(st types.StorageType, path string) string {
	return string(st) + "::" + path
}

func FromRecord(r *types.IndexedRecord) Document {
	d := Document{
		ID:            DocID(r.StorageType, r.CanonicalPath),
		RecordID:      r.ID,
		OwnerID:       r.OwnerID,
		AccountID:     r.AccountID,
		Filename:      r.Filename,
		CanonicalPath: r.CanonicalPath,
		IsFolder:      r.IsFolder,
		Filetype:      r.Filetype,
		StorageType:   r.StorageType,
		LastModified:  r.LastModified,
		IsFavorite:    r.IsFavorite,
		CreatedAt:     r.CreatedAt,
	}
	if r.CloudFileID != nil {
		d.CloudFileID = *r.CloudFileID
	}
	if r.MimeType != nil {
		d.MimeType = *r.MimeType
	}
	return d
}

func FromRecords(recs []*types.IndexedRecord) []Document {
	out := make([]Document, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		out = append(out, FromRecord(r))
	}
	return out
}

// Record converts an index hit back into the record shape returned to clients.
func (d Document) Record() *types.IndexedRecord {
	r := &types.IndexedRecord{
		ID:            d.RecordID,
		OwnerID:       d.OwnerID,
		AccountID:     d.AccountID,
		Filename:      d.Filename,
		CanonicalPath: d.CanonicalPath,
		IsFolder:      d.IsFolder,
		Filetype:      d.Filetype,
		StorageType:   d.StorageType,
		LastModified:  d.LastModified,
		IsFavorite:    d.IsFavorite,
		CreatedAt:     d.CreatedAt,
	}
	if d.CloudFileID != "" {
		v := d.CloudFileID
		r.CloudFileID = &v
	}
	if d.MimeType != "" {
		v := d.MimeType
		r.MimeType = &v
	}
	return r
}

func capLimit(n int) int {
	if n <= 0 || n > MaxCandidates {
		return MaxCandidates
	}
	return n
}
