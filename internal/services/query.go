package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/search"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

type SearchParams struct {
	Query       string
	Limit       int
	Offset      int
	StorageType types.StorageType
	Filetype    string
}

type SearchPage struct {
	Results    []*types.IndexedRecord `json:"results"`
	Offset     int                    `json:"offset"`
	Limit      int                    `json:"limit"`
	HasMore    bool                   `json:"has_more"`
	Total      int                    `json:"total"`
	NextOffset *int                   `json:"next_offset"`
}

type QueryService interface {
	Search(ctx context.Context, ownerID uuid.UUID, p SearchParams) (*SearchPage, error)
	// ToggleFavorite flips the stored flag only. The index copy catches up on
	// the next sync that touches the record.
	ToggleFavorite(ctx context.Context, ownerID uuid.UUID, path string) (*types.IndexedRecord, error)
}

type queryService struct {
	log     *logger.Logger
	records repos.IndexedRecordRepo
	index   search.Index
	metrics *observability.Metrics
}

func NewQueryService(log *logger.Logger, records repos.IndexedRecordRepo, index search.Index, metrics *observability.Metrics) QueryService {
	serviceLog := log.With("service", "QueryService")
	if index == nil {
		index = search.Disabled{}
	}
	return &queryService{
		log:     serviceLog,
		records: records,
		index:   index,
		metrics: metrics,
	}
}

func (p SearchParams) normalize() (SearchParams, error) {
	p.Query = strings.TrimSpace(p.Query)
	if p.Query == "" {
		return p, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if p.Offset < 0 {
		return p, fmt.Errorf("%w: offset must be >= 0", ErrInvalidInput)
	}
	switch {
	case p.Limit < 0:
		return p, fmt.Errorf("%w: limit must be >= 0", ErrInvalidInput)
	case p.Limit == 0:
		p.Limit = DefaultSearchLimit
	case p.Limit > MaxSearchLimit:
		p.Limit = MaxSearchLimit
	}
	p.StorageType = types.StorageType(strings.ToLower(strings.TrimSpace(string(p.StorageType))))
	if p.StorageType != "" && !p.StorageType.Valid() {
		return p, fmt.Errorf("%w: unknown storage_type %q", ErrInvalidInput, p.StorageType)
	}
	p.Filetype = strings.ToLower(strings.TrimSpace(p.Filetype))
	return p, nil
}

func (s *queryService) Search(ctx context.Context, ownerID uuid.UUID, p SearchParams) (page *SearchPage, err error) {
	p, err = p.normalize()
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "query.search",
		attribute.String("owner_id", ownerID.String()),
		attribute.Int("limit", p.Limit),
		attribute.Int("offset", p.Offset),
	)
	defer func() { observability.EndSpan(span, err) }()

	indexed, indexErr := s.index.Search(ctx, search.Query{
		OwnerID:     ownerID,
		Text:        p.Query,
		StorageType: p.StorageType,
		Filetype:    p.Filetype,
		Limit:       search.MaxCandidates,
	})
	if indexErr != nil {
		s.log.Warn("Search index unavailable; serving store results only", "owner_id", ownerID, "error", indexErr)
		s.metrics.IncIndexFallback()
	}

	// The store scan always runs; it covers whatever the index has not seen.
	stored, storeErr := s.records.Scan(dbctx.Context{Ctx: ctx}, types.RecordFilter{
		OwnerID:          ownerID,
		StorageType:      p.StorageType,
		Filetype:         p.Filetype,
		FilenameContains: p.Query,
	})
	if storeErr != nil {
		if indexErr != nil {
			return nil, fmt.Errorf("search: index: %v; store: %w", indexErr, storeErr)
		}
		s.log.Warn("Store scan failed; serving index results only", "owner_id", ownerID, "error", storeErr)
	}

	merged := Merge(indexed, stored)
	span.SetAttributes(attribute.Int("index_hits", len(indexed)), attribute.Int("store_hits", len(stored)))
	return Paginate(merged, p.Offset, p.Limit), nil
}

// Merge puts index hits first, then store rows the index did not return.
// Identity is (storage type, canonical path); the index copy wins.
func Merge(indexed []search.Document, stored []*types.IndexedRecord) []*types.IndexedRecord {
	seen := make(map[string]struct{}, len(indexed)+len(stored))
	out := make([]*types.IndexedRecord, 0, len(indexed)+len(stored))
	for _, d := range indexed {
		id := search.DocID(d.StorageType, d.CanonicalPath)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, d.Record())
	}
	for _, r := range stored {
		id := search.DocID(r.StorageType, r.CanonicalPath)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

func Paginate(all []*types.IndexedRecord, offset, limit int) *SearchPage {
	total := len(all)
	start := min(offset, total)
	end := min(start+limit, total)
	page := &SearchPage{
		Results: all[start:end],
		Offset:  offset,
		Limit:   limit,
		Total:   total,
	}
	page.HasMore = offset+len(page.Results) < total
	if page.HasMore {
		next := offset + len(page.Results)
		page.NextOffset = &next
	}
	return page
}

func (s *queryService) ToggleFavorite(ctx context.Context, ownerID uuid.UUID, path string) (*types.IndexedRecord, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidInput)
	}
	rec, err := s.records.ToggleFavorite(dbctx.Context{Ctx: ctx}, ownerID, path)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}
	s.log.Debug("Favorite toggled", "owner_id", ownerID, "path", path, "is_favorite", rec.IsFavorite)
	return rec, nil
}
