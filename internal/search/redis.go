package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

const (
	keyPrefix     = "fidx:doc:"
	pipelineBatch = 500
)

type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	IndexName string
}

// RedisIndex stores one hash per document and queries it through RediSearch.
type RedisIndex struct {
	log  *logger.Logger
	rdb  *goredis.Client
	name string

	mu    sync.Mutex
	ready bool
}

// NewRedisIndex never fails on an unreachable server; the index is created
// lazily on first use so the backend can come and go at runtime.
func NewRedisIndex(log *logger.Logger, opts RedisOptions) (*RedisIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	name := strings.TrimSpace(opts.IndexName)
	if name == "" {
		name = "file_index"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		Protocol:    2,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 5 * time.Second,
	})
	idx := &RedisIndex{
		log:  log.With("component", "RedisIndex"),
		rdb:  rdb,
		name: name,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.ensureIndex(ctx); err != nil {
		idx.log.Warn("search index not ready at startup", "index", name, "error", err)
	}
	return idx, nil
}

func (x *RedisIndex) ensureIndex(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ready {
		return nil
	}
	err := x.rdb.FTCreate(ctx, x.name,
		&goredis.FTCreateOptions{OnHash: true, Prefix: []interface{}{keyPrefix}},
		&goredis.FieldSchema{FieldName: "filename", FieldType: goredis.SearchFieldTypeText},
		// Filenames may contain commas, the default tag separator.
		&goredis.FieldSchema{FieldName: "filename_lc", FieldType: goredis.SearchFieldTypeTag, Separator: "\x1f"},
		&goredis.FieldSchema{FieldName: "owner_id", FieldType: goredis.SearchFieldTypeTag},
		&goredis.FieldSchema{FieldName: "storage_type", FieldType: goredis.SearchFieldTypeTag},
		&goredis.FieldSchema{FieldName: "filetype", FieldType: goredis.SearchFieldTypeTag},
	).Err()
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "index already exists") {
		return fmt.Errorf("%w: create index: %v", ErrUnavailable, err)
	}
	x.ready = true
	return nil
}

func (x *RedisIndex) markStale(err error) {
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "no such index") &&
		!strings.Contains(strings.ToLower(err.Error()), "unknown index name") {
		return
	}
	x.mu.Lock()
	x.ready = false
	x.mu.Unlock()
}

func (x *RedisIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := x.ensureIndex(ctx); err != nil {
		return err
	}
	for start := 0; start < len(docs); start += pipelineBatch {
		end := start + pipelineBatch
		if end > len(docs) {
			end = len(docs)
		}
		pipe := x.rdb.Pipeline()
		for _, d := range docs[start:end] {
			pipe.HSet(ctx, keyPrefix+d.ID, toHash(d))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: hset: %v", ErrUnavailable, err)
		}
	}
	return nil
}

func (x *RedisIndex) Delete(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += pipelineBatch {
		end := start + pipelineBatch
		if end > len(ids) {
			end = len(ids)
		}
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, keyPrefix+id)
		}
		if err := x.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("%w: del: %v", ErrUnavailable, err)
		}
	}
	return nil
}

func (x *RedisIndex) Search(ctx context.Context, q Query) ([]Document, error) {
	if !Searchable(q.Text) {
		return nil, nil
	}
	if err := x.ensureIndex(ctx); err != nil {
		return nil, err
	}
	res, err := x.rdb.FTSearchWithArgs(ctx, x.name, BuildRedisQuery(q), &goredis.FTSearchOptions{
		Limit:          capLimit(q.Limit),
		DialectVersion: 2,
	}).Result()
	if err != nil {
		x.markStale(err)
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}
	out := make([]Document, 0, len(res.Docs))
	for _, hit := range res.Docs {
		d, err := fromHash(hit.Fields)
		if err != nil {
			x.log.Warn("skipping malformed index document", "key", hit.ID, "error", err)
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (x *RedisIndex) Ping(ctx context.Context) error {
	if err := x.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

func (x *RedisIndex) Close() error {
	return x.rdb.Close()
}

func toHash(d Document) map[string]interface{} {
	h := map[string]interface{}{
		"record_id":      d.RecordID.String(),
		"owner_id":       d.OwnerID.String(),
		"account_id":     "",
		"filename":       d.Filename,
		"filename_lc":    strings.ToLower(d.Filename),
		"canonical_path": d.CanonicalPath,
		"is_folder":      strconv.FormatBool(d.IsFolder),
		"filetype":       d.Filetype,
		"storage_type":   string(d.StorageType),
		"cloud_file_id":  d.CloudFileID,
		"mime_type":      d.MimeType,
		"last_modified":  "",
		"is_favorite":    strconv.FormatBool(d.IsFavorite),
		"created_at":     d.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if d.AccountID != nil {
		h["account_id"] = d.AccountID.String()
	}
	if d.LastModified != nil {
		h["last_modified"] = d.LastModified.UTC().Format(time.RFC3339Nano)
	}
	return h
}

func fromHash(f map[string]string) (Document, error) {
	var d Document
	var err error
	if d.RecordID, err = uuid.Parse(f["record_id"]); err != nil {
		return d, fmt.Errorf("record_id: %w", err)
	}
	if d.OwnerID, err = uuid.Parse(f["owner_id"]); err != nil {
		return d, fmt.Errorf("owner_id: %w", err)
	}
	if v := f["account_id"]; v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return d, fmt.Errorf("account_id: %w", err)
		}
		d.AccountID = &id
	}
	d.Filename = f["filename"]
	d.CanonicalPath = f["canonical_path"]
	d.Filetype = f["filetype"]
	d.StorageType = types.StorageType(f["storage_type"])
	d.CloudFileID = f["cloud_file_id"]
	d.MimeType = f["mime_type"]
	d.IsFolder, _ = strconv.ParseBool(f["is_folder"])
	d.IsFavorite, _ = strconv.ParseBool(f["is_favorite"])
	if v := f["last_modified"]; v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return d, fmt.Errorf("last_modified: %w", err)
		}
		d.LastModified = &ts
	}
	if v := f["created_at"]; v != "" {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			d.CreatedAt = ts
		}
	}
	if d.CanonicalPath == "" || !d.StorageType.Valid() {
		return d, fmt.Errorf("missing identity fields")
	}
	d.ID = DocID(d.StorageType, d.CanonicalPath)
	return d, nil
}
