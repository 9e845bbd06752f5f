package crawler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
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

type Result struct {
	Root       string
	Discovered int
	Inserted   int64
	Indexed    int
}

// Crawler walks a local tree and adds records for entries the owner has not
// seen before. Existing records are never revised.
type Crawler struct {
	log     *logger.Logger
	db      *gorm.DB
	records repos.IndexedRecordRepo
	index   search.Index
	exclude Exclusions
	metrics *observability.Metrics
}

func New(log *logger.Logger, db *gorm.DB, records repos.IndexedRecordRepo, index search.Index, exclude Exclusions, metrics *observability.Metrics) *Crawler {
	return &Crawler{
		log:     log.With("component", "Crawler"),
		db:      db,
		records: records,
		index:   index,
		exclude: exclude,
		metrics: metrics,
	}
}

func (c *Crawler) Crawl(ctx context.Context, ownerID uuid.UUID, root string) (res Result, err error) {
	ctx, span := observability.StartSpan(ctx, "crawler.crawl",
		attribute.String("owner_id", ownerID.String()),
		attribute.String("root", root),
	)
	defer func() { observability.EndSpan(span, err) }()

	abs, err := filepath.Abs(root)
	if err != nil {
		return res, fmt.Errorf("resolve root %q: %w", root, err)
	}
	res.Root = abs
	info, err := os.Stat(abs)
	if err != nil {
		return res, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("root %q is not a directory", abs)
	}

	candidates, err := c.walk(ctx, ownerID, abs)
	if err != nil {
		return res, err
	}
	res.Discovered = len(candidates)
	if len(candidates) == 0 {
		return res, nil
	}

	var inserted []*types.IndexedRecord
	err = dbctx.Transact(ctx, c.db, func(dbc dbctx.Context) error {
		inserted, res.Inserted = nil, 0
		paths := make([]string, 0, len(candidates))
		for _, r := range candidates {
			paths = append(paths, r.CanonicalPath)
		}
		existing, err := c.records.GetByPaths(dbc, ownerID, paths)
		if err != nil {
			return fmt.Errorf("lookup existing: %w", err)
		}
		seen := make(map[string]struct{}, len(existing))
		for _, r := range existing {
			seen[r.CanonicalPath] = struct{}{}
		}
		fresh := make([]*types.IndexedRecord, 0, len(candidates))
		freshPaths := make([]string, 0, len(candidates))
		for _, r := range candidates {
			if _, ok := seen[r.CanonicalPath]; ok {
				continue
			}
			fresh = append(fresh, r)
			freshPaths = append(freshPaths, r.CanonicalPath)
		}
		if len(fresh) == 0 {
			return nil
		}
		n, err := c.records.InsertNew(dbc, fresh)
		if err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
		res.Inserted = n
		inserted, err = c.records.GetByPaths(dbc, ownerID, freshPaths)
		if err != nil {
			return fmt.Errorf("reload inserted: %w", err)
		}
		return nil
	})
	if err != nil {
		res.Inserted = 0
		return res, err
	}
	c.metrics.AddCrawlInserted(res.Inserted)

	if len(inserted) > 0 {
		if ierr := c.index.Upsert(ctx, search.FromRecords(inserted)); ierr != nil {
			c.metrics.IncIndexWriteError("crawler")
			c.log.Warn("index mirror failed; store batch kept",
				"owner_id", ownerID, "root", abs, "records", len(inserted), "error", ierr)
		} else {
			res.Indexed = len(inserted)
		}
	}

	c.log.Info("crawl finished",
		"owner_id", ownerID, "root", abs,
		"discovered", res.Discovered, "inserted", res.Inserted, "indexed", res.Indexed)
	return res, nil
}

func (c *Crawler) walk(ctx context.Context, ownerID uuid.UUID, root string) ([]*types.IndexedRecord, error) {
	var out []*types.IndexedRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			c.log.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if c.exclude.SkipDir(name) {
				return filepath.SkipDir
			}
			out = append(out, newRecord(ownerID, path, name, true, d))
			return nil
		}
		if c.exclude.SkipFile(name) {
			return nil
		}
		if d.Type()&(fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeIrregular) != 0 {
			return nil
		}
		out = append(out, newRecord(ownerID, path, name, false, d))
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipDir) {
		return nil, fmt.Errorf("walk %q: %w", root, err)
	}
	return out, nil
}

func newRecord(ownerID uuid.UUID, path, name string, isDir bool, d fs.DirEntry) *types.IndexedRecord {
	rec := &types.IndexedRecord{
		OwnerID:       ownerID,
		Filename:      name,
		CanonicalPath: path,
		IsFolder:      isDir,
		Filetype:      types.FiletypeFolder,
		StorageType:   types.StorageLocal,
	}
	if !isDir {
		rec.Filetype = FileExtension(name)
	}
	if info, err := d.Info(); err == nil {
		mod := info.ModTime().UTC()
		rec.LastModified = &mod
	}
	return rec
}

// FileExtension returns the lowercase extension without its dot, or "".
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
