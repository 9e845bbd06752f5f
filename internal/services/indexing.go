package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/unifind-backend/internal/crawler"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/jobs/worker"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

type LocalCrawler interface {
	Crawl(ctx context.Context, ownerID uuid.UUID, root string) (crawler.Result, error)
}

type IndexingService interface {
	// Start queues a crawl of every configured root and returns once the
	// work is accepted.
	Start(ctx context.Context, ownerID uuid.UUID) (types.IndexStatus, error)
	Status(ctx context.Context, ownerID uuid.UUID) types.IndexStatus
	// CrawlRoot runs one crawl synchronously; scheduler and watcher passes
	// use it and leave the status untouched.
	CrawlRoot(ctx context.Context, ownerID uuid.UUID, root string) error
}

type indexingService struct {
	log     *logger.Logger
	pool    *worker.Pool
	crawler LocalCrawler
	roots   []string
	status  *StatusTracker
}

func NewIndexingService(log *logger.Logger, pool *worker.Pool, c LocalCrawler, roots []string, status *StatusTracker) IndexingService {
	serviceLog := log.With("service", "IndexingService")
	if status == nil {
		status = NewStatusTracker()
	}
	return &indexingService{
		log:     serviceLog,
		pool:    pool,
		crawler: c,
		roots:   append([]string(nil), roots...),
		status:  status,
	}
}

func (s *indexingService) Start(ctx context.Context, ownerID uuid.UUID) (types.IndexStatus, error) {
	if ownerID == uuid.Nil {
		return "", fmt.Errorf("%w: owner required", ErrInvalidInput)
	}
	if len(s.roots) == 0 {
		return "", fmt.Errorf("%w: no local roots configured", ErrInvalidInput)
	}
	prev, started := s.status.Begin(ownerID)
	if !started {
		s.log.Debug("Indexing already running", "owner_id", ownerID, "status", prev)
		return prev, nil
	}

	err := s.pool.Submit(worker.Task{
		Name: "index:" + ownerID.String(),
		Run: func(ctx context.Context) error {
			return s.run(ctx, ownerID)
		},
	})
	if err != nil {
		s.status.Set(ownerID, prev)
		s.log.Warn("Indexing not accepted", "owner_id", ownerID, "error", err)
		return prev, err
	}
	s.log.Info("Indexing accepted", "owner_id", ownerID, "roots", len(s.roots))
	return types.IndexStarting, nil
}

// run crawls the roots in order. A failing root is logged and skipped; the
// owner still ends up completed.
func (s *indexingService) run(ctx context.Context, ownerID uuid.UUID) error {
	s.status.Set(ownerID, types.IndexInProgress)
	defer s.status.Set(ownerID, types.IndexCompleted)

	var failed []error
	for _, root := range s.roots {
		res, err := s.crawler.Crawl(ctx, ownerID, root)
		if err != nil {
			s.log.Warn("Crawl failed", "owner_id", ownerID, "root", root, "error", err)
			failed = append(failed, fmt.Errorf("%s: %w", root, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		s.log.Info("Crawl finished", "owner_id", ownerID, "root", res.Root, "discovered", res.Discovered, "inserted", res.Inserted, "indexed", res.Indexed)
	}
	return errors.Join(failed...)
}

func (s *indexingService) Status(ctx context.Context, ownerID uuid.UUID) types.IndexStatus {
	return s.status.Get(ownerID)
}

func (s *indexingService) CrawlRoot(ctx context.Context, ownerID uuid.UUID, root string) error {
	res, err := s.crawler.Crawl(ctx, ownerID, root)
	if err != nil {
		return err
	}
	s.log.Debug("Scheduled crawl finished", "owner_id", ownerID, "root", res.Root, "inserted", res.Inserted)
	return nil
}
