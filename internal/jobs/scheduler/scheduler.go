package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/jobs/worker"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

type CrawlFunc func(ctx context.Context, ownerID uuid.UUID, root string) error

type SyncFunc func(ctx context.Context, ownerID, accountID uuid.UUID, source types.StorageType) error

type Config struct {
	LocalInterval time.Duration
	CloudInterval time.Duration
	LocalRoots    []string
}

// periodicSources are synced on a timer. Gmail and Photos run only when an
// owner asks for them.
var periodicSources = []struct {
	provider types.Provider
	source   types.StorageType
}{
	{types.ProviderGoogle, types.StorageGoogleDrive},
	{types.ProviderDropbox, types.StorageDropbox},
}

// Scheduler runs one long-lived loop per periodic source category and hands
// every (owner, root) or (owner, account) pass to the shared pool.
type Scheduler struct {
	log      *logger.Logger
	pool     *worker.Pool
	records  repos.IndexedRecordRepo
	accounts repos.LinkedAccountRepo
	crawl    CrawlFunc
	sync     SyncFunc
	cfg      Config

	wg sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(baseLog *logger.Logger, pool *worker.Pool, records repos.IndexedRecordRepo, accounts repos.LinkedAccountRepo, crawl CrawlFunc, syncFn SyncFunc, cfg Config) *Scheduler {
	if cfg.LocalInterval <= 0 {
		cfg.LocalInterval = time.Hour
	}
	if cfg.CloudInterval <= 0 {
		cfg.CloudInterval = time.Hour
	}
	return &Scheduler{
		log:      baseLog.With("component", "SyncScheduler"),
		pool:     pool,
		records:  records,
		accounts: accounts,
		crawl:    crawl,
		sync:     syncFn,
		cfg:      cfg,
		inflight: map[string]struct{}{},
	}
}

// Start launches the loops and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx, "local", s.cfg.LocalInterval, s.localPass)
	for _, ps := range periodicSources {
		ps := ps
		s.wg.Add(1)
		go s.loop(ctx, string(ps.source), s.cfg.CloudInterval, func(ctx context.Context) error {
			return s.cloudPass(ctx, ps.provider, ps.source)
		})
	}
}

// Wait blocks until every loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, pass func(context.Context) error) {
	defer s.wg.Done()
	log := s.log.With("loop", name)
	log.Info("Sync loop started", "interval", every.String())
	for {
		if s.pool.Closed() {
			log.Info("Worker pool closed; sync loop exiting")
			return
		}
		if err := pass(ctx); err != nil {
			if errors.Is(err, worker.ErrPoolClosed) {
				log.Info("Worker pool closed; sync loop exiting")
				return
			}
			if ctx.Err() != nil {
				return
			}
			log.Warn("Sync pass failed", "error", err)
		}
		timer := time.NewTimer(every)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Sync loop stopped")
			return
		case <-timer.C:
		}
	}
}

// Owners is the union of owners that have records and owners that have
// linked accounts, so a fresh account is synced before it has any record.
func (s *Scheduler) Owners(ctx context.Context) ([]uuid.UUID, error) {
	dbc := dbctx.Context{Ctx: ctx}
	fromRecords, err := s.records.DistinctOwnerIDs(dbc)
	if err != nil {
		return nil, fmt.Errorf("record owners: %w", err)
	}
	fromAccounts, err := s.accounts.DistinctOwnerIDs(dbc)
	if err != nil {
		return nil, fmt.Errorf("account owners: %w", err)
	}
	seen := make(map[uuid.UUID]struct{}, len(fromRecords)+len(fromAccounts))
	out := make([]uuid.UUID, 0, len(fromRecords)+len(fromAccounts))
	for _, id := range append(fromRecords, fromAccounts...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *Scheduler) localPass(ctx context.Context) error {
	if len(s.cfg.LocalRoots) == 0 {
		return nil
	}
	owners, err := s.Owners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		for _, root := range s.cfg.LocalRoots {
			if err := s.submitCrawl(owner, root); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scheduler) cloudPass(ctx context.Context, provider types.Provider, source types.StorageType) error {
	owners, err := s.Owners(ctx)
	if err != nil {
		return err
	}
	for _, owner := range owners {
		accts, err := s.accounts.ListByOwnerAndProvider(dbctx.Context{Ctx: ctx}, owner, provider)
		if err != nil {
			s.log.Warn("List accounts failed", "owner_id", owner, "provider", provider, "error", err)
			continue
		}
		for _, a := range accts {
			ownerID, accountID := owner, a.ID
			key := fmt.Sprintf("sync:%s:%s", source, accountID)
			err := s.submit(key, func(ctx context.Context) error {
				return s.sync(ctx, ownerID, accountID, source)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// TriggerLocalRoot queues a crawl of root for every known owner.
func (s *Scheduler) TriggerLocalRoot(ctx context.Context, root string) {
	owners, err := s.Owners(ctx)
	if err != nil {
		s.log.Warn("Local trigger: owner lookup failed", "root", root, "error", err)
		return
	}
	for _, owner := range owners {
		if err := s.submitCrawl(owner, root); err != nil {
			s.log.Warn("Local trigger: submit failed", "root", root, "owner_id", owner, "error", err)
			return
		}
	}
}

func (s *Scheduler) submitCrawl(owner uuid.UUID, root string) error {
	key := fmt.Sprintf("crawl:%s:%s", owner, root)
	return s.submit(key, func(ctx context.Context) error {
		return s.crawl(ctx, owner, root)
	})
}

// submit skips work already queued or running under the same key. A full
// queue drops this one task; a closed pool is returned to end the loop.
func (s *Scheduler) submit(key string, run func(context.Context) error) error {
	s.mu.Lock()
	if _, busy := s.inflight[key]; busy {
		s.mu.Unlock()
		s.log.Debug("Task still in flight; skipping", "task", key)
		return nil
	}
	s.inflight[key] = struct{}{}
	s.mu.Unlock()

	err := s.pool.Submit(worker.Task{Name: key, Run: func(ctx context.Context) error {
		defer s.done(key)
		return run(ctx)
	}})
	if err == nil {
		return nil
	}
	s.done(key)
	if errors.Is(err, worker.ErrQueueFull) {
		s.log.Warn("Worker queue full; task dropped until next pass", "task", key)
		return nil
	}
	return err
}

func (s *Scheduler) done(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}
