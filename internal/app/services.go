package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/crawler"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/jobs/scheduler"
	"github.com/yungbote/unifind-backend/internal/jobs/worker"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/providers"
	"github.com/yungbote/unifind-backend/internal/search"
	"github.com/yungbote/unifind-backend/internal/services"
)

type Services struct {
	Pool      *worker.Pool
	Crawler   *crawler.Crawler
	Indexing  services.IndexingService
	Sync      services.SyncService
	Query     services.QueryService
	Files     services.FileService
	Accounts  services.AccountService
	Scheduler *scheduler.Scheduler
	Watcher   *crawler.Watcher
}

func wireIndex(log *logger.Logger, cfg Config) (search.Index, error) {
	switch cfg.SearchBackend {
	case SearchBackendRedis:
		log.Info("Using Redis search index", "addr", cfg.RedisAddr, "index", cfg.IndexName)
		return search.NewRedisIndex(log, search.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			IndexName: cfg.IndexName,
		})
	case SearchBackendMemory:
		log.Info("Using in-process search index")
		return search.NewMemoryIndex(), nil
	default:
		log.Warn("Search index disabled; queries are answered by the store alone")
		return search.Disabled{}, nil
	}
}

func wireProviders(log *logger.Logger, cfg Config) (*providers.Registry, *providers.DriveAdapter) {
	log.Info("Wiring provider adapters...")
	pcfg := providers.Config{PagesPerSecond: cfg.PagesPerSecond}
	drive := providers.NewDriveAdapter(log, pcfg)
	registry := providers.NewRegistry(
		drive,
		providers.NewDropboxAdapter(log, pcfg),
		providers.NewGmailAdapter(log, pcfg),
		providers.NewPhotosAdapter(log, pcfg),
	)
	return registry, drive
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, index search.Index, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	registry, drive := wireProviders(log, cfg)
	creds := providers.StoredCredentials{}

	pool := worker.NewPool(log, cfg.WorkerConcurrency, cfg.WorkerQueueSize, metrics)
	exclude := crawler.NewExclusions(cfg.ExcludeDirs, cfg.ExcludeFiles)
	c := crawler.New(log, db, r.Records, index, exclude, metrics)

	indexing := services.NewIndexingService(log, pool, c, cfg.LocalRoots, services.NewStatusTracker())
	syncSvc := services.NewSyncService(db, log, r.Records, r.Accounts, registry, creds, index, metrics)

	out := Services{
		Pool:     pool,
		Crawler:  c,
		Indexing: indexing,
		Sync:     syncSvc,
		Query:    services.NewQueryService(log, r.Records, index, metrics),
		Files:    services.NewFileService(log, r.Records, r.Accounts, creds, drive),
		Accounts: services.NewAccountService(db, log, r.Records, r.Accounts, index, metrics),
	}

	if cfg.SchedulerEnabled {
		syncFn := func(ctx context.Context, ownerID, accountID uuid.UUID, source types.StorageType) error {
			_, err := syncSvc.SyncAccount(ctx, ownerID, accountID, source)
			return err
		}
		out.Scheduler = scheduler.New(log, pool, r.Records, r.Accounts, indexing.CrawlRoot, syncFn, scheduler.Config{
			LocalInterval: cfg.LocalInterval,
			CloudInterval: cfg.CloudInterval,
			LocalRoots:    cfg.LocalRoots,
		})
	}

	if cfg.WatchEnabled {
		if out.Scheduler == nil {
			return out, fmt.Errorf("LOCAL_WATCH_ENABLED requires SCHEDULER_ENABLED")
		}
		sched := out.Scheduler
		w, err := crawler.NewWatcher(log, cfg.LocalRoots, exclude, 0, func(root string) {
			sched.TriggerLocalRoot(context.Background(), root)
		})
		if err != nil {
			return out, fmt.Errorf("init watcher: %w", err)
		}
		out.Watcher = w
	}
	return out, nil
}
