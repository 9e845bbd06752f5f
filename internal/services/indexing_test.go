package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/unifind-backend/internal/crawler"
	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/jobs/worker"
)

type gatedCrawler struct {
	release chan struct{}
	fail    map[string]bool

	mu    sync.Mutex
	roots []string
}

func (g *gatedCrawler) Crawl(ctx context.Context, ownerID uuid.UUID, root string) (crawler.Result, error) {
	<-g.release
	g.mu.Lock()
	g.roots = append(g.roots, root)
	g.mu.Unlock()
	if g.fail[root] {
		return crawler.Result{}, errors.New("permission denied")
	}
	return crawler.Result{Root: root, Discovered: 1, Inserted: 1}, nil
}

func (g *gatedCrawler) crawled() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.roots...)
}

func waitStatus(t *testing.T, svc IndexingService, owner uuid.UUID, want types.IndexStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Status(context.Background(), owner) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status never reached %q (last %q)", want, svc.Status(context.Background(), owner))
}

func TestIndexingLifecycle(t *testing.T) {
	log := testutil.Logger(t)
	pool := worker.NewPool(log, 2, 8, nil)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	c := &gatedCrawler{release: make(chan struct{}), fail: map[string]bool{"/broken": true}}
	svc := NewIndexingService(log, pool, c, []string{"/broken", "/home/u"}, nil)
	owner := uuid.New()

	if got := svc.Status(context.Background(), owner); got != types.IndexNotStarted {
		t.Fatalf("initial status = %q", got)
	}
	st, err := svc.Start(context.Background(), owner)
	if err != nil || st != types.IndexStarting {
		t.Fatalf("start: %q %v", st, err)
	}
	waitStatus(t, svc, owner, types.IndexInProgress)

	// A second start while running is accepted without queueing more work.
	st, err = svc.Start(context.Background(), owner)
	if err != nil || st != types.IndexInProgress {
		t.Fatalf("restart while running: %q %v", st, err)
	}

	close(c.release)
	waitStatus(t, svc, owner, types.IndexCompleted)
	roots := c.crawled()
	if len(roots) != 2 || roots[0] != "/broken" || roots[1] != "/home/u" {
		t.Fatalf("a failing root must not stop the others: %v", roots)
	}
}

func TestIndexingStartErrors(t *testing.T) {
	log := testutil.Logger(t)
	pool := worker.NewPool(log, 1, 1, nil)
	c := &gatedCrawler{release: make(chan struct{})}
	close(c.release)

	noRoots := NewIndexingService(log, pool, c, nil, nil)
	if _, err := noRoots.Start(context.Background(), uuid.New()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	if err := pool.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	svc := NewIndexingService(log, pool, c, []string{"/x"}, nil)
	owner := uuid.New()
	if _, err := svc.Start(context.Background(), owner); !errors.Is(err, worker.ErrPoolClosed) {
		t.Fatalf("expected pool closed, got %v", err)
	}
	if got := svc.Status(context.Background(), owner); got != types.IndexNotStarted {
		t.Fatalf("rejected start must restore the status, got %q", got)
	}
}
