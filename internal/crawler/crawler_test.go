package crawler

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/search"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

type fixture struct {
	db      *gorm.DB
	records repos.IndexedRecordRepo
	index   *search.MemoryIndex
	crawler *Crawler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	records := repos.NewIndexedRecordRepo(db, log)
	index := search.NewMemoryIndex()
	return fixture{
		db:      db,
		records: records,
		index:   index,
		crawler: New(log, db, records, index, NewExclusions(nil, nil), nil),
	}
}

func (f fixture) all(t *testing.T, owner uuid.UUID) []*types.IndexedRecord {
	t.Helper()
	rows, err := f.records.Scan(dbctx.Context{Ctx: context.Background()}, types.RecordFilter{OwnerID: owner})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CanonicalPath < rows[j].CanonicalPath })
	return rows
}

func TestCrawlExcludedSubfolderAndExtensions(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	writeFile(t, filepath.Join(root, "b.PDF"))
	writeFile(t, filepath.Join(root, "node_modules", "c.txt"))

	owner := uuid.New()
	res, err := f.crawler.Crawl(context.Background(), owner, root)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Inserted != 2 {
		t.Fatalf("inserted = %d", res.Inserted)
	}
	rows := f.all(t, owner)
	if len(rows) != 2 {
		t.Fatalf("records = %d", len(rows))
	}
	want := map[string]string{"a.txt": "txt", "b.PDF": "pdf"}
	for _, r := range rows {
		if want[r.Filename] != r.Filetype {
			t.Fatalf("%s filetype = %q", r.Filename, r.Filetype)
		}
		if r.StorageType != types.StorageLocal || r.AccountID != nil || r.CloudFileID != nil {
			t.Fatalf("local record carries cloud fields: %+v", r)
		}
	}
	if f.index.Len() != 2 {
		t.Fatalf("indexed = %d", f.index.Len())
	}
}

func TestCrawlPrunesHiddenAndDeepExclusions(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "report.docx"))
	writeFile(t, filepath.Join(root, "docs", "deep", "nested", ".git", "HEAD"))
	writeFile(t, filepath.Join(root, ".hidden", "secret.txt"))
	writeFile(t, filepath.Join(root, ".profile"))
	writeFile(t, filepath.Join(root, "Thumbs.db"))
	writeFile(t, filepath.Join(root, "Makefile"))

	owner := uuid.New()
	if _, err := f.crawler.Crawl(context.Background(), owner, root); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	got := map[string]*types.IndexedRecord{}
	for _, r := range f.all(t, owner) {
		rel, _ := filepath.Rel(root, r.CanonicalPath)
		got[rel] = r
	}
	for _, rel := range []string{"docs", "docs/report.docx", "docs/deep", "docs/deep/nested", "Makefile"} {
		if _, ok := got[filepath.FromSlash(rel)]; !ok {
			t.Fatalf("missing %s in %v", rel, keys(got))
		}
	}
	if len(got) != 5 {
		t.Fatalf("unexpected records: %v", keys(got))
	}
	if d := got["docs"]; !d.IsFolder || d.Filetype != types.FiletypeFolder {
		t.Fatalf("folder record = %+v", d)
	}
	if m := got["Makefile"]; m.Filetype != "" {
		t.Fatalf("extensionless filetype = %q", m.Filetype)
	}
}

func TestCrawlIsAdditiveOnly(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	writeFile(t, filepath.Join(root, "sub", "b.md"))
	owner := uuid.New()
	ctx := context.Background()

	if _, err := f.crawler.Crawl(ctx, owner, root); err != nil {
		t.Fatalf("first Crawl: %v", err)
	}
	first := f.all(t, owner)

	// A changed file is not revised.
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("changed content"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	res, err := f.crawler.Crawl(ctx, owner, root)
	if err != nil {
		t.Fatalf("second Crawl: %v", err)
	}
	if res.Inserted != 0 {
		t.Fatalf("second pass inserted %d", res.Inserted)
	}
	second := f.all(t, owner)
	if len(first) != len(second) {
		t.Fatalf("count changed %d -> %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.ID != b.ID || a.Filetype != b.Filetype || a.Filename != b.Filename ||
			!a.UpdatedAt.Equal(b.UpdatedAt) || !equalTime(a.LastModified, b.LastModified) {
			t.Fatalf("record revised:\n%+v\n%+v", a, b)
		}
	}

	// A new file is picked up on the next pass.
	writeFile(t, filepath.Join(root, "sub", "c.csv"))
	res, err = f.crawler.Crawl(ctx, owner, root)
	if err != nil || res.Inserted != 1 {
		t.Fatalf("third Crawl: inserted=%d err=%v", res.Inserted, err)
	}
}

func TestCrawlKeepsStoreBatchWhenIndexDown(t *testing.T) {
	f := newFixture(t)
	f.index.SetAvailable(false)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	owner := uuid.New()

	res, err := f.crawler.Crawl(context.Background(), owner, root)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Inserted != 1 || res.Indexed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(f.all(t, owner)) != 1 {
		t.Fatalf("store batch rolled back")
	}
}

func TestCrawlRejectsMissingRoot(t *testing.T) {
	f := newFixture(t)
	if _, err := f.crawler.Crawl(context.Background(), uuid.New(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestFileExtension(t *testing.T) {
	cases := map[string]string{
		"a.TXT":          "txt",
		"archive.tar.gz": "gz",
		"Makefile":       "",
		"trailing.":      "",
	}
	for in, want := range cases {
		if got := FileExtension(in); got != want {
			t.Fatalf("FileExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func keys(m map[string]*types.IndexedRecord) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
