package crawler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
)

func TestWatcherTriggersRootOnCreate(t *testing.T) {
	root := t.TempDir()
	triggered := make(chan string, 4)
	w, err := NewWatcher(testutil.Logger(t), []string{root}, NewExclusions(nil, nil), 20*time.Millisecond, func(r string) {
		triggered <- r
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, filepath.Join(root, "new.txt"))

	select {
	case got := <-triggered:
		abs, _ := filepath.Abs(root)
		if got != abs {
			t.Fatalf("triggered root = %q, want %q", got, abs)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no trigger after create")
	}
}

func TestWatcherExcludedPaths(t *testing.T) {
	w := &Watcher{exclude: NewExclusions(nil, nil)}
	root := filepath.FromSlash("/home/u")
	cases := map[string]bool{
		"/home/u/a.txt":              false,
		"/home/u/node_modules/x.js":  true,
		"/home/u/src/.git/HEAD":      true,
		"/home/u/.DS_Store":          true,
		"/home/u/docs/report.pdf":    false,
		"/home/u/docs/Library/a.txt": true,
	}
	for p, want := range cases {
		if got := w.excluded(root, filepath.FromSlash(p)); got != want {
			t.Fatalf("excluded(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestExclusionsOverride(t *testing.T) {
	ex := NewExclusions([]string{"build"}, []string{"DESKTOP.INI"})
	if !ex.SkipDir("build") || ex.SkipDir("node_modules") {
		t.Fatalf("dir override not applied")
	}
	if !ex.SkipFile("desktop.ini") || ex.SkipFile("thumbs.db") {
		t.Fatalf("file override not applied")
	}
	if !ex.SkipFile(".env") || !ex.SkipDir(".secret") {
		t.Fatalf("hidden names must always be skipped")
	}
}
