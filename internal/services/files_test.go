package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/unifind-backend/internal/data/repos/testutil"
	types "github.com/yungbote/unifind-backend/internal/domain"
)

type fakeDrive struct {
	token, fileID string
}

func (f *fakeDrive) Download(ctx context.Context, token, fileID string) (io.ReadCloser, string, error) {
	f.token, f.fileID = token, fileID
	return io.NopCloser(strings.NewReader("drive-bytes")), "application/pdf", nil
}

func TestResolvePerStorageType(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	dir := t.TempDir()
	local := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(local, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.SeedLocalRecord(t, e.ctx, e.db, owner, local)
	testutil.SeedLocalRecord(t, e.ctx, e.db, owner, filepath.Join(dir, "deleted.txt"))
	google := testutil.SeedAccount(t, e.ctx, e.db, owner, types.ProviderGoogle)
	dropbox := testutil.SeedAccount(t, e.ctx, e.db, owner, types.ProviderDropbox)
	testutil.SeedCloudRecord(t, e.ctx, e.db, google, types.StorageGoogleDrive, "abc123", "Plan.pdf")
	testutil.SeedCloudRecord(t, e.ctx, e.db, dropbox, types.StorageDropbox, "/Work Docs/Plan.pdf", "Plan.pdf")
	testutil.SeedCloudRecord(t, e.ctx, e.db, google, types.StorageGmail, "m42/1", "scan.png")
	testutil.SeedCloudRecord(t, e.ctx, e.db, google, types.StorageGooglePhotos, "ph9", "IMG_1.jpg")

	svc := NewFileService(e.log, e.records, e.accounts, nil, nil)
	cases := []struct {
		path, kind, want string
	}{
		{local, OpenLocal, local},
		{types.CloudPath(types.StorageGoogleDrive, "abc123"), OpenURL, "https://drive.google.com/uc?id=abc123"},
		{types.CloudPath(types.StorageDropbox, "/Work Docs/Plan.pdf"), OpenURL, "https://www.dropbox.com/home/Work%20Docs?preview=Plan.pdf"},
		{types.CloudPath(types.StorageGmail, "m42/1"), OpenURL, "https://mail.google.com/mail/u/0/#all/m42"},
		{types.CloudPath(types.StorageGooglePhotos, "ph9"), OpenURL, "https://photos.google.com/lr/photo/ph9"},
	}
	for _, tc := range cases {
		got, err := svc.Resolve(e.ctx, owner, tc.path)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		val := got.URL
		if tc.kind == OpenLocal {
			val = got.Path
		}
		if got.Kind != tc.kind || val != tc.want {
			t.Errorf("%s: got %+v, want %s %s", tc.path, got, tc.kind, tc.want)
		}
	}

	if _, err := svc.Resolve(e.ctx, owner, filepath.Join(dir, "deleted.txt")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing local file: expected not found, got %v", err)
	}
	if _, err := svc.Resolve(e.ctx, uuid.New(), local); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner: expected not found, got %v", err)
	}
}

func TestDownloadLocalAndDrive(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	local := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(local, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.SeedLocalRecord(t, e.ctx, e.db, owner, local)
	acct := testutil.SeedAccount(t, e.ctx, e.db, owner, types.ProviderGoogle)
	drive := testutil.SeedCloudRecord(t, e.ctx, e.db, acct, types.StorageGoogleDrive, "d1", "Deck.pdf")
	gmail := testutil.SeedCloudRecord(t, e.ctx, e.db, acct, types.StorageGmail, "m1/2", "a.pdf")

	fd := &fakeDrive{}
	svc := NewFileService(e.log, e.records, e.accounts, nil, fd)

	dl, err := svc.Download(e.ctx, owner, local)
	if err != nil {
		t.Fatalf("local download: %v", err)
	}
	body, _ := io.ReadAll(dl.Body)
	dl.Body.Close()
	if string(body) != "a,b\n" || dl.Size != 4 || dl.Filename != "data.csv" {
		t.Fatalf("unexpected local download %+v %q", dl, body)
	}

	dl, err = svc.Download(e.ctx, owner, drive.CanonicalPath)
	if err != nil {
		t.Fatalf("drive download: %v", err)
	}
	body, _ = io.ReadAll(dl.Body)
	dl.Body.Close()
	if string(body) != "drive-bytes" || dl.ContentType != "application/pdf" {
		t.Fatalf("unexpected drive download %+v %q", dl, body)
	}
	if fd.token != acct.CredentialRef || fd.fileID != "d1" {
		t.Fatalf("drive called with %q %q", fd.token, fd.fileID)
	}

	if _, err := svc.Download(e.ctx, owner, gmail.CanonicalPath); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("gmail download: expected unsupported, got %v", err)
	}
}
