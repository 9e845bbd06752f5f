package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/dbctx"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/providers"
)

const (
	OpenLocal = "local"
	OpenURL   = "url"
)

// OpenTarget tells the client how to open a record. Local files are opened
// by the client itself; the server never spawns a viewer.
type OpenTarget struct {
	Kind        string            `json:"kind"`
	StorageType types.StorageType `json:"storage_type"`
	Path        string            `json:"path,omitempty"`
	URL         string            `json:"url,omitempty"`
}

type FileDownload struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
}

type DriveDownloader interface {
	Download(ctx context.Context, token, fileID string) (io.ReadCloser, string, error)
}

type FileService interface {
	Resolve(ctx context.Context, ownerID uuid.UUID, path string) (*OpenTarget, error)
	Download(ctx context.Context, ownerID uuid.UUID, path string) (*FileDownload, error)
}

type fileService struct {
	log      *logger.Logger
	records  repos.IndexedRecordRepo
	accounts repos.LinkedAccountRepo
	creds    providers.CredentialSource
	drive    DriveDownloader
}

func NewFileService(log *logger.Logger, records repos.IndexedRecordRepo, accounts repos.LinkedAccountRepo, creds providers.CredentialSource, drive DriveDownloader) FileService {
	serviceLog := log.With("service", "FileService")
	if creds == nil {
		creds = providers.StoredCredentials{}
	}
	return &fileService{
		log:      serviceLog,
		records:  records,
		accounts: accounts,
		creds:    creds,
		drive:    drive,
	}
}

func (s *fileService) record(ctx context.Context, ownerID uuid.UUID, p string) (*types.IndexedRecord, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidInput)
	}
	rec, err := s.records.GetByPath(dbctx.Context{Ctx: ctx}, ownerID, p)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return rec, nil
}

func (s *fileService) Resolve(ctx context.Context, ownerID uuid.UUID, p string) (*OpenTarget, error) {
	rec, err := s.record(ctx, ownerID, p)
	if err != nil {
		return nil, err
	}
	target := &OpenTarget{StorageType: rec.StorageType}
	if rec.StorageType == types.StorageLocal {
		if _, err := os.Stat(rec.CanonicalPath); err != nil {
			return nil, fmt.Errorf("%w: %s is gone from disk", ErrNotFound, rec.CanonicalPath)
		}
		target.Kind = OpenLocal
		target.Path = rec.CanonicalPath
		return target, nil
	}
	u, err := providerURL(rec)
	if err != nil {
		return nil, err
	}
	target.Kind = OpenURL
	target.URL = u
	return target, nil
}

func providerURL(rec *types.IndexedRecord) (string, error) {
	ref := strings.TrimPrefix(rec.CanonicalPath, types.CloudPath(rec.StorageType, ""))
	cloudID := ""
	if rec.CloudFileID != nil {
		cloudID = *rec.CloudFileID
	}
	switch rec.StorageType {
	case types.StorageGoogleDrive:
		if cloudID == "" {
			return "", fmt.Errorf("%w: record has no cloud file id", ErrInvalidInput)
		}
		return "https://drive.google.com/uc?id=" + url.QueryEscape(cloudID), nil
	case types.StorageDropbox:
		dir := path.Dir(ref)
		if rec.IsFolder {
			dir = ref
		}
		return "https://www.dropbox.com/home" + (&url.URL{Path: dir}).EscapedPath() + "?preview=" + url.QueryEscape(rec.Filename), nil
	case types.StorageGmail:
		msgID, _, _ := strings.Cut(ref, "/")
		return "https://mail.google.com/mail/u/0/#all/" + url.PathEscape(msgID), nil
	case types.StorageGooglePhotos:
		return "https://photos.google.com/lr/photo/" + url.PathEscape(ref), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, rec.StorageType)
	}
}

func (s *fileService) Download(ctx context.Context, ownerID uuid.UUID, p string) (*FileDownload, error) {
	rec, err := s.record(ctx, ownerID, p)
	if err != nil {
		return nil, err
	}
	if rec.IsFolder {
		return nil, fmt.Errorf("%w: folders cannot be downloaded", ErrUnsupported)
	}
	switch rec.StorageType {
	case types.StorageLocal:
		return openLocal(rec)
	case types.StorageGoogleDrive:
		return s.downloadDrive(ctx, rec)
	default:
		return nil, fmt.Errorf("%w: download from %s", ErrUnsupported, rec.StorageType)
	}
}

func openLocal(rec *types.IndexedRecord) (*FileDownload, error) {
	f, err := os.Open(rec.CanonicalPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s is gone from disk", ErrNotFound, rec.CanonicalPath)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rec.CanonicalPath, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", rec.CanonicalPath, err)
	}
	ct := mime.TypeByExtension(filepath.Ext(rec.Filename))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &FileDownload{Body: f, Filename: rec.Filename, ContentType: ct, Size: info.Size()}, nil
}

func (s *fileService) downloadDrive(ctx context.Context, rec *types.IndexedRecord) (*FileDownload, error) {
	if s.drive == nil {
		return nil, fmt.Errorf("%w: drive downloads are not configured", ErrUnsupported)
	}
	if rec.AccountID == nil || rec.CloudFileID == nil {
		return nil, fmt.Errorf("%w: record is not linked to an account", ErrInvalidInput)
	}
	acct, err := s.accounts.GetByID(dbctx.Context{Ctx: ctx}, *rec.AccountID)
	if err != nil || acct.OwnerID != rec.OwnerID {
		return nil, fmt.Errorf("%w: linked account for %s", ErrNotFound, rec.CanonicalPath)
	}
	token, err := s.creds.Token(ctx, acct)
	if err != nil {
		return nil, err
	}
	body, ct, err := s.drive.Download(ctx, token, *rec.CloudFileID)
	if err != nil {
		s.log.Warn("Drive download failed", "account_id", acct.ID, "path", rec.CanonicalPath, "error", err)
		return nil, err
	}
	if ct == "" && rec.MimeType != nil {
		ct = *rec.MimeType
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &FileDownload{Body: body, Filename: rec.Filename, ContentType: ct, Size: -1}, nil
}
