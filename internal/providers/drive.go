package providers

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

const driveListFields = "nextPageToken, files(id, name, mimeType, modifiedTime)"

type DriveAdapter struct {
	log     *logger.Logger
	cfg     Config
	limiter *rate.Limiter
}

func NewDriveAdapter(log *logger.Logger, cfg Config) *DriveAdapter {
	return &DriveAdapter{
		log:     log.With("adapter", string(types.StorageGoogleDrive)),
		cfg:     cfg,
		limiter: cfg.limiter(),
	}
}

func (a *DriveAdapter) Source() types.StorageType { return types.StorageGoogleDrive }

func (a *DriveAdapter) Provider() types.Provider { return types.ProviderGoogle }

// driveItem is the validated shape of one Drive file listing.
type driveItem struct {
	ID       string
	Name     string
	MimeType string
	Modified *time.Time
}

func newDriveItem(f *drive.File) (driveItem, error) {
	if f == nil || f.Id == "" || f.Name == "" {
		return driveItem{}, fmt.Errorf("drive file missing id or name")
	}
	it := driveItem{ID: f.Id, Name: f.Name, MimeType: f.MimeType}
	if f.ModifiedTime != "" {
		ts, err := time.Parse(time.RFC3339, f.ModifiedTime)
		if err != nil {
			return driveItem{}, fmt.Errorf("drive file %s: modifiedTime: %w", f.Id, err)
		}
		it.Modified = timePtr(ts)
	}
	return it, nil
}

func (it driveItem) record(acct *types.LinkedAccount) *types.IndexedRecord {
	rec := cloudRecord(acct, types.StorageGoogleDrive, it.ID, it.ID, it.Name)
	rec.Filetype = DriveFiletype(it.MimeType)
	rec.IsFolder = it.MimeType == driveFolderMime
	rec.MimeType = strPtr(it.MimeType)
	rec.LastModified = it.Modified
	return rec
}

func (a *DriveAdapter) service(ctx context.Context, token string) (*drive.Service, error) {
	return drive.NewService(ctx, googleClientOptions(ctx, a.cfg, token)...)
}

func (a *DriveAdapter) Fetch(ctx context.Context, acct *types.LinkedAccount, token string) (*FetchResult, error) {
	srv, err := a.service(ctx, token)
	if err != nil {
		return nil, classify(a.Source(), err)
	}
	out := &FetchResult{}
	pageToken := ""
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, classify(a.Source(), err)
		}
		call := srv.Files.List().PageSize(PageSize).Fields(driveListFields).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, classify(a.Source(), err)
		}
		for _, f := range page.Files {
			it, err := newDriveItem(f)
			if err != nil {
				out.Rejected++
				a.log.Warn("rejected drive item", "account_id", acct.ID, "error", err)
				continue
			}
			out.Records = append(out.Records, it.record(acct))
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// Download streams the content of a binary Drive file. Google-native
// documents have no binary content and fail with a provider error.
func (a *DriveAdapter) Download(ctx context.Context, token, fileID string) (io.ReadCloser, string, error) {
	srv, err := a.service(ctx, token)
	if err != nil {
		return nil, "", classify(a.Source(), err)
	}
	resp, err := srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, "", classify(a.Source(), err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
