package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

const photosAPI = "https://photoslibrary.googleapis.com"

type PhotosAdapter struct {
	log     *logger.Logger
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

func NewPhotosAdapter(log *logger.Logger, cfg Config) *PhotosAdapter {
	return &PhotosAdapter{
		log:     log.With("adapter", string(types.StorageGooglePhotos)),
		cfg:     cfg,
		client:  cfg.httpClient(),
		limiter: cfg.limiter(),
		now:     time.Now,
	}
}

func (a *PhotosAdapter) Source() types.StorageType { return types.StorageGooglePhotos }

func (a *PhotosAdapter) Provider() types.Provider { return types.ProviderGoogle }

type photosMediaItem struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mimeType"`
	MediaMetadata struct {
		CreationTime string `json:"creationTime"`
	} `json:"mediaMetadata"`
}

type photosListResponse struct {
	MediaItems    []photosMediaItem `json:"mediaItems"`
	NextPageToken string            `json:"nextPageToken"`
}

type photoItem struct {
	ID       string
	Filename string
	MimeType string
	Created  time.Time
}

func newPhotoItem(m photosMediaItem, now time.Time) (photoItem, error) {
	if m.ID == "" || m.Filename == "" {
		return photoItem{}, fmt.Errorf("media item missing id or filename")
	}
	it := photoItem{ID: m.ID, Filename: m.Filename, MimeType: m.MimeType, Created: now}
	if it.MimeType == "" {
		it.MimeType = "image/jpeg"
	}
	if m.MediaMetadata.CreationTime != "" {
		ts, err := time.Parse(time.RFC3339, m.MediaMetadata.CreationTime)
		if err != nil {
			return photoItem{}, fmt.Errorf("media item %s: creationTime: %w", m.ID, err)
		}
		it.Created = ts
	}
	return it, nil
}

func (it photoItem) record(acct *types.LinkedAccount) *types.IndexedRecord {
	rec := cloudRecord(acct, types.StorageGooglePhotos, it.ID, it.ID, it.Filename)
	rec.Filetype = PhotosFiletype(it.Filename)
	rec.MimeType = strPtr(it.MimeType)
	rec.LastModified = timePtr(it.Created)
	return rec
}

func (a *PhotosAdapter) Fetch(ctx context.Context, acct *types.LinkedAccount, token string) (*FetchResult, error) {
	base := a.cfg.baseURL(photosAPI) + "/v1/mediaItems"
	out := &FetchResult{}
	pageToken := ""
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, classify(a.Source(), err)
		}
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(PageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var page photosListResponse
		if err := doJSON(ctx, a.client, http.MethodGet, base+"?"+q.Encode(), token, nil, &page); err != nil {
			return nil, classify(a.Source(), err)
		}
		now := a.now()
		for _, m := range page.MediaItems {
			it, err := newPhotoItem(m, now)
			if err != nil {
				out.Rejected++
				a.log.Warn("rejected photos item", "account_id", acct.ID, "error", err)
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
