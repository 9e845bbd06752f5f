package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

const dropboxAPI = "https://api.dropboxapi.com"

type DropboxAdapter struct {
	log     *logger.Logger
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

func NewDropboxAdapter(log *logger.Logger, cfg Config) *DropboxAdapter {
	return &DropboxAdapter{
		log:     log.With("adapter", string(types.StorageDropbox)),
		cfg:     cfg,
		client:  cfg.httpClient(),
		limiter: cfg.limiter(),
	}
}

func (a *DropboxAdapter) Source() types.StorageType { return types.StorageDropbox }

func (a *DropboxAdapter) Provider() types.Provider { return types.ProviderDropbox }

type dropboxListRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Limit     int    `json:"limit"`
}

type dropboxContinueRequest struct {
	Cursor string `json:"cursor"`
}

type dropboxEntry struct {
	Tag            string `json:".tag"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	PathDisplay    string `json:"path_display"`
	ServerModified string `json:"server_modified"`
}

type dropboxListResponse struct {
	Entries []dropboxEntry `json:"entries"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

// dropboxItem is the validated shape of one file or folder entry.
type dropboxItem struct {
	ID       string
	Name     string
	Path     string
	Folder   bool
	Modified *time.Time
}

// newDropboxItem returns ok=false for entries that are not items at all
// (deletions), and an error for entries that are malformed.
func newDropboxItem(e dropboxEntry) (dropboxItem, bool, error) {
	switch e.Tag {
	case "file", "folder":
	case "deleted":
		return dropboxItem{}, false, nil
	default:
		return dropboxItem{}, false, fmt.Errorf("dropbox entry %q: unknown tag %q", e.PathDisplay, e.Tag)
	}
	if e.ID == "" || e.Name == "" || e.PathDisplay == "" {
		return dropboxItem{}, false, fmt.Errorf("dropbox entry missing id, name or path")
	}
	it := dropboxItem{ID: e.ID, Name: e.Name, Path: e.PathDisplay, Folder: e.Tag == "folder"}
	if e.ServerModified != "" {
		ts, err := time.Parse(time.RFC3339, e.ServerModified)
		if err != nil {
			return dropboxItem{}, false, fmt.Errorf("dropbox entry %s: server_modified: %w", e.ID, err)
		}
		it.Modified = timePtr(ts)
	}
	return it, true, nil
}

func (it dropboxItem) record(acct *types.LinkedAccount) *types.IndexedRecord {
	rec := cloudRecord(acct, types.StorageDropbox, it.Path, it.ID, it.Name)
	if it.Folder {
		rec.IsFolder = true
		rec.Filetype = DropboxFiletype(it.Name + "/")
	} else {
		rec.Filetype = DropboxFiletype(it.Name)
		rec.MimeType = strPtr(mimeFromName(it.Name))
	}
	rec.LastModified = it.Modified
	return rec
}

func (a *DropboxAdapter) Fetch(ctx context.Context, acct *types.LinkedAccount, token string) (*FetchResult, error) {
	base := a.cfg.baseURL(dropboxAPI)
	out := &FetchResult{}
	var page dropboxListResponse

	url := base + "/2/files/list_folder"
	var body any = dropboxListRequest{Path: "", Recursive: true, Limit: PageSize}
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, classify(a.Source(), err)
		}
		page = dropboxListResponse{}
		if err := doJSON(ctx, a.client, http.MethodPost, url, token, body, &page); err != nil {
			return nil, classify(a.Source(), err)
		}
		for _, e := range page.Entries {
			it, ok, err := newDropboxItem(e)
			if err != nil {
				out.Rejected++
				a.log.Warn("rejected dropbox entry", "account_id", acct.ID, "error", err)
				continue
			}
			if !ok {
				continue
			}
			out.Records = append(out.Records, it.record(acct))
		}
		if !page.HasMore {
			return out, nil
		}
		if page.Cursor == "" {
			return nil, classify(a.Source(), fmt.Errorf("has_more without cursor"))
		}
		url = base + "/2/files/list_folder/continue"
		body = dropboxContinueRequest{Cursor: page.Cursor}
	}
}
