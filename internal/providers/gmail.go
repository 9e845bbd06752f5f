package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

const (
	gmailUser          = "me"
	gmailQuery         = "has:attachment"
	gmailDetailWorkers = 4
)

type GmailAdapter struct {
	log     *logger.Logger
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

func NewGmailAdapter(log *logger.Logger, cfg Config) *GmailAdapter {
	return &GmailAdapter{
		log:     log.With("adapter", string(types.StorageGmail)),
		cfg:     cfg,
		limiter: cfg.limiter(),
		now:     time.Now,
	}
}

func (a *GmailAdapter) Source() types.StorageType { return types.StorageGmail }

func (a *GmailAdapter) Provider() types.Provider { return types.ProviderGoogle }

// gmailAttachment is one attachment part. The part id is stable for a
// message, unlike the attachment id, so it forms the record identity.
type gmailAttachment struct {
	MessageID string
	PartID    string
	Filename  string
	MimeType  string
	Received  time.Time
}

func (at gmailAttachment) ref() string {
	return at.MessageID + "/" + at.PartID
}

func (at gmailAttachment) record(acct *types.LinkedAccount) *types.IndexedRecord {
	rec := cloudRecord(acct, types.StorageGmail, at.ref(), at.ref(), at.Filename)
	rec.Filetype = GmailFiletype(at.Filename)
	mt := at.MimeType
	if mt == "" {
		mt = "application/octet-stream"
	}
	rec.MimeType = strPtr(mt)
	rec.LastModified = timePtr(at.Received)
	return rec
}

// attachmentsOf walks the MIME tree and returns every part that carries a
// named attachment. Parts missing a part id are reported as rejected.
func attachmentsOf(msg *gmail.Message, fallback time.Time) ([]gmailAttachment, int) {
	if msg == nil || msg.Payload == nil {
		return nil, 0
	}
	received := fallback
	if msg.InternalDate > 0 {
		received = time.UnixMilli(msg.InternalDate)
	}
	var out []gmailAttachment
	rejected := 0
	var walk func(p *gmail.MessagePart)
	walk = func(p *gmail.MessagePart) {
		if p == nil {
			return
		}
		if p.Filename != "" && p.Body != nil && p.Body.AttachmentId != "" {
			if p.PartId == "" {
				rejected++
			} else {
				out = append(out, gmailAttachment{
					MessageID: msg.Id,
					PartID:    p.PartId,
					Filename:  p.Filename,
					MimeType:  p.MimeType,
					Received:  received,
				})
			}
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(msg.Payload)
	return out, rejected
}

func (a *GmailAdapter) Fetch(ctx context.Context, acct *types.LinkedAccount, token string) (*FetchResult, error) {
	srv, err := gmail.NewService(ctx, googleClientOptions(ctx, a.cfg, token)...)
	if err != nil {
		return nil, classify(a.Source(), err)
	}
	out := &FetchResult{}
	pageToken := ""
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, classify(a.Source(), err)
		}
		call := srv.Users.Messages.List(gmailUser).Q(gmailQuery).MaxResults(PageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, classify(a.Source(), err)
		}
		if err := a.fetchDetails(ctx, srv, acct, page.Messages, out); err != nil {
			return nil, classify(a.Source(), err)
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (a *GmailAdapter) fetchDetails(ctx context.Context, srv *gmail.Service, acct *types.LinkedAccount, msgs []*gmail.Message, out *FetchResult) error {
	results := make([][]gmailAttachment, len(msgs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gmailDetailWorkers)
	for i, m := range msgs {
		if m == nil || m.Id == "" {
			mu.Lock()
			out.Rejected++
			mu.Unlock()
			continue
		}
		i, id := i, m.Id
		g.Go(func() error {
			full, err := srv.Users.Messages.Get(gmailUser, id).Format("full").Context(gctx).Do()
			if err != nil {
				return fmt.Errorf("message %s: %w", id, err)
			}
			atts, rejected := attachmentsOf(full, a.now())
			results[i] = atts
			if rejected > 0 {
				mu.Lock()
				out.Rejected += rejected
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, atts := range results {
		for _, at := range atts {
			out.Records = append(out.Records, at.record(acct))
		}
	}
	return nil
}
