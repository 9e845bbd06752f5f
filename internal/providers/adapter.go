package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

// PageSize is the page size requested from every provider list endpoint.
const PageSize = 100

// FetchResult is one full listing of an account, already normalized.
// Rejected counts remote items that failed validation and were dropped.
type FetchResult struct {
	Records  []*types.IndexedRecord
	Rejected int
}

// Adapter pages through one provider source for one linked account.
type Adapter interface {
	Source() types.StorageType
	Provider() types.Provider
	Fetch(ctx context.Context, acct *types.LinkedAccount, token string) (*FetchResult, error)
}

// CredentialSource hands out a currently valid bearer token for an account.
// Refreshing it is the auth collaborator's job, not ours.
type CredentialSource interface {
	Token(ctx context.Context, acct *types.LinkedAccount) (string, error)
}

// StoredCredentials reads the token the auth collaborator keeps in the
// account's credential reference.
type StoredCredentials struct{}

func (StoredCredentials) Token(ctx context.Context, acct *types.LinkedAccount) (string, error) {
	if acct == nil {
		return "", fmt.Errorf("account required")
	}
	tok := strings.TrimSpace(acct.CredentialRef)
	if tok == "" {
		return "", &Error{Source: acct.Provider.PrimarySource(), Kind: ErrCredentialExpired, Err: fmt.Errorf("no credential stored")}
	}
	return tok, nil
}

// Config is shared by all adapters. BaseURL overrides the provider's public
// endpoint (tests, proxies).
type Config struct {
	HTTPClient     *http.Client
	BaseURL        string
	PagesPerSecond float64
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (c Config) limiter() *rate.Limiter {
	if c.PagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(c.PagesPerSecond), 1)
}

func (c Config) baseURL(def string) string {
	if b := strings.TrimSpace(c.BaseURL); b != "" {
		return strings.TrimRight(b, "/")
	}
	return def
}

func cloudRecord(acct *types.LinkedAccount, st types.StorageType, ref, cloudID, name string) *types.IndexedRecord {
	accountID := acct.ID
	id := cloudID
	return &types.IndexedRecord{
		OwnerID:       acct.OwnerID,
		AccountID:     &accountID,
		Filename:      name,
		CanonicalPath: types.CloudPath(st, ref),
		StorageType:   st,
		CloudFileID:   &id,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
