package providers

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// googleClientOptions builds API client options that authenticate every
// request with the account's bearer token.
func googleClientOptions(ctx context.Context, cfg Config, token string) []option.ClientOption {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	base := context.WithValue(ctx, oauth2.HTTPClient, cfg.httpClient())
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(base, ts))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	return opts
}
