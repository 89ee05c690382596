// Package rest talks to a JSONPlaceholder-style to-do API:
// GET ?_limit=N, POST, PATCH /{id} and DELETE /{id} under a single base URL.
package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"golang.org/x/oauth2"
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

var _ remote.Client = &Client{}

func New(funcs ...OptionFunc) *Client {
	opts := NewOptions(funcs...)

	httpClient := opts.HTTPClient
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(ctx, source)
		httpClient.Timeout = opts.HTTPClient.Timeout
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: httpClient,
	}
}
