package rest

import (
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://jsonplaceholder.typicode.com/todos"

type Options struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	// Token, when set, is sent as an OAuth2 bearer token.
	Token string
}

type OptionFunc func(opts *Options)

func WithBaseURL(baseURL *url.URL) OptionFunc {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) OptionFunc {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

func WithToken(token string) OptionFunc {
	return func(opts *Options) {
		opts.Token = token
	}
}

func NewOptions(funcs ...OptionFunc) *Options {
	baseURL, _ := url.Parse(DefaultBaseURL)
	opts := &Options{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, fn := range funcs {
		fn(opts)
	}
	return opts
}
