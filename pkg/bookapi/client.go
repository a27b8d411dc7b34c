// Package bookapi holds thin HTTP clients for the public book catalogs the
// service imports from: OpenLibrary, Gutendex and Google Books.
package bookapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

const (
	defaultTimeout          = 10 * time.Second
	errorBodyReadLimit int64 = 1024
)

// Record is a provider result normalized into catalog fields.
type Record struct {
	Title       string
	Authors     string
	Description string
	CoverImage  *string
	PreviewLink *string
	Source      enums.BookSource
}

// Option configures optional client behavior.
type Option func(*base)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *base) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(b *base) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			b.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(b *base) {
		if d > 0 {
			b.timeout = d
		}
	}
}

type base struct {
	name       string
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

func newBase(name, defaultURL string, opts []Option) base {
	b := base{name: name, baseURL: defaultURL, timeout: defaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&b)
		}
	}
	if b.httpClient == nil {
		b.httpClient = &http.Client{Timeout: b.timeout}
	}
	return b
}

// getJSON issues a GET and decodes a 200 response into out. Every failure is a CodeDependency error.
func (b base) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := b.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+b.name+" request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, b.name+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			b.name+" returned an error")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+b.name+" response")
	}
	return nil
}

func joinNames(names []string, fallback string) string {
	clean := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clean = append(clean, n)
		}
	}
	if len(clean) == 0 {
		return fallback
	}
	return strings.Join(clean, ", ")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
