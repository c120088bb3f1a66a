// Package fetch retrieves XML metadata documents and follows redirects.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/miku/origdoi"
	"github.com/miku/origdoi/flatxml"
	"github.com/sethgrid/pester"
)

// DefaultMaxBytes limits the size of a single metadata document.
const DefaultMaxBytes = 64 << 20

var ErrDocumentTooLarge = errors.New("fetch: document too large")

// Doer abstracts https://pkg.go.dev/net/http#Client.Do.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewClient returns a retrying HTTP client.
func NewClient(timeout time.Duration, maxRetries int) *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = maxRetries
	client.RetryOnHTTP429 = true
	client.Timeout = timeout
	return client
}

// Fetcher gets documents over HTTP.
type Fetcher struct {
	Client    Doer
	UserAgent string
	MaxBytes  int64
}

// New returns a fetcher using the given client.
func New(client Doer) *Fetcher {
	return &Fetcher{
		Client:    client,
		UserAgent: fmt.Sprintf("%s/%s", origdoi.AppName, origdoi.Version),
		MaxBytes:  DefaultMaxBytes,
	}
}

func (f *Fetcher) get(ctx context.Context, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	return f.Client.Do(req)
}

// Fetch retrieves and flattens the XML document at link. Transport errors,
// non-2xx responses and unparsable content are all errors.
func (f *Fetcher) Fetch(ctx context.Context, link string) (*flatxml.Document, error) {
	resp, err := f.get(ctx, link)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: HTTP %d while fetching %s", resp.StatusCode, link)
	}
	var r io.Reader = resp.Body
	if f.MaxBytes > 0 {
		r = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if f.MaxBytes > 0 && int64(len(b)) > f.MaxBytes {
		return nil, fmt.Errorf("%w: %s", ErrDocumentTooLarge, link)
	}
	return flatxml.ParseBytes(b)
}

// Follow requests link, follows all redirects and returns the final URL.
// The status of the final response is not checked.
func (f *Fetcher) Follow(ctx context.Context, link string) (string, error) {
	resp, err := f.get(ctx, link)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.Request == nil || resp.Request.URL == nil {
		return link, nil
	}
	return resp.Request.URL.String(), nil
}
