// Package resolve turns DOIs into the URLs they redirect to.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/miku/origdoi/normal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the DOI resolver.
	DefaultBaseURL = "http://doi.org/"
	// DefaultDelay between requests to the resolver.
	DefaultDelay = time.Second
	// ListSeparator joins multiple DOIs or URLs in a single field.
	ListSeparator = " ; "
)

var (
	ErrInvalidDOI = errors.New("resolve: invalid DOI")
	ErrNotFound   = errors.New("resolve: DOI not found")
)

// Follower requests a URL and returns the URL reached after redirects.
type Follower interface {
	Follow(ctx context.Context, link string) (string, error)
}

// Cache stores resolved URLs by normalized DOI.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Waiter blocks until the next request may be sent. A *rate.Limiter from
// golang.org/x/time/rate satisfies this interface.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Canonicalizer rewrites a resolved URL to a standard form.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, resolved string) string
}

// FixedDelay waits a fixed duration before every request. Not safe for
// concurrent use; use a rate.Limiter for that.
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolver resolves DOIs by following the redirects of a DOI resolver. Only
// Follower is required. A Resolver is safe for concurrent use, if its Cache
// and Limiter are; concurrent lookups of the same DOI share one request.
type Resolver struct {
	BaseURL  string
	Follower Follower
	Cache    Cache
	Limiter  Waiter
	Canon    Canonicalizer
	Log      log.FieldLogger

	group singleflight.Group
}

func (r *Resolver) logger() log.FieldLogger {
	if r.Log == nil {
		return log.StandardLogger()
	}
	return r.Log
}

func (r *Resolver) baseURL() string {
	if r.BaseURL == "" {
		return DefaultBaseURL
	}
	return r.BaseURL
}

// Resolve returns the URL a single DOI points to. Cached values are returned
// without touching the network. Failures are not cached.
func (r *Resolver) Resolve(ctx context.Context, s string) (string, error) {
	doi, ok := normal.ParseDOI(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDOI, s)
	}
	if r.Cache != nil {
		if v, ok := r.Cache.Get(doi); ok {
			return v, nil
		}
	}
	v, err, _ := r.group.Do(doi, func() (interface{}, error) {
		return r.lookup(ctx, doi)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// lookup resolves a normalized DOI over the network.
func (r *Resolver) lookup(ctx context.Context, doi string) (string, error) {
	if r.Cache != nil {
		// another lookup may have finished since the first check
		if v, ok := r.Cache.Get(doi); ok {
			return v, nil
		}
	}
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	link := r.baseURL() + doi
	final, err := r.Follower.Follow(ctx, link)
	if err != nil {
		return "", fmt.Errorf("resolve: %s: %w", doi, err)
	}
	if sameHost(final, link) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, doi)
	}
	if r.Canon != nil {
		final = r.Canon.Canonicalize(ctx, final)
	}
	r.logger().WithFields(log.Fields{"doi": doi, "url": final}).Debug("resolved")
	if r.Cache != nil {
		r.Cache.Set(doi, final)
	}
	return final, nil
}

// ResolveList resolves a list of DOIs separated by ";" and joins the unique
// resulting URLs in the order they were first seen. DOIs that fail are logged
// and left out; an error is returned only if none resolved.
func (r *Resolver) ResolveList(ctx context.Context, s string) (string, error) {
	var (
		seen    = make(map[string]bool)
		result  []string
		lastErr error
	)
	for _, v := range strings.Split(s, ";") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		u, err := r.Resolve(ctx, v)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			r.logger().WithField("doi", v).WithError(err).Warn("could not resolve")
			lastErr = err
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		result = append(result, u)
	}
	if len(result) == 0 {
		if lastErr == nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDOI, s)
		}
		return "", lastErr
	}
	return strings.Join(result, ListSeparator), nil
}

// sameHost reports whether the request never left the resolver, which
// happens for unknown DOIs, possibly after an http to https upgrade.
func sameHost(final, link string) bool {
	if final == link {
		return true
	}
	u, err := url.Parse(final)
	if err != nil {
		return false
	}
	v, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, v.Host)
}
