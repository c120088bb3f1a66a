// Package reconcile merges values from the metadata document of a dataset with
// the values listed in the registry and emits expocode, landing page and DOI
// triplets.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/miku/origdoi/canon"
	"github.com/miku/origdoi/flatxml"
	"github.com/miku/origdoi/match"
	"github.com/miku/origdoi/normal"
	"github.com/miku/origdoi/registry"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNoDocument is returned when no URL yielded a parsable document. As
	// with other skipped rows, this is not a problem with the data.
	ErrNoDocument = registry.Skip{Err: errors.New("problems accessing or interpreting the XML")}

	ErrNoExpocodes          = errors.New("no expocodes found")
	ErrAmbiguousLanding     = errors.New("multiple landing pages found")
	ErrUndocumentedExpocode = errors.New("expocode not given in the XML")
	ErrConflictingDOI       = errors.New("DOI not given in the XML")
	ErrMultipleDOIs         = errors.New("multiple DOIs")
)

// Policy decides what happens to registry values not found in the document.
type Policy int

const (
	// Lenient adds registry values missing from the document, with a warning.
	Lenient Policy = iota
	// Strict rejects rows with registry values missing from the document and
	// rows with more than one DOI.
	Strict
)

func (p Policy) String() string {
	switch p {
	case Lenient:
		return "lenient"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("unknown policy: %q", s)
	}
}

// DocumentFetcher retrieves a flattened metadata document.
type DocumentFetcher interface {
	Fetch(ctx context.Context, link string) (*flatxml.Document, error)
}

// Triplet is a single line of output.
type Triplet struct {
	Expocode string `json:"expocode"`
	URL      string `json:"url"`
	DOI      string `json:"doi"`
}

// Reconciler processes registry rows. Fetcher is required, a nil Matcher
// uses match.Default.
type Reconciler struct {
	Fetcher DocumentFetcher
	Policy  Policy
	Matcher *match.Matcher
	// PreferAlternate tries the standard XML document of a known accession
	// URL first.
	PreferAlternate bool
	Log             log.FieldLogger
}

func (r *Reconciler) logger() log.FieldLogger {
	if r.Log == nil {
		return log.StandardLogger()
	}
	return r.Log
}

func (r *Reconciler) matcher() *match.Matcher {
	if r.Matcher == nil {
		return match.Default
	}
	return r.Matcher
}

// candidates returns the URLs to try for a registry URL, in order.
func (r *Reconciler) candidates(link string) []string {
	urls := []string{canon.XMLURL(link)}
	if alt, ok := canon.Alternate(link); ok && alt != urls[0] {
		if r.PreferAlternate {
			urls = []string{alt, urls[0]}
		} else {
			urls = append(urls, alt)
		}
	}
	return urls
}

// fetch returns the first document that could be retrieved, together with
// the URL it came from.
func (r *Reconciler) fetch(ctx context.Context, entry log.FieldLogger, link string) (*flatxml.Document, string, error) {
	urls := r.candidates(link)
	for _, u := range urls {
		doc, err := r.Fetcher.Fetch(ctx, u)
		if err == nil {
			return doc, u, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		entry.WithField("fetch", u).WithError(err).Debug("fetch failed")
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNoDocument, strings.Join(urls, ", "))
}

// Reconcile fetches the document for a row and returns the sorted triplets
// for the row, one per expocode and DOI, or an error if the row was skipped
// or rejected; use registry.IsSkip to tell the two apart. A row without any
// DOI yields no triplets.
func (r *Reconciler) Reconcile(ctx context.Context, row registry.Row) ([]Triplet, error) {
	entry := r.logger().WithFields(log.Fields{"line": row.Line, "url": row.URL})
	doc, fetched, err := r.fetch(ctx, entry, row.URL)
	if err != nil {
		return nil, err
	}
	result := r.matcher().Extract(doc)
	for _, v := range result.Suspicious {
		entry.WithField("expocode", v).Warn("extra characters at the end of expocode")
	}
	expocodes := result.Expocodes
	var missing []string
	for _, v := range row.ExpocodeValues() {
		code, rest, ok := normal.ParseExpocode(v)
		if !ok {
			entry.WithField("expocode", v).Debug("ignoring value that does not resemble an expocode")
			continue
		}
		if rest != "" {
			entry.WithField("expocode", v).Warn("extra characters at the end of expocode")
		}
		if expocodes.Contains(code) {
			continue
		}
		if r.Policy == Strict {
			missing = append(missing, code)
			continue
		}
		entry.WithField("expocode", code).Warn("expocode not given in the XML")
		expocodes.Add(code)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUndocumentedExpocode, strings.Join(missing, ", "))
	}
	if expocodes.Len() == 0 {
		return nil, ErrNoExpocodes
	}
	dois := result.DOIs
	if row.DOI != "" && !dois.Contains(row.DOI) {
		if r.Policy == Strict && dois.Len() > 0 {
			return nil, fmt.Errorf("%w: %s, document has %s", ErrConflictingDOI,
				row.DOI, strings.Join(dois.Sorted(), ", "))
		}
		entry.WithField("doi", row.DOI).Warn("DOI not given in the XML")
		dois.Add(row.DOI)
	}
	if r.Policy == Strict && dois.Len() > 1 {
		return nil, fmt.Errorf("%w: %s", ErrMultipleDOIs, strings.Join(dois.Sorted(), ", "))
	}
	landing := fetched
	switch result.LandingLinks.Len() {
	case 0:
	case 1:
		landing = result.LandingLinks.Sorted()[0]
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousLanding,
			strings.Join(result.LandingLinks.Sorted(), ", "))
	}
	if dois.Len() == 0 {
		entry.WithField("landing", landing).Warn("no DOI, nothing to emit")
	}
	var triplets []Triplet
	for _, expocode := range expocodes.Sorted() {
		for _, doi := range dois.Sorted() {
			triplets = append(triplets, Triplet{Expocode: expocode, URL: landing, DOI: doi})
		}
	}
	return triplets, nil
}
