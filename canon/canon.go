// Package canon maps the various NODC/NCEI URL shapes of an archived dataset
// to a standard form, using the accession number embedded in the URL.
package canon

import (
	"context"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// XMLSuffix asks the NODC metadata services for the XML representation.
	XMLSuffix = ";view=xml;responseType=text/xml"

	landingPrefix = "https://accession.nodc.noaa.gov/"
	xmlPrefix     = "https://www.nodc.noaa.gov/ocads/data/"
)

var (
	accessionURL = regexp.MustCompile(`^https://accession\.nodc\.noaa\.gov/([0-9]+)$`)
	isoCGIURL    = regexp.MustCompile(`^https://data\.nodc\.noaa\.gov/cgi-bin/iso\?id=gov\.noaa\.nodc:([0-9]+)$`)
	testDataURL  = regexp.MustCompile(`^https://test\.nodc\.noaa\.gov/ocads/data/([0-9]+)\.xml$`)

	// alternatePatterns have a simpler, standard XML document at
	// xmlPrefix + accession number + ".xml".
	alternatePatterns = []*regexp.Regexp{
		accessionURL,
		isoCGIURL,
		testDataURL,
	}

	// embeddedPatterns are redirect targets of a DOI, which may be
	// equivalent to the landing page with the same accession number.
	embeddedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^http://accession\.nodc\.noaa\.gov/([0-9]+)/?$`),
		regexp.MustCompile(`^https://accession\.nodc\.noaa\.gov/([0-9]+)/$`),
		regexp.MustCompile(`^https?://data\.nodc\.noaa\.gov/cgi-bin/iso\?id=gov\.noaa\.nodc:([0-9]+)(;.*)?$`),
		regexp.MustCompile(`^https?://www\.ncei\.noaa\.gov/access/metadata/landing-page/bin/iso\?id=gov\.noaa\.nodc:([0-9]+)$`),
		regexp.MustCompile(`^https?://(?:www|test)\.nodc\.noaa\.gov/ocads/data/([0-9]+)\.xml$`),
	}
)

// Alternate returns the standard XML document URL for a URL with a known
// accession number shape. The document there is often simpler and may work
// when the original URL does not.
func Alternate(link string) (string, bool) {
	for _, p := range alternatePatterns {
		if m := p.FindStringSubmatch(link); m != nil {
			return xmlPrefix + m[1] + ".xml", true
		}
	}
	return "", false
}

// XMLURL makes sure a link is going to return XML.
func XMLURL(link string) string {
	for _, suffix := range []string{".xml", ".XML", "/xml"} {
		if strings.HasSuffix(link, suffix) {
			return link
		}
	}
	return link + XMLSuffix
}

// LandingPage returns the canonical landing page for an accession number.
func LandingPage(accession string) string {
	return landingPrefix + accession
}

// IsLandingPage reports whether link already is a canonical landing page.
func IsLandingPage(link string) bool {
	return accessionURL.MatchString(link)
}

// AccessionNumber extracts the accession number from a landing page or any
// other known URL shape carrying one.
func AccessionNumber(link string) (string, bool) {
	if m := accessionURL.FindStringSubmatch(link); m != nil {
		return m[1], true
	}
	for _, p := range embeddedPatterns {
		if m := p.FindStringSubmatch(link); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Follower requests a URL and returns the URL reached after redirects.
type Follower interface {
	Follow(ctx context.Context, link string) (string, error)
}

// Canonicalizer rewrites resolved DOI targets to landing pages.
type Canonicalizer struct {
	Follower Follower
	Log      log.FieldLogger
}

func (c *Canonicalizer) logger() log.FieldLogger {
	if c.Log == nil {
		return log.StandardLogger()
	}
	return c.Log
}

// Canonicalize returns the canonical landing page for a URL reached by
// resolving a DOI. Accession numbers are reused across unrelated services,
// so the landing page is only used if it redirects to the very same
// resolved URL. In all other cases the resolved URL is returned unchanged.
func (c *Canonicalizer) Canonicalize(ctx context.Context, resolved string) string {
	if IsLandingPage(resolved) {
		return resolved
	}
	accession, ok := AccessionNumber(resolved)
	if !ok {
		return resolved
	}
	landing := LandingPage(accession)
	entry := c.logger().WithFields(log.Fields{"resolved": resolved, "landing": landing})
	final, err := c.Follower.Follow(ctx, landing)
	if err != nil {
		entry.WithError(err).Debug("canon: verification failed")
		return resolved
	}
	if final != resolved {
		entry.WithField("final", final).Debug("canon: landing page leads elsewhere")
		return resolved
	}
	return landing
}
