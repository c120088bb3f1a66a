// Package normal recognizes and normalizes identifier values, as found in
// metadata documents and registries.
package normal

import (
	"regexp"
	"strings"
)

var (
	// expocodeRegex matches a four or five character NODC platform code and
	// an eight digit date, optionally followed by a leg number. The date is
	// not checked for validity.
	expocodeRegex = regexp.MustCompile(`^([A-Z0-9]{4,5}?[0-9]{8}(-[1-9])?)`)
	// doiRegex only needs to match a prefix of a DOI.
	doiRegex = regexp.MustCompile(`^[0-9]+\.[0-9]+/[A-Z0-9/_.]+`)
	// doiPrefixes are removed from upper-cased values, first match wins.
	doiPrefixes = []string{
		"HTTPS://DOI.ORG/",
		"HTTP://DOI.ORG/",
		"HTTPS://DX.DOI.ORG/",
		"HTTP://DX.DOI.ORG/",
		"DOI:",
	}
)

// ParseExpocode checks whether a value looks like an expocode. The value is
// trimmed and upper-cased first. If the value starts with an expocode, the
// code is returned and rest contains any trailing characters, which callers
// may want to report as suspicious.
func ParseExpocode(s string) (code, rest string, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	m := expocodeRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], s[len(m[1]):], true
}

// IsExpocode reports whether s starts with something that looks like an
// expocode.
func IsExpocode(s string) bool {
	_, _, ok := ParseExpocode(s)
	return ok
}

// ParseDOI returns the bare, upper-cased DOI contained in a value, which may
// also be a resolver link like https://doi.org/10.25921/0pmp-1r57. DOIs are
// case insensitive, but sources are inconsistent, so all values are
// compared in upper case.
func ParseDOI(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	if !doiRegex.MatchString(s) {
		return "", false
	}
	return s, true
}
