// Package match extracts expocodes, DOIs and landing page links from
// flattened metadata documents.
//
// Two metadata dialects are known: a flat one, where values live directly
// under /metadata, and ISO 19115 (gmi/gmd), where expocodes are keywords of
// a block whose thesaurus is titled EXPOCODE, and DOIs and accession links
// are identifier anchors. Each dialect is a table of rules, keyed by exact
// node path; adding a dialect does not touch the scanning code.
package match

import (
	"github.com/miku/origdoi/flatxml"
)

// Field is one of the values we extract.
type Field int

const (
	Expocode Field = iota
	DOI
	LandingLink
)

func (f Field) String() string {
	switch f {
	case Expocode:
		return "expocode"
	case DOI:
		return "doi"
	case LandingLink:
		return "landing-link"
	default:
		return "unknown"
	}
}

// Action is applied to every node whose path matches a rule.
type Action func(s *scan, n *flatxml.Node)

// Rule ties a node path to an action for a single field.
type Rule struct {
	Field  Field
	Path   string
	Action Action
}

// Dialect is a named set of rules.
type Dialect struct {
	Name  string
	Rules []Rule
}

// scan is the state of a single pass over a document.
type scan struct {
	found   Set
	pending Set // candidates of the current keyword block
	// suspicious collects raw values with trailing characters after an
	// expocode; pendingSuspicious those of the current keyword block
	suspicious        []string
	pendingSuspicious []string
}

func newScan() *scan {
	return &scan{found: NewSet(), pending: NewSet()}
}

// Extractor finds the values of one field in a single pass.
type Extractor struct {
	rules map[string][]Action
}

// NewExtractor collects the rules for a field from all given dialects.
func NewExtractor(field Field, dialects ...Dialect) *Extractor {
	e := &Extractor{rules: make(map[string][]Action)}
	for _, d := range dialects {
		for _, r := range d.Rules {
			if r.Field != field {
				continue
			}
			e.rules[r.Path] = append(e.rules[r.Path], r.Action)
		}
	}
	return e
}

// Extract returns the set of values found. A document without any matching
// path yields an empty set.
func (e *Extractor) Extract(doc *flatxml.Document) Set {
	return e.run(doc).found
}

func (e *Extractor) run(doc *flatxml.Document) *scan {
	s := newScan()
	for it := doc.Iter(); it.Next(); {
		n := it.Node()
		for _, action := range e.rules[n.Path] {
			action(s, n)
		}
	}
	return s
}

// Result groups the values found in a single document.
type Result struct {
	Expocodes    Set
	DOIs         Set
	LandingLinks Set
	// Suspicious lists raw values that started with an expocode but had
	// extra characters.
	Suspicious []string
}

// Matcher runs one extractor per field.
type Matcher struct {
	expocodes *Extractor
	dois      *Extractor
	links     *Extractor
}

// New returns a matcher for the given dialects.
func New(dialects ...Dialect) *Matcher {
	return &Matcher{
		expocodes: NewExtractor(Expocode, dialects...),
		dois:      NewExtractor(DOI, dialects...),
		links:     NewExtractor(LandingLink, dialects...),
	}
}

// Default knows the flat and the ISO dialects.
var Default = New(Flat, ISO("gmi:MI_Metadata"), ISO("gmd:MD_Metadata"))

// Extract scans the document once per field.
func (m *Matcher) Extract(doc *flatxml.Document) Result {
	s := m.expocodes.run(doc)
	return Result{
		Expocodes:    s.found,
		DOIs:         m.dois.Extract(doc),
		LandingLinks: m.links.Extract(doc),
		Suspicious:   s.suspicious,
	}
}

// Extract uses the default matcher.
func Extract(doc *flatxml.Document) Result {
	return Default.Extract(doc)
}
