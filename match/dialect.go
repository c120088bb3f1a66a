package match

import (
	"strings"

	"github.com/miku/origdoi/flatxml"
	"github.com/miku/origdoi/normal"
)

const (
	xlinkTitle = "xlink:title"
	xlinkHref  = "xlink:href"

	// thesaurusExpocode marks a keyword block as a list of expocodes.
	thesaurusExpocode = "EXPOCODE"
	anchorTitleDOI    = "DOI"
	anchorTitleNCEI   = "NCEI Accession Number"
)

// Flat is the simple /metadata document, one element per value.
var Flat = Dialect{
	Name: "flat",
	Rules: []Rule{
		{Expocode, "/metadata/expocode", addExpocode},
		{DOI, "/metadata/doi", addDOI},
		{LandingLink, "/metadata/link_landing", addLink},
	},
}

// ISO returns the rules for an ISO 19115 document with the given root
// element, e.g. gmi:MI_Metadata.
func ISO(root string) Dialect {
	var (
		ident    = "/" + root + "/gmd:identificationInfo/gmd:MD_DataIdentification"
		keywords = ident + "/gmd:descriptiveKeywords/gmd:MD_Keywords"
		title    = keywords + "/gmd:thesaurusName/gmd:CI_Citation/gmd:title"
		anchor   = ident + "/gmd:citation/gmd:CI_Citation/gmd:identifier/gmd:MD_Identifier/gmd:code/gmx:Anchor"
	)
	return Dialect{
		Name: "iso:" + root,
		Rules: []Rule{
			{Expocode, keywords, resetKeywords},
			{Expocode, keywords + "/gmd:keyword/gco:CharacterString", addKeyword},
			{Expocode, keywords + "/gmd:keyword/gmx:Anchor", addKeyword},
			{Expocode, title + "/gco:CharacterString", commitKeywords},
			{Expocode, title + "/gmx:Anchor", commitKeywords},
			{DOI, anchor, anchorDOI},
			{LandingLink, anchor, anchorLink},
		},
	}
}

func addExpocode(s *scan, n *flatxml.Node) {
	code, rest, ok := normal.ParseExpocode(n.Text)
	if !ok {
		return
	}
	s.found.Add(code)
	if rest != "" {
		s.suspicious = append(s.suspicious, n.Text)
	}
}

func addDOI(s *scan, n *flatxml.Node) {
	if doi, ok := normal.ParseDOI(n.Text); ok {
		s.found.Add(doi)
	}
}

func addLink(s *scan, n *flatxml.Node) {
	if strings.HasPrefix(n.Text, "http") {
		s.found.Add(n.Text)
	}
}

// resetKeywords starts a new keyword block, dropping candidates of a block
// that was never labeled as expocodes.
func resetKeywords(s *scan, n *flatxml.Node) {
	s.pending = NewSet()
	s.pendingSuspicious = nil
}

func addKeyword(s *scan, n *flatxml.Node) {
	code, rest, ok := normal.ParseExpocode(n.Text)
	if !ok {
		return
	}
	s.pending.Add(code)
	if rest != "" {
		s.pendingSuspicious = append(s.pendingSuspicious, n.Text)
	}
}

func commitKeywords(s *scan, n *flatxml.Node) {
	if n.Text != thesaurusExpocode {
		return
	}
	s.found.Update(s.pending)
	s.suspicious = append(s.suspicious, s.pendingSuspicious...)
	s.pending = NewSet()
	s.pendingSuspicious = nil
}

func anchorDOI(s *scan, n *flatxml.Node) {
	if n.AttrValue(xlinkTitle) == anchorTitleDOI {
		addDOI(s, n)
	}
}

func anchorLink(s *scan, n *flatxml.Node) {
	if n.AttrValue(xlinkTitle) != anchorTitleNCEI {
		return
	}
	if href := n.AttrValue(xlinkHref); strings.HasPrefix(href, "http") {
		s.found.Add(href)
	}
}
