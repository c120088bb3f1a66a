package match

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miku/origdoi/flatxml"
)

func mustParseFile(t *testing.T, name string) *flatxml.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := flatxml.Parse(f)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func mustParse(t *testing.T, s string) *flatxml.Document {
	t.Helper()
	doc, err := flatxml.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractFlat(t *testing.T) {
	result := Extract(mustParseFile(t, "flat-0208441.xml"))
	if diff := cmp.Diff([]string{"35MV20190109"}, result.Expocodes.Sorted()); diff != "" {
		t.Errorf("expocodes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"10.25921/0PMP-1R57"}, result.DOIs.Sorted()); diff != "" {
		t.Errorf("dois (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://accession.nodc.noaa.gov/0208441"}, result.LandingLinks.Sorted()); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
	if len(result.Suspicious) != 0 {
		t.Errorf("unexpected suspicious values: %v", result.Suspicious)
	}
}

func TestExtractISO(t *testing.T) {
	result := Extract(mustParseFile(t, "iso-0115402.xml"))
	want := []string{
		"316420060713",
		"316420070829",
		"316420081014",
		"316420160107",
		"316420161115",
	}
	if diff := cmp.Diff(want, result.Expocodes.Sorted()); diff != "" {
		t.Errorf("expocodes (-want +got):\n%s", diff)
	}
	if result.Expocodes.Contains("GULF20160107") {
		t.Errorf("keyword from a non-expocode block leaked into result")
	}
	if diff := cmp.Diff([]string{"10.3334/CDIAC/OTG.TSM_NH_70W_43N"}, result.DOIs.Sorted()); diff != "" {
		t.Errorf("dois (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://accession.nodc.noaa.gov/0115402"}, result.LandingLinks.Sorted()); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"316420161115 (second leg)"}, result.Suspicious); diff != "" {
		t.Errorf("suspicious (-want +got):\n%s", diff)
	}
}

const isoKeywordsTemplate = `<gmd:MD_Metadata xmlns:gmd="http://www.isotc211.org/2005/gmd" xmlns:gco="http://www.isotc211.org/2005/gco">
<gmd:identificationInfo><gmd:MD_DataIdentification>
%s
</gmd:MD_DataIdentification></gmd:identificationInfo>
</gmd:MD_Metadata>`

func keywordBlock(title string, keywords ...string) string {
	var sb strings.Builder
	sb.WriteString("<gmd:descriptiveKeywords><gmd:MD_Keywords>")
	for _, kw := range keywords {
		sb.WriteString("<gmd:keyword><gco:CharacterString>" + kw + "</gco:CharacterString></gmd:keyword>")
	}
	if title != "" {
		sb.WriteString("<gmd:thesaurusName><gmd:CI_Citation><gmd:title><gco:CharacterString>" +
			title + "</gco:CharacterString></gmd:title></gmd:CI_Citation></gmd:thesaurusName>")
	}
	sb.WriteString("</gmd:MD_Keywords></gmd:descriptiveKeywords>")
	return sb.String()
}

func TestKeywordBlocksNeedExpocodeThesaurus(t *testing.T) {
	var cases = []struct {
		help   string
		blocks []string
		want   []string
	}{
		{
			"unlabeled block at end is dropped",
			[]string{keywordBlock("EXPOCODE", "AAAA20200101"), keywordBlock("", "BBBB20200101")},
			[]string{"AAAA20200101"},
		},
		{
			"unlabeled block is reset by next block",
			[]string{keywordBlock("", "BBBB20200101"), keywordBlock("EXPOCODE", "AAAA20200101")},
			[]string{"AAAA20200101"},
		},
		{
			"other thesaurus",
			[]string{keywordBlock("PLATFORM", "BBBB20200101")},
			[]string{},
		},
		{
			"thesaurus title is case sensitive",
			[]string{keywordBlock("expocode", "BBBB20200101")},
			[]string{},
		},
		{
			"non expocode keywords are ignored",
			[]string{keywordBlock("EXPOCODE", "AAAA20200101", "carbon dioxide", "multiple")},
			[]string{"AAAA20200101"},
		},
		{
			"keywords are normalized",
			[]string{keywordBlock("EXPOCODE", " aaaa20200101 ")},
			[]string{"AAAA20200101"},
		},
	}
	for _, c := range cases {
		t.Run(c.help, func(t *testing.T) {
			doc := mustParse(t, strings.Replace(isoKeywordsTemplate, "%s", strings.Join(c.blocks, "\n"), 1))
			got := NewExtractor(Expocode, ISO("gmd:MD_Metadata")).Extract(doc)
			if diff := cmp.Diff(c.want, got.Sorted()); diff != "" {
				t.Errorf("expocodes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnchorTitleWithoutPrefix(t *testing.T) {
	doc := mustParse(t, `<gmi:MI_Metadata><gmd:identificationInfo><gmd:MD_DataIdentification>
<gmd:citation><gmd:CI_Citation><gmd:identifier><gmd:MD_Identifier><gmd:code>
<gmx:Anchor title="NCEI Accession Number" href="https://accession.nodc.noaa.gov/0163181">0163181</gmx:Anchor>
</gmd:code></gmd:MD_Identifier></gmd:identifier>
<gmd:identifier><gmd:MD_Identifier><gmd:code>
<gmx:Anchor title="NCEI Accession Number" href="ftp://ftp.nodc.noaa.gov/0163181">0163181</gmx:Anchor>
</gmd:code></gmd:MD_Identifier></gmd:identifier>
<gmd:identifier><gmd:MD_Identifier><gmd:code>
<gmx:Anchor title="Other">10.1234/IGNORED</gmx:Anchor>
</gmd:code></gmd:MD_Identifier></gmd:identifier>
</gmd:CI_Citation></gmd:citation>
</gmd:MD_DataIdentification></gmd:identificationInfo></gmi:MI_Metadata>`)
	result := Extract(doc)
	if diff := cmp.Diff([]string{"https://accession.nodc.noaa.gov/0163181"}, result.LandingLinks.Sorted()); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
	if result.DOIs.Len() != 0 {
		t.Errorf("got dois %v, want none", result.DOIs.Sorted())
	}
}

func TestExtractUnknownDocument(t *testing.T) {
	doc := mustParse(t, `<rss><channel><title>EXPOCODE</title><doi>10.1234/X</doi></channel></rss>`)
	result := Extract(doc)
	if result.Expocodes.Len() != 0 || result.DOIs.Len() != 0 || result.LandingLinks.Len() != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestFlatDuplicatesCollapse(t *testing.T) {
	doc := mustParse(t, `<metadata>
<expocode>33RO20071215</expocode>
<expocode>33ro20071215</expocode>
<expocode>none</expocode>
<link_landing>not a link</link_landing>
</metadata>`)
	result := Extract(doc)
	if diff := cmp.Diff([]string{"33RO20071215"}, result.Expocodes.Sorted()); diff != "" {
		t.Errorf("expocodes (-want +got):\n%s", diff)
	}
	if result.LandingLinks.Len() != 0 {
		t.Errorf("got links %v", result.LandingLinks.Sorted())
	}
}

func TestCustomDialect(t *testing.T) {
	extra := Dialect{
		Name:  "cruise",
		Rules: []Rule{{Expocode, "/cruise/id", addExpocode}},
	}
	m := New(Flat, extra)
	result := m.Extract(mustParse(t, `<cruise><id>06AQ20120107</id></cruise>`))
	if diff := cmp.Diff([]string{"06AQ20120107"}, result.Expocodes.Sorted()); diff != "" {
		t.Errorf("expocodes (-want +got):\n%s", diff)
	}
}
