package normal

import (
	"fmt"
	"testing"
)

func TestParseExpocode(t *testing.T) {
	testCases := []struct {
		raw  string
		code string
		rest string
		ok   bool
	}{
		{"ABCD20041215", "ABCD20041215", "", true},
		{"ABCDE20041215", "ABCDE20041215", "", true},
		{"  33ro20071215 ", "33RO20071215", "", true},
		{"316420060713", "316420060713", "", true},
		{"PANC20160103-2", "PANC20160103-2", "", true},
		{"49NZ20101020_leg1", "49NZ20101020", "_LEG1", true},
		{"multiple", "", "", false},
		{"", "", "", false},
		{"ABC20041215", "", "", false},
		{"ABCD2004121", "", "", false},
		{"ABCDEF20041215", "", "", false},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("expocode %q", tc.raw), func(t *testing.T) {
			code, rest, ok := ParseExpocode(tc.raw)
			if code != tc.code || rest != tc.rest || ok != tc.ok {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", code, rest, ok, tc.code, tc.rest, tc.ok)
			}
			if IsExpocode(tc.raw) != tc.ok {
				t.Errorf("IsExpocode disagrees with ParseExpocode")
			}
		})
	}
}

func TestParseDOI(t *testing.T) {
	testCases := []struct {
		raw    string
		result string
		ok     bool
	}{
		{"10.25921/0pmp-1r57", "10.25921/0PMP-1R57", true},
		{"https://doi.org/10.25921/0pmp-1r57", "10.25921/0PMP-1R57", true},
		{"HTTPS://DOI.ORG/10.25921/0PMP-1R57", "10.25921/0PMP-1R57", true},
		{"http://dx.doi.org/10.7289/v5kd1w5w", "10.7289/V5KD1W5W", true},
		{"doi:10.7289/V5KD1W5W", "10.7289/V5KD1W5W", true},
		{" 10.3334/CDIAC/OTG.GO_SHIP_P16N_2015\n", "10.3334/CDIAC/OTG.GO_SHIP_P16N_2015", true},
		{"yes", "", false},
		{"no", "", false},
		{"", "", false},
		{"10.1234", "", false},
		{"https://example.com/10.1234/abc", "", false},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("doi %q", tc.raw), func(t *testing.T) {
			got, ok := ParseDOI(tc.raw)
			if got != tc.result || ok != tc.ok {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tc.result, tc.ok)
			}
		})
	}
}

func TestParseDOIIdempotent(t *testing.T) {
	for _, raw := range []string{"https://doi.org/10.25921/0pmp-1r57", "10.25921/0pmp-1r57"} {
		once, ok := ParseDOI(raw)
		if !ok {
			t.Fatalf("%s: not a DOI", raw)
		}
		twice, ok := ParseDOI(once)
		if !ok || twice != once {
			t.Errorf("%s: got %q then %q", raw, once, twice)
		}
	}
}
