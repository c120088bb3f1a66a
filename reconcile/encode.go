package reconcile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
)

// Output formats.
const (
	FormatTSV  = "tsv"
	FormatJSON = "json"
)

// Encode writes triplets as tab separated lines or as JSON lines.
func Encode(w io.Writer, format string, triplets []Triplet) error {
	bw := bufio.NewWriter(w)
	switch format {
	case FormatTSV, "":
		for _, t := range triplets {
			if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", t.Expocode, t.URL, t.DOI); err != nil {
				return err
			}
		}
	case FormatJSON:
		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)
		for _, t := range triplets {
			if err := enc.Encode(t); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return bw.Flush()
}
