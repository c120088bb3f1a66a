// expodoi reads the archive registry, fetches the XML metadata for each entry
// and writes expocode, landing page and DOI triplets.
//
// $ expodoi OCADS_Archive_DOIs.tsv > triplets.tsv
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/miku/origdoi"
	"github.com/miku/origdoi/config"
	"github.com/miku/origdoi/fetch"
	"github.com/miku/origdoi/pproc/record"
	"github.com/miku/origdoi/reconcile"
	"github.com/miku/origdoi/registry"
	log "github.com/sirupsen/logrus"
)

var (
	cfg = config.Default()

	policy          = flag.String("policy", cfg.Policy, "what to do with registry values missing from the XML: lenient, strict")
	preferAlternate = flag.Bool("prefer-alternate", false, "try the standard XML document of known accession URLs first")
	format          = flag.String("f", cfg.Format, "output format: tsv, json")
	numWorkers      = flag.Int("w", cfg.Workers, "number of workers, output order is only kept with one worker")
	timeout         = flag.Duration("T", cfg.Timeout, "timeout for a single request")
	maxRetries      = flag.Int("r", cfg.MaxRetries, "max attempts per request")
	userAgent       = flag.String("ua", cfg.UserAgent, "user agent")
	verbose         = flag.Bool("v", false, "verbose output")
	showVersion     = flag.Bool("version", false, "show version")
)

var help = `expodoi extracts expocodes, DOIs and landing pages from XML metadata

Reads expocodes (fourth column), URLs (fifth column), and DOIs (sixth column)
from the TSV registry, reads the XML from each URL to extract more expocodes
and possibly a DOI, then writes out triplets of expocode, landing page URL,
and DOI to standard output.

Rows without a URL starting with "http" are skipped. If the URL is not an XML
file, ";view=xml;responseType=text/xml" is appended to it. Known accession
URLs have an alternate, standard XML document, which is tried when the first
URL fails.

With -policy strict, rows listing expocodes or a DOI not found in the XML are
rejected, as are rows with more than one DOI. Exits with status 1, if any row
was rejected.

Examples:

    $ expodoi OCADS_Archive_DOIs.tsv
    $ zstdcat OCADS_Archive_DOIs.tsv.zst | expodoi -policy strict -f json -

Usage:

`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(origdoi.Version)
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	cfg.Policy = *policy
	cfg.PreferAlternate = *preferAlternate
	cfg.Format = *format
	cfg.Workers = *numWorkers
	cfg.Timeout = *timeout
	cfg.MaxRetries = *maxRetries
	cfg.UserAgent = *userAgent
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	p, err := reconcile.ParsePolicy(cfg.Policy)
	if err != nil {
		log.Fatal(err)
	}
	rc, err := registry.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer rc.Close()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	fetcher := fetch.New(fetch.NewClient(cfg.Timeout, cfg.MaxRetries))
	fetcher.UserAgent = cfg.UserAgent
	r := &reconcile.Reconciler{
		Fetcher:         fetcher,
		Policy:          p,
		PreferAlternate: cfg.PreferAlternate,
	}
	var stats struct {
		rows, skipped, rejected, triplets atomic.Int64
	}
	proc := record.NewProcessor(func(n int, line []byte) ([]byte, error) {
		stats.rows.Add(1)
		entry := log.WithField("line", n)
		row, err := registry.ParseRow(string(line), n)
		if err == nil {
			entry = entry.WithField("url", row.URL)
			var triplets []reconcile.Triplet
			if triplets, err = r.Reconcile(ctx, row); err == nil {
				if len(triplets) == 0 {
					return nil, nil
				}
				stats.triplets.Add(int64(len(triplets)))
				var buf bytes.Buffer
				if err := reconcile.Encode(&buf, cfg.Format, triplets); err != nil {
					return nil, err
				}
				return buf.Bytes(), nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if registry.IsSkip(err) {
			stats.skipped.Add(1)
			entry.WithField("row", strings.TrimSpace(string(line))).Warnf("ignoring entry: %v", err)
		} else {
			stats.rejected.Add(1)
			entry.WithField("row", strings.TrimSpace(string(line))).Warnf("rejecting entry: %v", err)
		}
		return nil, nil
	}, record.WithWorkers(cfg.Workers))
	if err := proc.Process(ctx, rc, os.Stdout); err != nil {
		log.Fatal(err)
	}
	log.WithFields(log.Fields{
		"rows":     stats.rows.Load(),
		"skipped":  stats.skipped.Load(),
		"rejected": stats.rejected.Load(),
		"triplets": stats.triplets.Load(),
	}).Info("done")
	if stats.rejected.Load() > 0 {
		os.Exit(1)
	}
}
