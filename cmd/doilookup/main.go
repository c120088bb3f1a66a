// doilookup resolves DOIs to landing pages and appends them as a new column.
//
// $ cut -f 6 OCADS_Archive_DOIs.tsv | doilookup
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/miku/origdoi"
	"github.com/miku/origdoi/cache"
	"github.com/miku/origdoi/canon"
	"github.com/miku/origdoi/config"
	"github.com/miku/origdoi/fetch"
	"github.com/miku/origdoi/pproc/record"
	"github.com/miku/origdoi/resolve"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	cfg = config.Default()

	column      = flag.Int("c", cfg.Column, "column containing the DOI, 1-based")
	resolverURL = flag.String("resolver", cfg.ResolverURL, "DOI resolver")
	delay       = flag.Duration("d", cfg.Delay, "delay before each uncached lookup")
	numWorkers  = flag.Int("w", cfg.Workers, "number of workers, output order is only kept with one worker")
	persist     = flag.Bool("P", false, "keep resolved DOIs in a cache file between runs")
	cachePath   = flag.String("cache", cfg.CachePath, "cache file used with -P")
	noCanon     = flag.Bool("no-canon", false, "do not rewrite URLs to accession landing pages")
	timeout     = flag.Duration("T", cfg.Timeout, "timeout for a single request")
	maxRetries  = flag.Int("r", cfg.MaxRetries, "max attempts per request")
	verbose     = flag.Bool("v", false, "verbose output")
	showVersion = flag.Bool("version", false, "show version")
)

var help = `doilookup resolves DOIs to landing page URLs

Reads tab separated lines from a file or standard input and appends the URL
the DOI in column -c redirects to. A field may contain multiple DOIs,
separated by " ; ", the resolved URLs are then joined the same way. URLs
carrying an NCEI accession number are rewritten to the accession landing
page, if that page leads to the same URL.

Uncached lookups are delayed, to be nice to the resolver. With -w larger than
one, all workers share a single rate limit. Exits with status 1, if any DOI
could not be resolved.

Examples:

    $ echo 10.25921/0pmp-1r57 | doilookup
    $ doilookup -c 6 -P OCADS_Archive_DOIs.tsv

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
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	cfg.Column = *column
	cfg.ResolverURL = *resolverURL
	cfg.Delay = *delay
	cfg.Workers = *numWorkers
	cfg.Persist = *persist
	cfg.CachePath = *cachePath
	cfg.NoCanon = *noCanon
	cfg.Timeout = *timeout
	cfg.MaxRetries = *maxRetries
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	var r io.Reader = os.Stdin
	if flag.NArg() > 0 && flag.Arg(0) != "-" {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		r = f
	}
	memory := cache.NewMemory()
	if cfg.Persist {
		if cfg.CachePath == "" {
			log.Fatal("no cache path")
		}
		if err := memory.Load(cfg.CachePath); err != nil {
			log.Fatal(err)
		}
		log.WithFields(log.Fields{"path": cfg.CachePath, "entries": memory.Len()}).Debug("loaded cache")
	}
	fetcher := fetch.New(fetch.NewClient(cfg.Timeout, cfg.MaxRetries))
	resolver := &resolve.Resolver{
		BaseURL:  cfg.ResolverURL,
		Follower: fetcher,
		Cache:    memory,
		Limiter:  resolve.FixedDelay(cfg.Delay),
	}
	if cfg.Workers > 1 {
		resolver.Limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	if !cfg.NoCanon {
		resolver.Canon = &canon.Canonicalizer{Follower: fetcher}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	var failed atomic.Int64
	proc := record.NewProcessor(func(n int, line []byte) ([]byte, error) {
		fields := strings.Split(string(line), "\t")
		var value, link string
		if cfg.Column <= len(fields) {
			value = strings.TrimSpace(fields[cfg.Column-1])
		}
		if value != "" {
			var err error
			link, err = resolver.ResolveList(ctx, value)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failed.Add(1)
				log.WithFields(log.Fields{"line": n, "doi": value}).Warnf("no URL: %v", err)
			}
		}
		return []byte(string(line) + "\t" + link + "\n"), nil
	}, record.WithWorkers(cfg.Workers))
	if err := proc.Process(ctx, r, os.Stdout); err != nil {
		log.Fatal(err)
	}
	if cfg.Persist {
		if err := memory.Save(cfg.CachePath); err != nil {
			log.Fatal(err)
		}
	}
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
