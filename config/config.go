// Package config holds settings shared by the command line tools.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/miku/origdoi"
	"github.com/miku/origdoi/cache"
	"github.com/miku/origdoi/resolve"
)

// Config is populated from flags in each main.
type Config struct {
	// Timeout for a single HTTP request, including redirects.
	Timeout time.Duration
	// MaxRetries for transient HTTP errors.
	MaxRetries int
	UserAgent  string
	// Workers processing rows in parallel. Output order is only kept with
	// a single worker.
	Workers int
	// Verbose enables debug logging.
	Verbose bool

	// Policy for registry values missing from the metadata document,
	// "lenient" or "strict".
	Policy          string
	PreferAlternate bool
	Format          string

	ResolverURL string
	// Delay before each uncached DOI lookup.
	Delay time.Duration
	// Column holding DOIs, 1-based.
	Column int
	// Persist the DOI cache between runs at CachePath.
	Persist   bool
	CachePath string
	NoCanon   bool
}

// Default returns the default settings.
func Default() Config {
	cachePath, err := cache.DefaultPath()
	if err != nil {
		cachePath = ""
	}
	return Config{
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		UserAgent:   fmt.Sprintf("%s/%s", origdoi.AppName, origdoi.Version),
		Workers:     1,
		Policy:      "lenient",
		Format:      "tsv",
		ResolverURL: resolve.DefaultBaseURL,
		Delay:       resolve.DefaultDelay,
		Column:      1,
		CachePath:   cachePath,
	}
}

// Validate checks settings, that cannot be checked by the flag package.
func (c Config) Validate() error {
	if c.Workers < 1 || c.Workers > 16*runtime.NumCPU() {
		return fmt.Errorf("config: invalid number of workers: %d", c.Workers)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: need at least one attempt, got %d", c.MaxRetries)
	}
	if c.Column < 1 {
		return fmt.Errorf("config: columns are 1-based, got %d", c.Column)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: invalid timeout: %v", c.Timeout)
	}
	if c.Delay < 0 {
		return fmt.Errorf("config: invalid delay: %v", c.Delay)
	}
	switch c.Format {
	case "tsv", "json":
	default:
		return fmt.Errorf("config: unknown format: %s", c.Format)
	}
	return nil
}
