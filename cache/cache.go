// Package cache keeps DOI to URL mappings for the lifetime of a process and,
// optionally, between runs in a small TSV file.
package cache

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/miku/origdoi"
)

// DefaultPath returns the location of the persistent cache file, under the
// XDG cache directory.
func DefaultPath() (string, error) {
	return xdg.CacheFile(filepath.Join(origdoi.AppName, "doi.tsv"))
}

// Memory is a map guarded by a mutex, safe for concurrent use.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory returns an empty cache.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (c *Memory) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *Memory) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Import reads tab separated key value lines. Blank lines and lines starting
// with # are skipped.
func (c *Memory) Import(r io.Reader) error {
	br := bufio.NewReader(r)
	var i int
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		i++
		line = strings.TrimRight(line, "\r\n")
		if len(line) > 0 && !strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(line, "\t")
			if !ok || key == "" || value == "" {
				return fmt.Errorf("cache: invalid line %d: %q", i, line)
			}
			c.Set(key, value)
		}
		if err == io.EOF {
			return nil
		}
	}
}

// Export writes all entries as tab separated lines, sorted by key.
func (c *Memory) Export(w io.Writer) error {
	c.mu.RLock()
	keys := make([]string, 0, len(c.m))
	for k := range c.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", k, c.m[k]); err != nil {
			c.mu.RUnlock()
			return err
		}
	}
	c.mu.RUnlock()
	return bw.Flush()
}

// Load imports a cache file; a missing file is not an error.
func (c *Memory) Load(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Import(f)
}

// Save writes the cache to path atomically.
func (c *Memory) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.wip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := c.Export(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
