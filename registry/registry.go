// Package registry reads the tab separated archive registry, one dataset per
// line. Column 4 holds one or more expocodes, column 5 the dataset URL and
// the optional column 6 a DOI.
package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/miku/origdoi/normal"
)

// Skip marks a row that is not meant to be processed. It is not a problem
// with the data.
type Skip struct {
	Err error
}

func (s Skip) Error() string {
	return "skipped: " + s.Err.Error()
}

func (s Skip) Unwrap() error {
	return s.Err
}

var (
	ErrSkipTooFewColumns = Skip{Err: errors.New("insufficient number of values")}
	ErrSkipNoURL         = Skip{Err: errors.New("no URL found")}
)

// IsSkip reports whether err marks a skipped row.
func IsSkip(err error) bool {
	var s Skip
	return errors.As(err, &s)
}

// Row is a single registry entry.
type Row struct {
	Line      int
	Expocodes string // raw field, may be a quoted, comma separated list
	URL       string
	DOI       string // bare and upper-cased, empty if missing or not DOI-like
}

// ExpocodeValues returns the individual values of the expocode field, which
// still need to be checked.
func (r Row) ExpocodeValues() []string {
	s := strings.Trim(strings.TrimSpace(r.Expocodes), `"`)
	if s == "" {
		return nil
	}
	var result []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

// ParseRow parses line number n of the registry.
func ParseRow(line string, n int) (Row, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) < 5 {
		return Row{Line: n}, ErrSkipTooFewColumns
	}
	row := Row{
		Line:      n,
		Expocodes: fields[3],
		URL:       strings.TrimSpace(fields[4]),
	}
	if len(fields) > 5 {
		if doi, ok := normal.ParseDOI(fields[5]); ok {
			row.DOI = doi
		}
	}
	if !strings.HasPrefix(row.URL, "http") {
		return row, ErrSkipNoURL
	}
	return row, nil
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var errs []error
	for _, f := range rc.closers {
		if err := f(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens a registry file for reading, decompressing files ending in
// .gz or .zst. The name "-" means standard input.
func Open(filename string) (io.ReadCloser, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if filename == "-" {
		f = io.NopCloser(os.Stdin)
	} else if f, err = os.Open(filename); err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(filename, ".gz"):
		zr, err := pgzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("registry: %s: %w", filename, err)
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case strings.HasSuffix(filename, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("registry: %s: %w", filename, err)
		}
		return &readCloser{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			f.Close,
		}}, nil
	default:
		return f, nil
	}
}
