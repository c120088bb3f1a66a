// Package record processes line oriented input in parallel.
package record

import (
	"bufio"
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxBufferSize = 1 << 16
	defaultMaxTokenSize  = 1 << 24 // hard limit, needs to be larger than the buffer size
)

// ProcessFunc transforms record number n (1-based) into output. A nil result
// writes nothing. Any error stops processing.
type ProcessFunc func(n int, p []byte) ([]byte, error)

// ProcessorOption allows configuration of the Processor
type ProcessorOption func(*Processor)

// WithWorkers sets the number of worker goroutines. With more than one
// worker, output order is not preserved.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.numWorkers = n
		}
	}
}

// WithMaxTokenSize sets the maximum record size.
func WithMaxTokenSize(size int) ProcessorOption {
	return func(p *Processor) {
		if size > 0 {
			p.maxTokenSize = size
		}
	}
}

// Processor runs a ProcessFunc over all lines of a reader and writes the
// results.
type Processor struct {
	processFunc   ProcessFunc
	numWorkers    int
	maxBufferSize int
	maxTokenSize  int
}

type work struct {
	n    int
	data []byte
}

// NewProcessor creates a new sequential Processor splitting on lines.
func NewProcessor(processFunc ProcessFunc, opts ...ProcessorOption) *Processor {
	p := &Processor{
		processFunc:   processFunc,
		numWorkers:    1,
		maxBufferSize: defaultMaxBufferSize,
		maxTokenSize:  defaultMaxTokenSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxBufferSize > p.maxTokenSize {
		p.maxBufferSize = p.maxTokenSize
	}
	return p
}

// Process reads records from r, processes them and writes results to w.
func (p *Processor) Process(ctx context.Context, r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, p.maxBufferSize), p.maxTokenSize)
	workChan := make(chan work, p.numWorkers*2)
	var writeMu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(workChan)
		var n int
		for scanner.Scan() {
			n++
			token := scanner.Bytes()
			data := make([]byte, len(token))
			copy(data, token)
			select {
			case workChan <- work{n: n, data: data}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return scanner.Err()
	})
	for i := 0; i < p.numWorkers; i++ {
		g.Go(func() error {
			for item := range workChan {
				if err := ctx.Err(); err != nil {
					return err
				}
				result, err := p.processFunc(item.n, item.data)
				if err != nil {
					return err
				}
				if result == nil {
					continue
				}
				writeMu.Lock()
				_, err = bw.Write(result)
				writeMu.Unlock()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return bw.Flush()
}
