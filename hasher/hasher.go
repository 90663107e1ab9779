package hasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/danthegoodman1/idhash/accumulator"
	"github.com/danthegoodman1/idhash/batch"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type (
	// Delta is the direction a write moves the fingerprint in.
	Delta int

	// IDHasher keeps a running, order independent fingerprint of a dataset.
	// Rows can be added and removed in any order and any batching.
	//
	// Writes are serialized on the hasher, Finalize may be called at any
	// time and as often as needed.
	IDHasher struct {
		mu     sync.RWMutex
		schema *Schema
		state  accumulator.State
		rows   int64

		concurrency int
		// rows per digest task, larger batches are split
		splitRows int
		logger    zerolog.Logger
	}

	Option func(*IDHasher)

	// work is a row range of one batch, digested by one goroutine
	work struct {
		batch    batch.Batch
		batchIdx int
		from, to int
	}
)

const (
	Add Delta = iota + 1
	Remove
)

const defaultSplitRows = 64 * 1024

func (d Delta) String() string {
	switch d {
	case Add:
		return "Add"
	case Remove:
		return "Remove"
	}
	return fmt.Sprintf("Delta(%d)", int(d))
}

func ParseDelta(s string) (Delta, error) {
	switch s {
	case "Add":
		return Add, nil
	case "Remove":
		return Remove, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrInvalidDelta)
}

func (d Delta) sign() (accumulator.Sign, error) {
	switch d {
	case Add:
		return accumulator.Positive, nil
	case Remove:
		return accumulator.Negative, nil
	}
	return 0, fmt.Errorf("%s: %w", d, ErrInvalidDelta)
}

// WithConcurrency bounds the goroutines digesting a single write.
func WithConcurrency(n int) Option {
	return func(h *IDHasher) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *IDHasher) {
		h.logger = l
	}
}

// withSplitRows lowers the split threshold, tests use it to force splitting.
func withSplitRows(n int) Option {
	return func(h *IDHasher) {
		if n > 0 {
			h.splitRows = n
		}
	}
}

// New creates a hasher for the given field names and type tags.
func New(fieldNames, fieldTypes []string, opts ...Option) (*IDHasher, error) {
	schema, err := NewSchema(fieldNames, fieldTypes)
	if err != nil {
		return nil, err
	}
	return NewWithSchema(schema, opts...), nil
}

func NewWithSchema(schema *Schema, opts ...Option) *IDHasher {
	h := &IDHasher{
		schema:      schema,
		concurrency: runtime.GOMAXPROCS(0),
		splitRows:   defaultSplitRows,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IDHasher) Schema() *Schema {
	return h.schema
}

// Rows returns the number of rows added minus the number removed.
func (h *IDHasher) Rows() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rows
}

// WriteBatches folds every row of batches into the fingerprint, with the sign
// given by delta. Either all batches are applied or, on error, none are.
func (h *IDHasher) WriteBatches(batches []batch.Batch, delta Delta) error {
	return h.writeBatches(batches, delta, 0)
}

func (h *IDHasher) writeBatches(batches []batch.Batch, delta Delta, firstIdx int) error {
	sign, err := delta.sign()
	if err != nil {
		return err
	}

	s := time.Now()
	var tasks []work
	var rows int64
	for i, b := range batches {
		if _, err := columnTypes(h.schema, b, firstIdx+i); err != nil {
			return err
		}
		n := b.NumRows()
		rows += int64(n)
		for from := 0; from < n; from += h.splitRows {
			to := from + h.splitRows
			if to > n {
				to = n
			}
			tasks = append(tasks, work{batch: b, batchIdx: firstIdx + i, from: from, to: to})
		}
	}

	partial, err := h.digest(tasks)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.state.MergeSigned(partial, sign)
	h.rows += int64(sign) * rows
	h.mu.Unlock()

	h.logger.Debug().Str("delta", delta.String()).Int("batches", len(batches)).Int64("rows", rows).Int("tasks", len(tasks)).Dur("took", time.Since(s)).Msg("wrote batches")
	return nil
}

// digest runs tasks on a bounded pool and sums their partial states. The
// sum does not depend on which goroutine finished first.
func (h *IDHasher) digest(tasks []work) (accumulator.State, error) {
	partials := make([]accumulator.State, len(tasks))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(h.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			if ctx.Err() != nil {
				// another task failed, its error is the one reported
				return nil
			}
			types, err := columnTypes(h.schema, t.batch, t.batchIdx)
			if err != nil {
				return err
			}
			partials[i], err = digestRows(h.schema, t.batch, types, t.batchIdx, t.from, t.to)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return accumulator.State{}, err
	}

	var total accumulator.State
	for _, p := range partials {
		total.Merge(p)
	}
	return total, nil
}

// WriteReader drains r, writing each batch as it arrives. Each batch is
// applied atomically. On error the batches already written stay applied and
// the returned count says how many rows they held.
func (h *IDHasher) WriteReader(r batch.Reader, delta Delta) (int64, error) {
	var rows int64
	for i := 0; ; i++ {
		b, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("error reading batch %d: %w", i, err)
		}
		if err := h.writeBatches([]batch.Batch{b}, delta, i); err != nil {
			return rows, err
		}
		rows += int64(b.NumRows())
	}
}

// Finalize returns the fingerprint of everything written so far. It does not
// change the hasher, writes may continue afterwards.
func (h *IDHasher) Finalize() Fingerprint {
	h.mu.RLock()
	st := h.state
	h.mu.RUnlock()
	return finalize(st, h.schema.Key())
}
