package dataset

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/minios-linux/dstrans/parallel"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of rows handed to a BatchFunc per call.
const DefaultBatchSize = 32

// BatchFunc transforms one batch. It may add keys to the batch; it must
// keep every existing column and the row count unchanged.
type BatchFunc func(ctx context.Context, batch Batch) (Batch, error)

// MapOptions controls how Map splits and schedules batches.
type MapOptions struct {
	// BatchSize is the number of rows per batch (0 = DefaultBatchSize).
	BatchSize int
	// Workers is the number of batches processed concurrently (0 = 1).
	Workers int
	// Columns is the preferred order for columns added by the BatchFunc.
	// Added columns not listed here are appended in sorted order.
	Columns []string
	// OnProgress is called after each batch with the number of rows done.
	OnProgress func(done, total int)
	// Logger receives per-batch debug output.
	Logger *zap.Logger
}

func (o *MapOptions) effectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o *MapOptions) effectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return 1
}

type span struct {
	index      int
	start, end int
}

// Map applies fn to the dataset batch by batch and returns a new dataset
// holding the returned batches. The first failing batch aborts the whole
// run and no dataset is returned.
func (d *Dataset) Map(ctx context.Context, fn BatchFunc, opts MapOptions) (*Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	size := opts.effectiveBatchSize()
	var spans []span
	for start := 0; start < d.rows; start += size {
		end := start + size
		if end > d.rows {
			end = d.rows
		}
		spans = append(spans, span{index: len(spans), start: start, end: end})
	}
	if len(spans) == 0 {
		// An empty dataset still goes through fn once so added columns exist.
		spans = []span{{}}
	}

	results := make([]Batch, len(spans))
	var progressMu sync.Mutex
	done := 0

	err := parallel.Run(ctx, spans, opts.effectiveWorkers(), func(ctx context.Context, s span) error {
		logger.Debug("mapping batch",
			zap.Int("batch", s.index),
			zap.Int("start", s.start),
			zap.Int("end", s.end),
		)
		out, err := fn(ctx, d.Batch(s.start, s.end))
		if err != nil {
			return fmt.Errorf("batch %d (rows %d-%d): %w", s.index+1, s.start, s.end-1, err)
		}
		if err := d.checkBatch(out, s.end-s.start); err != nil {
			return fmt.Errorf("batch %d (rows %d-%d): %w", s.index+1, s.start, s.end-1, err)
		}
		results[s.index] = out

		progressMu.Lock()
		done += s.end - s.start
		if opts.OnProgress != nil {
			opts.OnProgress(done, d.rows)
		}
		progressMu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.assemble(results, opts.Columns)
}

// checkBatch verifies that a returned batch kept every original column and
// that all of its columns have the expected row count.
func (d *Dataset) checkBatch(b Batch, rows int) error {
	for _, name := range d.columns {
		if _, ok := b[name]; !ok {
			return fmt.Errorf("column %q was removed", name)
		}
	}
	for name, col := range b {
		if len(col) != rows {
			return fmt.Errorf("column %q has %d rows, expected %d", name, len(col), rows)
		}
	}
	return nil
}

func (d *Dataset) assemble(results []Batch, preferred []string) (*Dataset, error) {
	added := make(map[string]bool)
	for _, b := range results {
		for name := range b {
			if !d.HasColumn(name) {
				added[name] = true
			}
		}
	}

	columns := d.Columns()
	for _, name := range preferred {
		if added[name] {
			columns = append(columns, name)
			delete(added, name)
		}
	}
	rest := make([]string, 0, len(added))
	for name := range added {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	columns = append(columns, rest...)

	data := make(map[string][]any, len(columns))
	for _, name := range columns {
		col := make([]any, 0, d.rows)
		for i, b := range results {
			vals, ok := b[name]
			if !ok {
				return nil, fmt.Errorf("batch %d is missing column %q", i+1, name)
			}
			col = append(col, vals...)
		}
		data[name] = col
	}
	return New(columns, data)
}
