// Package dataset holds tabular datasets in column-major form and maps
// batch functions over them. It is the driver side of a translation run:
// it loads rows, hands out fixed-size batches, collects the augmented
// batches and writes the result back out (JSONL, JSON or CSV).
package dataset

import "fmt"

// Batch maps a column name to the row values of a contiguous slice of the
// dataset. All columns of a batch have the same length.
type Batch map[string][]any

// Len returns the number of rows in the batch.
func (b Batch) Len() int {
	for _, col := range b {
		return len(col)
	}
	return 0
}

// Dataset is an immutable, column-ordered table.
type Dataset struct {
	columns []string
	data    map[string][]any
	rows    int
}

// New creates a dataset from column data. Every listed column must be
// present in data and all columns must have the same length.
func New(columns []string, data map[string][]any) (*Dataset, error) {
	d := &Dataset{
		columns: append([]string(nil), columns...),
		data:    make(map[string][]any, len(columns)),
		rows:    -1,
	}
	for _, name := range columns {
		col, ok := data[name]
		if !ok {
			return nil, fmt.Errorf("column %q has no data", name)
		}
		if _, dup := d.data[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		if d.rows >= 0 && len(col) != d.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(col), d.rows)
		}
		d.rows = len(col)
		d.data[name] = col
	}
	if d.rows < 0 {
		d.rows = 0
	}
	return d, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.rows }

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// HasColumn reports whether the dataset has a column with the given name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.data[name]
	return ok
}

// Column returns the values of a column. The returned slice must not be
// modified.
func (d *Dataset) Column(name string) ([]any, bool) {
	col, ok := d.data[name]
	return col, ok
}

// Row returns row i as a map.
func (d *Dataset) Row(i int) map[string]any {
	row := make(map[string]any, len(d.columns))
	for _, name := range d.columns {
		row[name] = d.data[name][i]
	}
	return row
}

// Batch returns rows [start, end) as a batch. Column slices are copied so
// that adding or replacing keys in the batch never touches the dataset.
func (d *Dataset) Batch(start, end int) Batch {
	if start < 0 {
		start = 0
	}
	if end > d.rows {
		end = d.rows
	}
	b := make(Batch, len(d.columns))
	for _, name := range d.columns {
		b[name] = append([]any(nil), d.data[name][start:end]...)
	}
	return b
}

// rowBuilder accumulates row objects into columns, back-filling nil for
// columns that first appear after some rows were already added.
type rowBuilder struct {
	columns []string
	data    map[string][]any
	rows    int
}

func (b *rowBuilder) add(order []string, row map[string]any) {
	if b.data == nil {
		b.data = make(map[string][]any)
	}
	for _, key := range order {
		if _, ok := b.data[key]; !ok {
			b.columns = append(b.columns, key)
			b.data[key] = make([]any, b.rows)
		}
	}
	for _, name := range b.columns {
		b.data[name] = append(b.data[name], row[name])
	}
	b.rows++
}

func (b *rowBuilder) dataset() *Dataset {
	if b.data == nil {
		b.data = make(map[string][]any)
	}
	return &Dataset{columns: b.columns, data: b.data, rows: b.rows}
}
