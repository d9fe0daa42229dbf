package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxLineSize bounds a single JSONL record. MS MARCO rows with ten
// passages are well below this.
const maxLineSize = 64 << 20

// Format identifies an on-disk dataset encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown dataset format for %s (expected .jsonl, .json or .csv)", path)
	}
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// Load reads a JSONL or JSON-array dataset file.
func Load(path string) (*Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatJSONL:
		d, err := ReadJSONL(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return d, nil
	case FormatJSON:
		d, err := ReadJSON(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%s: %s input is not supported", path, format)
	}
}

// ReadJSONL reads one JSON object per line. Blank lines are skipped.
// Numbers are kept as json.Number so they are written back verbatim.
// Top-level key order is kept; nested objects are plain maps and are
// written with their keys sorted.
func ReadJSONL(r io.Reader) (*Dataset, error) {
	var b rowBuilder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		keys, row, err := decodeObject(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		b.add(keys, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.dataset(), nil
}

// ReadJSON reads a JSON array of objects.
func ReadJSON(r io.Reader) (*Dataset, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing JSON array: %w", err)
	}
	var b rowBuilder
	for i, item := range raw {
		keys, row, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		b.add(keys, row)
	}
	return b.dataset(), nil
}

// decodeObject decodes a JSON object while keeping its key order.
func decodeObject(data []byte) ([]string, map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("row is not a JSON object")
	}

	var keys []string
	row := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, row, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Save writes the dataset to path in the format implied by its extension.
func Save(path string, d *Dataset) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	switch format {
	case FormatJSONL:
		err = WriteJSONL(w, d)
	case FormatJSON:
		err = WriteJSON(w, d)
	case FormatCSV:
		err = WriteCSV(w, d)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteJSONL writes one JSON object per row, fields in column order.
func WriteJSONL(w io.Writer, d *Dataset) error {
	for i := 0; i < d.rows; i++ {
		line, err := d.encodeRow(i)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the rows as an indented JSON array.
func WriteJSON(w io.Writer, d *Dataset) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i := 0; i < d.rows; i++ {
		line, err := d.encodeRow(i)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		sep := ",\n  "
		if i == 0 {
			sep = "\n  "
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n]\n")
	return err
}

// WriteCSV writes a header row followed by one record per row. String
// cells are written as-is; any other value is JSON-encoded.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.columns); err != nil {
		return err
	}
	record := make([]string, len(d.columns))
	for i := 0; i < d.rows; i++ {
		for j, name := range d.columns {
			cell, err := csvCell(d.data[name][i])
			if err != nil {
				return fmt.Errorf("row %d, column %q: %w", i, name, err)
			}
			record[j] = cell
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (d *Dataset) encodeRow(i int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for j, name := range d.columns {
		if j > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalValue(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalValue(d.data[name][i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func csvCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	default:
		b, err := marshalValue(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// marshalValue encodes v without HTML escaping so that text survives a
// round trip unchanged.
func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
