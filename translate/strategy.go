package translate

import (
	"context"
	"fmt"
)

// translateTexts is the single path from a strategy to the backend. It
// skips empty requests and rejects answers of the wrong length.
func translateTexts(ctx context.Context, backend Backend, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	out, err := backend.Translate(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, &ShapeMismatchError{Want: len(texts), Got: len(out)}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Column strategies
// ---------------------------------------------------------------------------

// translateStringColumn translates a column of strings with one call.
func translateStringColumn(ctx context.Context, backend Backend, spec ColumnSpec, values []any) ([]any, error) {
	texts := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, rowError(spec, i, "expected a string, got %s", describe(v))
		}
		texts[i] = s
	}

	out, err := translateTexts(ctx, backend, texts)
	if err != nil {
		return nil, err
	}
	result := make([]any, len(out))
	for i, s := range out {
		result[i] = s
	}
	return result, nil
}

// translateListColumn translates a column whose rows are lists of strings.
func translateListColumn(ctx context.Context, backend Backend, spec ColumnSpec, values []any, flatten bool) ([]any, error) {
	rows := make([][]string, len(values))
	for i, v := range values {
		texts, err := stringList(v)
		if err != nil {
			return nil, rowError(spec, i, "%v", err)
		}
		rows[i] = texts
	}

	translated, err := translateRows(ctx, backend, rows, flatten)
	if err != nil {
		return nil, err
	}
	result := make([]any, len(translated))
	for i, texts := range translated {
		result[i] = texts
	}
	return result, nil
}

// translateDictListColumn translates the spec.Key list inside each row
// object. Every other field is deep-copied into the output row.
func translateDictListColumn(ctx context.Context, backend Backend, spec ColumnSpec, values []any, flatten bool) ([]any, error) {
	objects := make([]map[string]any, len(values))
	rows := make([][]string, len(values))
	for i, v := range values {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, rowError(spec, i, "expected an object, got %s", describe(v))
		}
		field, ok := obj[spec.Key]
		if !ok {
			return nil, rowError(spec, i, "object has no field %q", spec.Key)
		}
		texts, err := stringList(field)
		if err != nil {
			return nil, rowError(spec, i, "field %q: %v", spec.Key, err)
		}
		objects[i] = obj
		rows[i] = texts
	}

	translated, err := translateRows(ctx, backend, rows, flatten)
	if err != nil {
		return nil, err
	}
	result := make([]any, len(objects))
	for i, obj := range objects {
		row := deepCopy(obj).(map[string]any)
		row[spec.Key] = translated[i]
		result[i] = row
	}
	return result, nil
}

// translateRows translates each row's texts. By default every non-empty
// row is its own backend call; with flatten the whole column goes out in
// one call and is split back by offsets.
func translateRows(ctx context.Context, backend Backend, rows [][]string, flatten bool) ([][]string, error) {
	if flatten {
		return translateFlattened(ctx, backend, rows)
	}
	out := make([][]string, len(rows))
	for i, texts := range rows {
		if len(texts) == 0 {
			out[i] = []string{}
			continue
		}
		translated, err := translateTexts(ctx, backend, texts)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = translated
	}
	return out, nil
}

func translateFlattened(ctx context.Context, backend Backend, rows [][]string) ([][]string, error) {
	offsets := make([]int, len(rows)+1)
	var flat []string
	for i, texts := range rows {
		offsets[i] = len(flat)
		flat = append(flat, texts...)
	}
	offsets[len(rows)] = len(flat)

	translated, err := translateTexts(ctx, backend, flat)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(rows))
	for i := range rows {
		out[i] = append([]string{}, translated[offsets[i]:offsets[i+1]]...)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Value helpers
// ---------------------------------------------------------------------------

// stringList accepts []string or a []any holding only strings.
func stringList(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		return append([]string{}, x...), nil
	case []any:
		out := make([]string, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: expected a string, got %s", i, describe(item))
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %s", describe(v))
	}
}

// deepCopy copies maps and slices recursively. Scalars are immutable and
// returned as-is.
func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, val := range x {
			s[i] = deepCopy(val)
		}
		return s
	case []string:
		return append([]string(nil), x...)
	case map[string]string:
		m := make(map[string]string, len(x))
		for k, val := range x {
			m[k] = val
		}
		return m
	default:
		return v
	}
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func rowError(spec ColumnSpec, row int, format string, args ...any) error {
	return configError("column %q (%s) row %d: %s", spec.Name, spec.Kind, row, fmt.Sprintf(format, args...))
}
