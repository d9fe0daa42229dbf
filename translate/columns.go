package translate

import (
	"fmt"
	"strings"
)

// TranslatedSuffix is appended to a column name to form the name of the
// column holding its translation.
const TranslatedSuffix = "_translated"

// Kind declares the shape of a column's row values.
type Kind string

const (
	// KindString columns hold one string per row.
	KindString Kind = "string"
	// KindList columns hold a list of strings per row.
	KindList Kind = "list"
	// KindDictList columns hold an object per row whose Key field is a
	// list of strings; the other fields are passed through.
	KindDictList Kind = "dict_list"
)

// Kinds lists the valid column kinds.
var Kinds = []Kind{KindString, KindList, KindDictList}

// ColumnSpec declares one column to translate.
type ColumnSpec struct {
	// Name is the column to read. It must exist in every batch.
	Name string `yaml:"name"`
	// Kind selects the shape strategy.
	Kind Kind `yaml:"kind"`
	// Key names the list field inside each row object (KindDictList only).
	Key string `yaml:"key,omitempty"`
}

// TranslatedName returns the name of the output column.
func (c ColumnSpec) TranslatedName() string {
	return c.Name + TranslatedSuffix
}

// Validate checks the declaration. Key is ignored for kinds other than
// KindDictList.
func (c ColumnSpec) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return configError("column has no name")
	}
	switch c.Kind {
	case KindString, KindList:
		return nil
	case KindDictList:
		if c.Key == "" {
			return configError("column %q of kind %s needs a key", c.Name, c.Kind)
		}
		return nil
	case "":
		return configError("column %q has no kind", c.Name)
	default:
		return configError("column %q has unknown kind %q (valid: string, list, dict_list)", c.Name, c.Kind)
	}
}

// String formats the spec as name:kind[:key], the form accepted by
// ParseColumnSpec.
func (c ColumnSpec) String() string {
	if c.Kind == KindDictList {
		return fmt.Sprintf("%s:%s:%s", c.Name, c.Kind, c.Key)
	}
	return fmt.Sprintf("%s:%s", c.Name, c.Kind)
}

// ParseColumnSpec parses "name:kind" or "name:dict_list:key".
func ParseColumnSpec(s string) (ColumnSpec, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ColumnSpec{}, configError("column %q: expected name:kind or name:dict_list:key", s)
	}
	spec := ColumnSpec{Name: parts[0], Kind: Kind(parts[1])}
	if len(parts) == 3 {
		spec.Key = parts[2]
	}
	if err := spec.Validate(); err != nil {
		return ColumnSpec{}, err
	}
	return spec, nil
}

// validateColumns checks each spec and rejects duplicate names.
func validateColumns(columns []ColumnSpec) error {
	if len(columns) == 0 {
		return configError("no columns to translate")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if err := c.Validate(); err != nil {
			return err
		}
		if seen[c.Name] {
			return configError("column %q declared twice", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
