package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/minios-linux/dstrans/dataset"
	"github.com/minios-linux/dstrans/i18n"
	"github.com/minios-linux/dstrans/translate"
	"github.com/spf13/cobra"
)

// ---------------------------------------------------------------------------
// inspect (read-only: columns, row count, suggested column kinds)
// ---------------------------------------------------------------------------

func newInspectCmd() *cobra.Command {
	var sample int

	cmd := &cobra.Command{
		Use:   "inspect [input]",
		Short: "Show dataset columns and suggested column kinds",
		Long: `Show the columns of a dataset, its row count, and for each column the
kind it looks like (string, list or dict_list) together with a ready-made
--column value. Suggestions are a starting point only: translate always uses
the declared kinds. Does not modify any files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			} else {
				rf, err := loadRunFile()
				if err != nil {
					return err
				}
				input = rf.InputPath()
			}
			if input == "" {
				return errors.New(i18n.T("no input dataset: pass a file or set input in the run file"))
			}
			return runInspect(input, sample)
		},
	}

	cmd.Flags().IntVar(&sample, "sample", 100, "Rows examined per column (0 = all)")

	return cmd
}

func runInspect(input string, sample int) error {
	ds, err := dataset.Load(input)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, input, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  %s %d\n\n", i18n.T("Rows:"), ds.Len())

	width := 0
	for _, name := range ds.Columns() {
		if len(name) > width {
			width = len(name)
		}
	}

	for _, name := range ds.Columns() {
		values, _ := ds.Column(name)
		if sample > 0 && len(values) > sample {
			values = values[:sample]
		}
		s := suggestKind(name, values)
		if s.kind == "" {
			fmt.Fprintf(os.Stderr, "  %-*s  %s-%s\n", width, name, colorYellow, colorReset)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-*s  %s%-9s%s --column %s\n", width, name, colorGreen, s.kind, colorReset, s.flag())
		if len(s.keys) > 1 {
			fmt.Fprintf(os.Stderr, "  %-*s  %s %s\n", width, "", i18n.T("string fields:"), strings.Join(s.keys, ", "))
		}
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// suggestion is the column kind a column's values look like. kind is empty
// when the column holds no translatable text.
type suggestion struct {
	name string
	kind translate.Kind
	keys []string
}

func (s suggestion) flag() string {
	spec := translate.ColumnSpec{Name: s.name, Kind: s.kind}
	if s.kind == translate.KindDictList && len(s.keys) > 0 {
		spec.Key = preferredKey(s.keys)
	}
	return spec.String()
}

// preferredKey picks the field most likely to hold prose.
func preferredKey(keys []string) string {
	for _, k := range keys {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "text") || strings.Contains(lower, "content") || strings.Contains(lower, "body") {
			return k
		}
	}
	return keys[0]
}

// suggestKind classifies a column from its values. Null values are ignored;
// a column of only nulls has no suggestion.
func suggestKind(name string, values []any) suggestion {
	s := suggestion{name: name}
	var strs, lists, dicts, seen int
	keyCounts := map[string]int{}
	for _, v := range values {
		if v == nil {
			continue
		}
		seen++
		switch val := v.(type) {
		case string:
			strs++
		case []any:
			if isStringList(val) {
				lists++
			}
		case map[string]any:
			dicts++
			for k, fv := range val {
				if list, ok := fv.([]any); ok && isStringList(list) {
					keyCounts[k]++
				}
			}
		}
	}
	if seen == 0 {
		return s
	}

	switch {
	case strs == seen:
		s.kind = translate.KindString
	case lists == seen:
		s.kind = translate.KindList
	case dicts == seen:
		for k, n := range keyCounts {
			if n == dicts {
				s.keys = append(s.keys, k)
			}
		}
		if len(s.keys) == 0 {
			return s
		}
		sort.Strings(s.keys)
		s.kind = translate.KindDictList
	}
	return s
}

// isStringList reports whether every item of list is a string. Empty lists
// qualify.
func isStringList(list []any) bool {
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}
