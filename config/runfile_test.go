package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/dstrans/llm"
	"github.com/minios-linux/dstrans/translate"
)

func writeRunFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, RunFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadRunFileDefaultsAndValidation(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		dir := t.TempDir()
		path := writeRunFile(t, dir, `
target_lang: da
input: data/train.jsonl
columns:
  - name: query
    kind: string
  - name: answers
    kind: list
  - name: passages
    kind: dict_list
    key: passage_text
backend:
  model: google/gemma-3-27b-it
  timeout: 5m
`)
		rf, err := LoadRunFile(path)
		if err != nil {
			t.Fatalf("LoadRunFile: %v", err)
		}
		if rf.SourceLang != "en" {
			t.Errorf("SourceLang = %q, want en", rf.SourceLang)
		}
		if rf.BatchSize != 32 || rf.Workers != 1 {
			t.Errorf("BatchSize=%d Workers=%d, want 32, 1", rf.BatchSize, rf.Workers)
		}
		if rf.Backend.Mode != ModeLocal || rf.Backend.Provider != llm.ProviderVLLM {
			t.Errorf("backend = %+v", rf.Backend)
		}
		if rf.Backend.Timeout != 5*time.Minute {
			t.Errorf("Timeout = %v, want 5m", rf.Backend.Timeout)
		}
		if rf.Backend.Sampling == nil || !reflect.DeepEqual(*rf.Backend.Sampling, llm.DefaultSamplingParams()) {
			t.Errorf("Sampling = %+v, want defaults", rf.Backend.Sampling)
		}
		want := translate.ColumnSpec{Name: "passages", Kind: translate.KindDictList, Key: "passage_text"}
		if rf.Columns[2] != want {
			t.Errorf("Columns[2] = %+v, want %+v", rf.Columns[2], want)
		}
		if got, want := rf.InputPath(), filepath.Join(dir, "data", "train.jsonl"); got != want {
			t.Errorf("InputPath() = %q, want %q", got, want)
		}
		if got, want := rf.OutputPath(), filepath.Join(dir, "data", "train.da.jsonl"); got != want {
			t.Errorf("OutputPath() = %q, want %q", got, want)
		}
		if rf.CSVPath() != "" {
			t.Errorf("CSVPath() = %q, want empty", rf.CSVPath())
		}
	})

	t.Run("api mode", func(t *testing.T) {
		dir := t.TempDir()
		path := writeRunFile(t, dir, `
source_lang: en
target_lang: de
input: /data/in.json
output: out/in.de.jsonl
csv: out/in.de.csv
columns: [{name: title, kind: string}]
backend:
  mode: api
  api:
    function: translator-en-de
    region: eu-west-1
registry:
  endpoint: localhost:9000
  bucket: datasets
`)
		rf, err := LoadRunFile(path)
		if err != nil {
			t.Fatalf("LoadRunFile: %v", err)
		}
		if rf.Backend.API.Kind != APIKindLambda {
			t.Errorf("API.Kind = %q, want lambda", rf.Backend.API.Kind)
		}
		if rf.Backend.Sampling != nil {
			t.Error("sampling defaults should not apply in api mode")
		}
		if rf.InputPath() != "/data/in.json" {
			t.Errorf("absolute input changed: %q", rf.InputPath())
		}
		if got, want := rf.CSVPath(), filepath.Join(dir, "out", "in.de.csv"); got != want {
			t.Errorf("CSVPath() = %q, want %q", got, want)
		}
		if !rf.Registry.Enabled() || rf.Registry.Bucket != "datasets" {
			t.Errorf("Registry = %+v", rf.Registry)
		}
	})

	invalid := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no target", "input: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {model: m}", "target_lang"},
		{"same languages", "source_lang: da\ntarget_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {model: m}", "both"},
		{"no input", "target_lang: da\ncolumns: [{name: q, kind: string}]\nbackend: {model: m}", "input"},
		{"no columns", "target_lang: da\ninput: a.jsonl\nbackend: {model: m}", "no columns"},
		{"dict_list without key", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: p, kind: dict_list}]\nbackend: {model: m}", "needs a key"},
		{"duplicate column", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}, {name: q, kind: list}]\nbackend: {model: m}", "twice"},
		{"no model", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]", "model is required"},
		{"unknown provider", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {provider: foo, model: m}", "unknown provider"},
		{"custom without url", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {provider: custom-openai, model: m}", "base_url"},
		{"bad sampling", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {model: m, sampling: {temperature: -1}}", "temperature"},
		{"unknown mode", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {mode: remote}", "unknown mode"},
		{"api without function", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {mode: api}", "api.function"},
		{"prompt without text", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nprompt: Translate\nbackend: {model: m}", "{{text}}"},
		{"registry without bucket", "target_lang: da\ninput: a.jsonl\ncolumns: [{name: q, kind: string}]\nbackend: {model: m}\nregistry: {endpoint: localhost:9000}", "bucket"},
		{"bad yaml", "target_lang: [", "parsing"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRunFile(t, t.TempDir(), tt.content)
			_, err := LoadRunFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFindRunFile(t *testing.T) {
	dir := t.TempDir()
	rf, err := FindRunFile(dir)
	if err != nil || rf != nil {
		t.Fatalf("FindRunFile(empty dir) = %v, %v; want nil, nil", rf, err)
	}

	// Incomplete run files are returned as-is; flags may complete them.
	writeRunFile(t, dir, "input: a.jsonl\ncolumns: [{name: q, kind: string}]\n")
	rf, err = FindRunFile(dir)
	if err != nil || rf == nil {
		t.Fatalf("FindRunFile = %v, %v", rf, err)
	}
	if rf.TargetLang != "" || rf.BatchSize != 0 {
		t.Errorf("FindRunFile applied defaults: %+v", rf)
	}
	if got, want := rf.InputPath(), filepath.Join(dir, "a.jsonl"); got != want {
		t.Errorf("InputPath() = %q, want %q", got, want)
	}

	rf.TargetLang = "da"
	rf.Backend.Model = "m"
	rf.ApplyDefaults()
	if err := rf.Validate(); err != nil {
		t.Errorf("Validate after completing: %v", err)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input, lang, want string
	}{
		{"data/train.jsonl", "da", "data/train.da.jsonl"},
		{"train.json", "de", "train.de.jsonl"},
		{"noext", "fr", "noext.fr.jsonl"},
	}
	for _, tt := range tests {
		if got := DefaultOutputPath(tt.input, tt.lang); got != tt.want {
			t.Errorf("DefaultOutputPath(%q, %q) = %q, want %q", tt.input, tt.lang, got, tt.want)
		}
	}
}
