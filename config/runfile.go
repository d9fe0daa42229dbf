// Package config — dstrans.yaml run file support.
//
// A run file declares everything a translation run needs: languages, the
// dataset to read and where to write it, the columns to translate and
// their shapes, and the backend. Command-line flags override its values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minios-linux/dstrans/dataset"
	"github.com/minios-linux/dstrans/llm"
	"github.com/minios-linux/dstrans/registry"
	"github.com/minios-linux/dstrans/translate"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// RunFile is the top-level dstrans.yaml structure.
type RunFile struct {
	// SourceLang is the source language code or name (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// TargetLang is the target language code or name.
	TargetLang string `yaml:"target_lang"`
	// Input is the dataset file (.jsonl or .json), relative to the run file.
	Input string `yaml:"input"`
	// Output is the translated dataset file (default "<input>.<target>.jsonl").
	Output string `yaml:"output,omitempty"`
	// CSV is an optional CSV export of the translated dataset.
	CSV string `yaml:"csv,omitempty"`
	// Columns lists the columns to translate, in order.
	Columns []translate.ColumnSpec `yaml:"columns"`
	// BatchSize is the number of rows per batch (default 32).
	BatchSize int `yaml:"batch_size,omitempty"`
	// Workers is the number of batches translated concurrently (default 1).
	Workers int `yaml:"workers,omitempty"`
	// FlattenLists sends each list column as one request per batch.
	FlattenLists bool `yaml:"flatten_lists,omitempty"`
	// Prompt is a custom prompt template ({{sourceLang}}, {{targetLang}}, {{text}}).
	Prompt string `yaml:"prompt,omitempty"`
	// Backend selects the translation backend.
	Backend Backend `yaml:"backend"`
	// Registry, when set, receives the exported files.
	Registry registry.Config `yaml:"registry,omitempty"`

	// dir is the directory of the run file; relative paths resolve against it.
	dir string
}

// Backend modes.
const (
	ModeLocal = "local"
	ModeAPI   = "api"
)

// API client kinds.
const (
	APIKindLambda = "lambda"
)

// Backend describes the translation backend.
type Backend struct {
	// Mode is "local" (inference server) or "api" (translation service).
	Mode string `yaml:"mode,omitempty"`

	// --- local options ---

	// Provider is the inference server preset (vllm, ollama, custom-openai).
	Provider string `yaml:"provider,omitempty"`
	// Model is the model identifier to load.
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider's base URL.
	BaseURL string `yaml:"base_url,omitempty"`
	// APIKey is a bearer token; prefer "dstrans auth set" or DSTRANS_API_KEY.
	APIKey string `yaml:"api_key,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// Timeout is the per-request timeout (e.g. "5m").
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// MaxConcurrent bounds in-flight requests per batch.
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
	// KeepAlive is how long Ollama keeps the model loaded.
	KeepAlive string `yaml:"keep_alive,omitempty"`
	// Sampling is fixed for the whole run (defaults when omitted).
	Sampling *llm.SamplingParams `yaml:"sampling,omitempty"`

	// --- api options ---

	API API `yaml:"api,omitempty"`
}

// API describes a remote translation service.
type API struct {
	// Kind selects the client (only "lambda").
	Kind string `yaml:"kind,omitempty"`
	// Function is the Lambda function name or ARN.
	Function string `yaml:"function,omitempty"`
	// Region overrides the AWS region.
	Region string `yaml:"region,omitempty"`
	// MaxTokens bounds the estimated size of one request chunk.
	MaxTokens int `yaml:"max_tokens,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// RunFileName is the default run file name.
const RunFileName = "dstrans.yaml"

// ReadRunFile parses a run file without applying defaults or validating
// it, so command-line flags can still fill in missing fields.
func ReadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	rf.dir = filepath.Dir(absPath)
	return &rf, nil
}

// LoadRunFile reads, defaults and validates a run file.
func LoadRunFile(path string) (*RunFile, error) {
	rf, err := ReadRunFile(path)
	if err != nil {
		return nil, err
	}
	rf.ApplyDefaults()
	if err := rf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

// FindRunFile reads RunFileName from dir without validating it.
// Returns nil if it does not exist.
func FindRunFile(dir string) (*RunFile, error) {
	path := filepath.Join(dir, RunFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ReadRunFile(path)
}

// ApplyDefaults fills in unset fields. It is safe to call more than once.
func (rf *RunFile) ApplyDefaults() {
	if rf.SourceLang == "" {
		rf.SourceLang = "en"
	}
	if rf.BatchSize == 0 {
		rf.BatchSize = dataset.DefaultBatchSize
	}
	if rf.Workers == 0 {
		rf.Workers = 1
	}

	b := &rf.Backend
	if b.Mode == "" {
		b.Mode = ModeLocal
	}
	switch b.Mode {
	case ModeLocal:
		if b.Provider == "" {
			b.Provider = llm.ProviderVLLM
		}
		if b.Sampling == nil {
			s := llm.DefaultSamplingParams()
			b.Sampling = &s
		}
	case ModeAPI:
		if b.API.Kind == "" {
			b.API.Kind = APIKindLambda
		}
	}
}

// Validate checks the run file after defaults were applied.
func (rf *RunFile) Validate() error {
	if rf.TargetLang == "" {
		return fmt.Errorf("target_lang is required")
	}
	if rf.SourceLang == rf.TargetLang {
		return fmt.Errorf("source_lang and target_lang are both %q", rf.SourceLang)
	}
	if rf.Input == "" {
		return fmt.Errorf("input is required")
	}
	if len(rf.Columns) == 0 {
		return fmt.Errorf("no columns to translate")
	}
	seen := make(map[string]bool, len(rf.Columns))
	for i, c := range rf.Columns {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("column #%d: %w", i+1, err)
		}
		if seen[c.Name] {
			return fmt.Errorf("column %q declared twice", c.Name)
		}
		seen[c.Name] = true
	}
	if rf.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	if rf.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if rf.Prompt != "" {
		if _, err := translate.TemplatePrompt(rf.Prompt); err != nil {
			return err
		}
	}

	b := rf.Backend
	switch b.Mode {
	case ModeLocal:
		if _, err := llm.LookupProvider(b.Provider); err != nil {
			return fmt.Errorf("backend: %w", err)
		}
		if b.Model == "" {
			return fmt.Errorf("backend: model is required in local mode")
		}
		if b.Provider == llm.ProviderCustomOpenAI && b.BaseURL == "" {
			return fmt.Errorf("backend: provider %s needs base_url", b.Provider)
		}
		if b.Sampling != nil {
			if err := b.Sampling.Validate(); err != nil {
				return fmt.Errorf("backend sampling: %w", err)
			}
		}
	case ModeAPI:
		if b.API.Kind != APIKindLambda {
			return fmt.Errorf("backend: unknown api kind %q (valid: lambda)", b.API.Kind)
		}
		if b.API.Function == "" {
			return fmt.Errorf("backend: api.function is required for the lambda client")
		}
	default:
		return fmt.Errorf("backend: unknown mode %q (valid: local, api)", b.Mode)
	}

	if rf.Registry.Enabled() {
		if err := rf.Registry.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// resolve makes p absolute relative to the run file directory.
func (rf *RunFile) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || rf.dir == "" {
		return p
	}
	return filepath.Join(rf.dir, p)
}

// InputPath returns the dataset path.
func (rf *RunFile) InputPath() string {
	return rf.resolve(rf.Input)
}

// OutputPath returns the translated dataset path.
func (rf *RunFile) OutputPath() string {
	if rf.Output != "" {
		return rf.resolve(rf.Output)
	}
	return DefaultOutputPath(rf.InputPath(), rf.TargetLang)
}

// CSVPath returns the CSV export path, or "" when none is configured.
func (rf *RunFile) CSVPath() string {
	return rf.resolve(rf.CSV)
}

// DefaultOutputPath derives "<dir>/<name>.<lang>.jsonl" from an input path.
func DefaultOutputPath(input, lang string) string {
	ext := filepath.Ext(input)
	base := input[:len(input)-len(ext)]
	return base + "." + lang + ".jsonl"
}
