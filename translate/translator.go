// Package translate translates dataset columns while preserving their
// shape. Each declared column (a string, a list of strings, or an object
// holding a list of strings) is flattened into texts, sent through a
// Backend (a locally hosted chat model or a remote translation API) and
// reassembled into a new "<column>_translated" column.
package translate

import (
	"context"
	"fmt"

	"github.com/minios-linux/dstrans/dataset"
	"go.uber.org/zap"
)

// Config describes a translation run.
type Config struct {
	// Columns are translated in order.
	Columns []ColumnSpec
	// SourceLanguage and TargetLanguage are language names as they should
	// appear in prompts (e.g. "English", "Danish").
	SourceLanguage string
	TargetLanguage string
	// Backend selects and configures the translation backend.
	Backend BackendConfig
	// FlattenLists sends each list or dict_list column as a single backend
	// call instead of one call per row.
	FlattenLists bool
	// BatchSize is the number of rows per batch in Translate (0 = 32).
	BatchSize int
	// Workers is the number of batches translated concurrently (0 = 1).
	Workers int
	// OnProgress is called after each batch in Translate.
	OnProgress func(done, total int)
	// Logger receives diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// Translator applies column strategies to batches through one backend.
// It is safe for concurrent use on distinct batches when its backend is.
type Translator struct {
	columns    []ColumnSpec
	backend    Backend
	flatten    bool
	batchSize  int
	workers    int
	onProgress func(done, total int)
	logger     *zap.Logger
}

// New validates cfg and builds the backend. For a local backend the model
// is loaded before New returns.
func New(ctx context.Context, cfg Config) (*Translator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	backend, err := NewBackend(ctx, cfg.Backend, cfg.SourceLanguage, cfg.TargetLanguage, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return newTranslator(cfg, backend), nil
}

// NewWithBackend builds a translator around an existing backend.
// cfg.Backend is ignored.
func NewWithBackend(cfg Config, backend Backend) (*Translator, error) {
	if backend == nil {
		return nil, configError("no backend configured")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return newTranslator(cfg, backend), nil
}

func validateConfig(cfg Config) error {
	if err := validateColumns(cfg.Columns); err != nil {
		return err
	}
	if cfg.SourceLanguage == "" {
		return configError("source language is required")
	}
	if cfg.TargetLanguage == "" {
		return configError("target language is required")
	}
	if cfg.BatchSize < 0 {
		return configError("batch size must not be negative")
	}
	if cfg.Workers < 0 {
		return configError("worker count must not be negative")
	}
	return nil
}

func newTranslator(cfg Config, backend Backend) *Translator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{
		columns:    append([]ColumnSpec(nil), cfg.Columns...),
		backend:    backend,
		flatten:    cfg.FlattenLists,
		batchSize:  cfg.BatchSize,
		workers:    cfg.Workers,
		onProgress: cfg.OnProgress,
		logger:     logger,
	}
}

// Columns returns the declared columns.
func (t *Translator) Columns() []ColumnSpec {
	return append([]ColumnSpec(nil), t.columns...)
}

// TranslateBatch adds "<name>_translated" to batch for every declared
// column and returns it. On error the batch is left without any new key.
func (t *Translator) TranslateBatch(ctx context.Context, batch dataset.Batch) (dataset.Batch, error) {
	rows := -1
	for _, spec := range t.columns {
		values, ok := batch[spec.Name]
		if !ok {
			return nil, configError("column %q is missing from the batch", spec.Name)
		}
		if _, exists := batch[spec.TranslatedName()]; exists {
			return nil, configError("column %q already exists", spec.TranslatedName())
		}
		if rows >= 0 && len(values) != rows {
			return nil, configError("column %q has %d rows, expected %d", spec.Name, len(values), rows)
		}
		rows = len(values)
	}

	staged := make([][]any, len(t.columns))
	for i, spec := range t.columns {
		out, err := t.translateColumn(ctx, spec, batch[spec.Name])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", spec.Name, err)
		}
		staged[i] = out
		t.logger.Debug("translated column",
			zap.String("column", spec.Name),
			zap.String("kind", string(spec.Kind)),
			zap.Int("rows", len(out)),
		)
	}

	for i, spec := range t.columns {
		batch[spec.TranslatedName()] = staged[i]
	}
	return batch, nil
}

func (t *Translator) translateColumn(ctx context.Context, spec ColumnSpec, values []any) ([]any, error) {
	switch spec.Kind {
	case KindString:
		return translateStringColumn(ctx, t.backend, spec, values)
	case KindList:
		return translateListColumn(ctx, t.backend, spec, values, t.flatten)
	case KindDictList:
		return translateDictListColumn(ctx, t.backend, spec, values, t.flatten)
	default:
		return nil, configError("column %q has unknown kind %q", spec.Name, spec.Kind)
	}
}

// Translate maps TranslateBatch over the whole dataset and returns a new
// dataset with one added column per declared column, in declaration order.
// The input dataset is not modified.
func (t *Translator) Translate(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	added := make([]string, len(t.columns))
	for i, spec := range t.columns {
		if !ds.HasColumn(spec.Name) {
			return nil, configError("dataset has no column %q", spec.Name)
		}
		added[i] = spec.TranslatedName()
	}

	t.logger.Info("translating dataset",
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(t.columns)),
		zap.Int("batch_size", t.batchSize),
		zap.Int("workers", t.workers),
	)
	return ds.Map(ctx, t.TranslateBatch, dataset.MapOptions{
		BatchSize:  t.batchSize,
		Workers:    t.workers,
		Columns:    added,
		OnProgress: t.onProgress,
		Logger:     t.logger,
	})
}
