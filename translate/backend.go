package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/minios-linux/dstrans/llm"
	"go.uber.org/zap"
)

// Backend translates an ordered list of texts. The result has the same
// length and order as the input; an empty input yields an empty result
// without contacting the service.
type Backend interface {
	Translate(ctx context.Context, texts []string) ([]string, error)
}

// Model is a loaded chat model that answers a batch of prompts in one
// call, one output per prompt in prompt order.
type Model interface {
	Chat(ctx context.Context, prompts []string, params llm.SamplingParams) ([]llm.Output, error)
}

// ModelLoader loads the model named by modelID and returns once it is
// ready to serve.
type ModelLoader func(ctx context.Context, modelID string) (Model, error)

// HTTPLoader returns a ModelLoader backed by an inference server.
func HTTPLoader(prov llm.Provider, logger *zap.Logger) ModelLoader {
	return func(ctx context.Context, modelID string) (Model, error) {
		engine, err := llm.Load(ctx, prov, modelID, logger)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// APIClient is a remote translation service.
type APIClient interface {
	TranslateTexts(ctx context.Context, texts []string, sourceLanguage, targetLanguage string) ([]string, error)
}

// UnimplementedClient is a placeholder APIClient that fails every call
// with ErrUnimplementedBackend.
type UnimplementedClient struct{}

// TranslateTexts always fails.
func (UnimplementedClient) TranslateTexts(context.Context, []string, string, string) ([]string, error) {
	return nil, fmt.Errorf("%w: no translation API client wired in", ErrUnimplementedBackend)
}

// ---------------------------------------------------------------------------
// Backend selection
// ---------------------------------------------------------------------------

// BackendConfig selects a backend variant: LocalConfig or RemoteConfig.
type BackendConfig interface {
	backendConfig()
}

// LocalConfig configures a backend that prompts a locally hosted model.
type LocalConfig struct {
	// ModelID identifies the model to load (e.g. "google/gemma-3-27b-it").
	ModelID string
	// Loader loads ModelID. See HTTPLoader.
	Loader ModelLoader
	// Sampling is used unchanged for every call of the run.
	Sampling llm.SamplingParams
	// Prompt wraps each text. Nil means DefaultPrompt.
	Prompt PromptBuilder
}

// RemoteConfig configures a backend that delegates to a translation API.
type RemoteConfig struct {
	Client APIClient
}

func (LocalConfig) backendConfig()  {}
func (RemoteConfig) backendConfig() {}

// NewBackend builds the backend described by cfg. A LocalConfig loads its
// model before returning.
func NewBackend(ctx context.Context, cfg BackendConfig, sourceLanguage, targetLanguage string, logger *zap.Logger) (Backend, error) {
	switch c := cfg.(type) {
	case LocalConfig:
		return NewLocalBackend(ctx, c, sourceLanguage, targetLanguage, logger)
	case *LocalConfig:
		if c == nil {
			return nil, configError("no backend configured")
		}
		return NewLocalBackend(ctx, *c, sourceLanguage, targetLanguage, logger)
	case RemoteConfig:
		return NewRemoteBackend(c, sourceLanguage, targetLanguage)
	case *RemoteConfig:
		if c == nil {
			return nil, configError("no backend configured")
		}
		return NewRemoteBackend(*c, sourceLanguage, targetLanguage)
	case nil:
		return nil, configError("no backend configured")
	default:
		return nil, configError("unsupported backend configuration %T", cfg)
	}
}

// ---------------------------------------------------------------------------
// Local model backend
// ---------------------------------------------------------------------------

// LocalBackend prompts a loaded chat model with one prompt per text.
type LocalBackend struct {
	model          Model
	modelID        string
	sampling       llm.SamplingParams
	prompt         PromptBuilder
	sourceLanguage string
	targetLanguage string
	logger         *zap.Logger
}

// NewLocalBackend loads the model and returns a backend that holds it for
// its lifetime.
func NewLocalBackend(ctx context.Context, cfg LocalConfig, sourceLanguage, targetLanguage string, logger *zap.Logger) (*LocalBackend, error) {
	if cfg.ModelID == "" {
		return nil, configError("local model backend needs a model identifier")
	}
	if cfg.Loader == nil {
		return nil, configError("local model backend needs a model loader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	prompt := cfg.Prompt
	if prompt == nil {
		prompt = DefaultPrompt
	}

	logger.Info("loading model", zap.String("model", cfg.ModelID))
	model, err := cfg.Loader(ctx, cfg.ModelID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading model %q: %w", ErrBackendUnavailable, cfg.ModelID, err)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: loader returned no model for %q", ErrBackendUnavailable, cfg.ModelID)
	}

	return &LocalBackend{
		model:          model,
		modelID:        cfg.ModelID,
		sampling:       cfg.Sampling,
		prompt:         prompt,
		sourceLanguage: sourceLanguage,
		targetLanguage: targetLanguage,
		logger:         logger,
	}, nil
}

// Translate wraps every text in a prompt and sends them as one batch.
func (b *LocalBackend) Translate(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	if b == nil || b.model == nil {
		return nil, fmt.Errorf("%w: model not loaded", ErrBackendUnavailable)
	}

	prompts := make([]string, len(texts))
	for i, text := range texts {
		prompts[i] = b.prompt(text, b.sourceLanguage, b.targetLanguage)
	}

	outputs, err := b.model.Chat(ctx, prompts, b.sampling)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, b.modelID, err)
	}
	if len(outputs) != len(texts) {
		return nil, &ShapeMismatchError{Want: len(texts), Got: len(outputs)}
	}

	result := make([]string, len(outputs))
	for i, out := range outputs {
		best, ok := out.Best()
		if !ok {
			return nil, fmt.Errorf("%w: output %d has no completion", ErrShapeMismatch, i)
		}
		result[i] = best
	}
	b.logger.Debug("translated batch", zap.String("model", b.modelID), zap.Int("texts", len(texts)))
	return result, nil
}

// ---------------------------------------------------------------------------
// Remote API backend
// ---------------------------------------------------------------------------

// RemoteBackend hands texts to a translation API unchanged.
type RemoteBackend struct {
	client         APIClient
	sourceLanguage string
	targetLanguage string
}

// NewRemoteBackend returns a backend for cfg.Client.
func NewRemoteBackend(cfg RemoteConfig, sourceLanguage, targetLanguage string) (*RemoteBackend, error) {
	if cfg.Client == nil {
		return nil, configError("API mode needs a translation client")
	}
	return &RemoteBackend{
		client:         cfg.Client,
		sourceLanguage: sourceLanguage,
		targetLanguage: targetLanguage,
	}, nil
}

// Translate calls the API once for all texts.
func (b *RemoteBackend) Translate(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	out, err := b.client.TranslateTexts(ctx, texts, b.sourceLanguage, b.targetLanguage)
	if err != nil {
		if errors.Is(err, ErrUnimplementedBackend) || errors.Is(err, ErrShapeMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if len(out) != len(texts) {
		return nil, &ShapeMismatchError{Want: len(texts), Got: len(out)}
	}
	return out, nil
}
