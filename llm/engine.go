package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minios-linux/dstrans/parallel"
	"go.uber.org/zap"
)

// Completion is one generated answer.
type Completion struct {
	Text         string
	FinishReason string
}

// Output holds the completions generated for one prompt.
type Output struct {
	Completions []Completion
}

// Best returns the text of the first completion.
func (o Output) Best() (string, bool) {
	if len(o.Completions) == 0 {
		return "", false
	}
	return o.Completions[0].Text, true
}

// Engine is a model loaded on an inference server. It is safe for
// concurrent use.
type Engine struct {
	prov   Provider
	model  string
	client *http.Client
	logger *zap.Logger
}

// Load checks that the server is reachable and serves model, preloading it
// where the server supports that, and returns an engine bound to it.
func Load(ctx context.Context, prov Provider, model string, logger *zap.Logger) (*Engine, error) {
	if model == "" {
		return nil, fmt.Errorf("no model specified")
	}
	if err := prov.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		prov:   prov,
		model:  model,
		client: makeHTTPClient(prov.Proxy, prov.effectiveTimeout()),
		logger: logger.With(zap.String("provider", prov.ID), zap.String("model", model)),
	}

	var err error
	if prov.ID == ProviderOllama {
		err = e.preloadOllama(ctx)
	} else {
		err = e.checkModelListed(ctx)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Info("model ready")
	return e, nil
}

// Chat sends every prompt as its own user message and returns one output
// per prompt in prompt order. Requests run concurrently up to the
// provider's limit so the server can batch them; the first failure cancels
// the rest.
func (e *Engine) Chat(ctx context.Context, prompts []string, params SamplingParams) ([]Output, error) {
	if len(prompts) == 0 {
		return []Output{}, nil
	}

	indices := make([]int, len(prompts))
	for i := range indices {
		indices[i] = i
	}
	outputs := make([]Output, len(prompts))

	err := parallel.Run(ctx, indices, e.prov.effectiveMaxConcurrent(), func(ctx context.Context, i int) error {
		completions, err := e.complete(ctx, prompts[i], params)
		if err != nil {
			return fmt.Errorf("prompt %d: %w", i, err)
		}
		outputs[i] = Output{Completions: completions}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("chat batch done", zap.Int("prompts", len(prompts)))
	return outputs, nil
}

// ---------------------------------------------------------------------------
// Request and response shapes
// ---------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	TopK        int           `json:"top_k,omitempty"`
	Seed        *int          `json:"seed,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	N           int           `json:"n"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

type ollamaGenerateRequest struct {
	Model     string `json:"model"`
	KeepAlive string `json:"keep_alive,omitempty"`
	Stream    bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func buildChatRequest(model, prompt string, params SamplingParams) ([]byte, error) {
	return json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
		TopK:        params.TopK,
		Seed:        params.Seed,
		Stop:        params.Stop,
		N:           1,
		Stream:      false,
	})
}

// apiError turns an "error" field into an error. Servers send either an
// object with a message or a bare string.
func apiError(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return fmt.Errorf("API error: %s", obj.Message)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return fmt.Errorf("API error: %s", s)
	}
	return fmt.Errorf("API error: %s", truncate(string(raw), 500))
}

func parseChatResponse(body []byte) ([]Completion, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if err := apiError(resp.Error); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices: %s", truncate(string(body), 500))
	}
	completions := make([]Completion, len(resp.Choices))
	for i, c := range resp.Choices {
		completions[i] = Completion{
			Text:         c.Message.Content,
			FinishReason: c.FinishReason,
		}
	}
	return completions, nil
}

// ---------------------------------------------------------------------------
// HTTP calls
// ---------------------------------------------------------------------------

func (e *Engine) complete(ctx context.Context, prompt string, params SamplingParams) ([]Completion, error) {
	body, err := buildChatRequest(e.model, prompt, params)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	respBody, err := e.do(ctx, http.MethodPost, e.prov.chatEndpoint(), body)
	if err != nil {
		return nil, err
	}
	return parseChatResponse(respBody)
}

func (e *Engine) checkModelListed(ctx context.Context) error {
	respBody, err := e.do(ctx, http.MethodGet, e.prov.apiBase()+"/models", nil)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	var list modelList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return fmt.Errorf("listing models: invalid JSON response: %w", err)
	}
	if err := apiError(list.Error); err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	served := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		if m.ID == e.model {
			return nil
		}
		served = append(served, m.ID)
	}
	return fmt.Errorf("model %q is not served by %s (available: %s)",
		e.model, e.prov.displayName(), strings.Join(served, ", "))
}

// preloadOllama asks Ollama to load the model into memory. A generate
// request without a prompt only loads.
func (e *Engine) preloadOllama(ctx context.Context) error {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:     e.model,
		KeepAlive: e.prov.effectiveKeepAlive(),
		Stream:    false,
	})
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	respBody, err := e.do(ctx, http.MethodPost, e.prov.nativeBase()+"/api/generate", body)
	if err != nil {
		return fmt.Errorf("preloading model: %w", err)
	}
	var resp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("preloading model: invalid JSON response: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("preloading model: API error: %s", resp.Error)
	}
	return nil
}

func (e *Engine) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range e.prov.headers() {
		req.Header.Set(k, v)
	}

	e.logger.Debug("request", zap.String("method", method), zap.String("endpoint", endpoint))
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	return respBody, nil
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
