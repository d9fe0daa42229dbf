// Package llm talks to a locally hosted inference server (vLLM, Ollama or
// any OpenAI-compatible endpoint) and exposes a loaded model that answers
// a batch of chat prompts.
package llm

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Provider identifiers
// ---------------------------------------------------------------------------

const (
	ProviderVLLM         = "vllm"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
)

// DefaultMaxConcurrent is the number of in-flight chat requests per batch
// when the provider does not set one.
const DefaultMaxConcurrent = 8

// DefaultKeepAlive is how long Ollama keeps a preloaded model in memory.
const DefaultKeepAlive = "30m"

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for an inference server.
type Provider struct {
	// ID is the provider identifier (vllm, ollama, custom-openai).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the bearer token (empty for most local servers).
	APIKey string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxConcurrent bounds the requests sent for one batch.
	MaxConcurrent int
	// KeepAlive is passed to Ollama when the model is preloaded.
	KeepAlive string
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderVLLM: {
			ID:      ProviderVLLM,
			Name:    "vLLM",
			BaseURL: "http://localhost:8000/v1",
			Timeout: 300 * time.Second,
		},
		ProviderOllama: {
			ID:        ProviderOllama,
			Name:      "Ollama",
			BaseURL:   "http://localhost:11434",
			Timeout:   300 * time.Second,
			KeepAlive: DefaultKeepAlive,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 120 * time.Second,
		},
	}
}

// ProviderIDs returns the known provider identifiers, sorted.
func ProviderIDs() []string {
	ids := make([]string, 0, 3)
	for id := range DefaultProviders() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LookupProvider returns the preset for id.
func LookupProvider(id string) (Provider, error) {
	prov, ok := DefaultProviders()[id]
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider %q (available: %s)", id, strings.Join(ProviderIDs(), ", "))
	}
	return prov, nil
}

// Validate checks that the provider can be reached.
func (p Provider) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("provider %s needs a base URL", p.displayName())
	}
	if _, err := url.Parse(p.BaseURL); err != nil {
		return fmt.Errorf("provider %s: invalid base URL: %w", p.displayName(), err)
	}
	if p.MaxConcurrent < 0 {
		return fmt.Errorf("provider %s: max concurrent must not be negative", p.displayName())
	}
	return nil
}

func (p Provider) displayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.ID != "" {
		return p.ID
	}
	return "(unnamed)"
}

func (p Provider) effectiveTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 120 * time.Second
}

func (p Provider) effectiveMaxConcurrent() int {
	if p.MaxConcurrent > 0 {
		return p.MaxConcurrent
	}
	return DefaultMaxConcurrent
}

func (p Provider) effectiveKeepAlive() string {
	if p.KeepAlive != "" {
		return p.KeepAlive
	}
	return DefaultKeepAlive
}

// apiBase is the root of the OpenAI-compatible API. Ollama serves it
// under /v1 next to its native /api endpoints.
func (p Provider) apiBase() string {
	base := p.root()
	if p.ID == ProviderOllama && !strings.HasSuffix(base, "/v1") {
		return base + "/v1"
	}
	return base
}

// nativeBase is the Ollama server root without the /v1 suffix.
func (p Provider) nativeBase() string {
	return strings.TrimSuffix(p.root(), "/v1")
}

func (p Provider) chatEndpoint() string {
	return p.apiBase() + "/chat/completions"
}

// root is BaseURL without a trailing slash or a full chat endpoint path.
func (p Provider) root() string {
	return strings.TrimSuffix(strings.TrimRight(p.BaseURL, "/"), "/chat/completions")
}

func (p Provider) headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if p.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.APIKey
	}
	return headers
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
