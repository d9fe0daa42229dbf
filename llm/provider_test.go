package llm

import (
	"testing"
)

func TestLookupProvider(t *testing.T) {
	for _, id := range ProviderIDs() {
		prov, err := LookupProvider(id)
		if err != nil {
			t.Errorf("LookupProvider(%q): %v", id, err)
			continue
		}
		if prov.ID != id {
			t.Errorf("LookupProvider(%q).ID = %q", id, prov.ID)
		}
	}
	if _, err := LookupProvider("deepl"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestProviderEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		prov       Provider
		wantChat   string
		wantModels string
		wantNative string
	}{
		{
			name:       "vllm",
			prov:       Provider{ID: ProviderVLLM, BaseURL: "http://localhost:8000/v1/"},
			wantChat:   "http://localhost:8000/v1/chat/completions",
			wantModels: "http://localhost:8000/v1",
			wantNative: "http://localhost:8000",
		},
		{
			name:       "ollama root",
			prov:       Provider{ID: ProviderOllama, BaseURL: "http://localhost:11434"},
			wantChat:   "http://localhost:11434/v1/chat/completions",
			wantModels: "http://localhost:11434/v1",
			wantNative: "http://localhost:11434",
		},
		{
			name:       "ollama with v1",
			prov:       Provider{ID: ProviderOllama, BaseURL: "http://localhost:11434/v1"},
			wantChat:   "http://localhost:11434/v1/chat/completions",
			wantModels: "http://localhost:11434/v1",
			wantNative: "http://localhost:11434",
		},
		{
			name:       "full chat URL",
			prov:       Provider{ID: ProviderCustomOpenAI, BaseURL: "https://example.com/api/chat/completions"},
			wantChat:   "https://example.com/api/chat/completions",
			wantModels: "https://example.com/api",
			wantNative: "https://example.com/api",
		},
		{
			name:       "ollama full chat URL",
			prov:       Provider{ID: ProviderOllama, BaseURL: "http://localhost:11434/v1/chat/completions/"},
			wantChat:   "http://localhost:11434/v1/chat/completions",
			wantModels: "http://localhost:11434/v1",
			wantNative: "http://localhost:11434",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prov.chatEndpoint(); got != tt.wantChat {
				t.Errorf("chatEndpoint() = %q, want %q", got, tt.wantChat)
			}
			if got := tt.prov.apiBase(); got != tt.wantModels {
				t.Errorf("apiBase() = %q, want %q", got, tt.wantModels)
			}
			if got := tt.prov.nativeBase(); got != tt.wantNative {
				t.Errorf("nativeBase() = %q, want %q", got, tt.wantNative)
			}
		})
	}
}

func TestProviderDefaults(t *testing.T) {
	var p Provider
	if p.effectiveMaxConcurrent() != DefaultMaxConcurrent {
		t.Errorf("effectiveMaxConcurrent() = %d", p.effectiveMaxConcurrent())
	}
	if p.effectiveTimeout() <= 0 {
		t.Error("effectiveTimeout() should be positive")
	}
	if p.effectiveKeepAlive() != DefaultKeepAlive {
		t.Errorf("effectiveKeepAlive() = %q", p.effectiveKeepAlive())
	}
	if _, ok := p.headers()["Authorization"]; ok {
		t.Error("no Authorization header expected without an API key")
	}
}

func TestSamplingParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  SamplingParams
		wantErr bool
	}{
		{"defaults", DefaultSamplingParams(), false},
		{"zero", SamplingParams{}, false},
		{"negative temperature", SamplingParams{Temperature: -1}, true},
		{"top_p above one", SamplingParams{TopP: 1.5}, true},
		{"negative max tokens", SamplingParams{MaxTokens: -5}, true},
		{"negative top_k", SamplingParams{TopK: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
