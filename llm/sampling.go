package llm

import "fmt"

// SamplingParams are the generation settings sent with every prompt of a
// run. Zero values mean "server default" except Temperature, which is
// always sent.
type SamplingParams struct {
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	TopP        float64  `yaml:"top_p,omitempty"`
	TopK        int      `yaml:"top_k,omitempty"`
	Seed        *int     `yaml:"seed,omitempty"`
	Stop        []string `yaml:"stop,omitempty"`
}

// DefaultSamplingParams returns low-temperature settings suited to
// translation.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		Temperature: 0.2,
		MaxTokens:   2048,
		TopP:        0.95,
	}
}

// Validate rejects values no server accepts.
func (s SamplingParams) Validate() error {
	if s.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %g", s.Temperature)
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", s.MaxTokens)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("top_p must be within [0, 1], got %g", s.TopP)
	}
	if s.TopK < 0 {
		return fmt.Errorf("top_k must not be negative, got %d", s.TopK)
	}
	return nil
}
