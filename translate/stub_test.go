package translate

import (
	"context"
	"errors"
	"sync"

	"github.com/minios-linux/dstrans/llm"
)

// tagBackend answers every text with "<lang>:"+text and records the
// requests it received.
type tagBackend struct {
	lang string

	mu    sync.Mutex
	calls [][]string
}

func (b *tagBackend) Translate(_ context.Context, texts []string) ([]string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, append([]string(nil), texts...))
	b.mu.Unlock()

	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = b.lang + ":" + t
	}
	return out, nil
}

func (b *tagBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// shortBackend drops the last text of every request.
type shortBackend struct{}

func (shortBackend) Translate(_ context.Context, texts []string) ([]string, error) {
	return texts[:len(texts)-1], nil
}

// failBackend fails every call after the first ok calls.
type failBackend struct {
	ok    int
	calls int
	err   error
}

func (b *failBackend) Translate(ctx context.Context, texts []string) ([]string, error) {
	b.calls++
	if b.calls > b.ok {
		return nil, b.err
	}
	return (&tagBackend{lang: "ok"}).Translate(ctx, texts)
}

var errBoom = errors.New("boom")

// fakeModel answers each prompt with "out(<prompt>)".
type fakeModel struct {
	mu      sync.Mutex
	prompts [][]string
	params  []llm.SamplingParams
	// drop removes outputs from the answer; empty clears completions.
	drop  int
	empty bool
	err   error
}

func (m *fakeModel) Chat(_ context.Context, prompts []string, params llm.SamplingParams) ([]llm.Output, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, append([]string(nil), prompts...))
	m.params = append(m.params, params)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	outs := make([]llm.Output, 0, len(prompts))
	for _, p := range prompts[:len(prompts)-m.drop] {
		o := llm.Output{}
		if !m.empty {
			o.Completions = []llm.Completion{{Text: "out(" + p + ")", FinishReason: "stop"}}
		}
		outs = append(outs, o)
	}
	return outs, nil
}

func loaderFor(m Model, err error) (ModelLoader, *int) {
	loads := 0
	return func(context.Context, string) (Model, error) {
		loads++
		if err != nil {
			return nil, err
		}
		return m, nil
	}, &loads
}

// fakeClient is an APIClient recording its language arguments.
type fakeClient struct {
	source, target string
	err            error
}

func (c *fakeClient) TranslateTexts(_ context.Context, texts []string, source, target string) ([]string, error) {
	c.source, c.target = source, target
	if c.err != nil {
		return nil, c.err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = target + ":" + t
	}
	return out, nil
}
