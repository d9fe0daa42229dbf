package translate

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/minios-linux/dstrans/llm"
)

func TestLocalBackend_Translate(t *testing.T) {
	model := &fakeModel{}
	loader, _ := loaderFor(model, nil)
	sampling := llm.SamplingParams{Temperature: 0.3, MaxTokens: 128, TopP: 0.9}

	b, err := NewLocalBackend(context.Background(), LocalConfig{
		ModelID:  "m",
		Loader:   loader,
		Sampling: sampling,
	}, "English", "Danish", nil)
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}

	out, err := b.Translate(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("model called %d times, want one batched call", len(model.prompts))
	}
	wantPrompts := []string{
		DefaultPrompt("one", "English", "Danish"),
		DefaultPrompt("two", "English", "Danish"),
	}
	if !reflect.DeepEqual(model.prompts[0], wantPrompts) {
		t.Errorf("prompts = %q, want %q", model.prompts[0], wantPrompts)
	}
	if !reflect.DeepEqual(model.params[0], sampling) {
		t.Errorf("sampling = %+v, want %+v", model.params[0], sampling)
	}
	want := []string{"out(" + wantPrompts[0] + ")", "out(" + wantPrompts[1] + ")"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestLocalBackend_EmptyInput(t *testing.T) {
	model := &fakeModel{}
	loader, _ := loaderFor(model, nil)
	b, err := NewLocalBackend(context.Background(), LocalConfig{ModelID: "m", Loader: loader}, "en", "da", nil)
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}
	out, err := b.Translate(context.Background(), nil)
	if err != nil || out == nil || len(out) != 0 {
		t.Errorf("Translate(nil) = %#v, %v; want empty slice", out, err)
	}
	if len(model.prompts) != 0 {
		t.Error("model called for empty input")
	}
}

func TestLocalBackend_Errors(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		want  error
	}{
		{"chat fails", &fakeModel{err: errBoom}, ErrBackendUnavailable},
		{"missing output", &fakeModel{drop: 1}, ErrShapeMismatch},
		{"no completion", &fakeModel{empty: true}, ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := loaderFor(tt.model, nil)
			b, err := NewLocalBackend(context.Background(), LocalConfig{ModelID: "m", Loader: loader}, "en", "da", nil)
			if err != nil {
				t.Fatalf("NewLocalBackend: %v", err)
			}
			if _, err := b.Translate(context.Background(), []string{"a", "b"}); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLocalBackend_NotLoaded(t *testing.T) {
	var b LocalBackend
	if _, err := b.Translate(context.Background(), []string{"a"}); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
}

func TestNewLocalBackend_NilModel(t *testing.T) {
	loader := func(context.Context, string) (Model, error) { return nil, nil }
	_, err := NewLocalBackend(context.Background(), LocalConfig{ModelID: "m", Loader: loader}, "en", "da", nil)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
}

func TestRemoteBackend(t *testing.T) {
	client := &fakeClient{}
	b, err := NewBackend(context.Background(), RemoteConfig{Client: client}, "English", "Danish", nil)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	out, err := b.Translate(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !reflect.DeepEqual(out, []string{"Danish:hello"}) {
		t.Errorf("out = %q", out)
	}
	if client.source != "English" || client.target != "Danish" {
		t.Errorf("client got languages %q -> %q", client.source, client.target)
	}
}

func TestRemoteBackend_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"transport", errBoom, ErrBackendUnavailable},
		{"unimplemented", ErrUnimplementedBackend, ErrUnimplementedBackend},
		{"shape", &ShapeMismatchError{Want: 1, Got: 0}, ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewRemoteBackend(RemoteConfig{Client: &fakeClient{err: tt.err}}, "en", "da")
			if err != nil {
				t.Fatalf("NewRemoteBackend: %v", err)
			}
			if _, err := b.Translate(context.Background(), []string{"x"}); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// shortClient answers every request with one text too few.
type shortClient struct{}

func (shortClient) TranslateTexts(_ context.Context, texts []string, _, _ string) ([]string, error) {
	return texts[1:], nil
}

func TestRemoteBackend_ShortAnswer(t *testing.T) {
	b, err := NewRemoteBackend(RemoteConfig{Client: shortClient{}}, "en", "da")
	if err != nil {
		t.Fatalf("NewRemoteBackend: %v", err)
	}
	_, err = b.Translate(context.Background(), []string{"a", "b"})
	var shape *ShapeMismatchError
	if !errors.As(err, &shape) || shape.Want != 2 || shape.Got != 1 {
		t.Errorf("error = %v, want ShapeMismatchError{Want: 2, Got: 1}", err)
	}
	if errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("error = %v, should not be ErrBackendUnavailable", err)
	}
}

func TestRemoteBackend_EmptyInputSkipsClient(t *testing.T) {
	b, err := NewRemoteBackend(RemoteConfig{Client: UnimplementedClient{}}, "en", "da")
	if err != nil {
		t.Fatalf("NewRemoteBackend: %v", err)
	}
	out, err := b.Translate(context.Background(), []string{})
	if err != nil || len(out) != 0 {
		t.Errorf("Translate(empty) = %v, %v", out, err)
	}
}

func TestNewBackend_Unsupported(t *testing.T) {
	type otherConfig struct{ BackendConfig }
	_, err := NewBackend(context.Background(), otherConfig{}, "en", "da", nil)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestShapeMismatchError(t *testing.T) {
	err := error(&ShapeMismatchError{Want: 3, Got: 2})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Error("ShapeMismatchError should match ErrShapeMismatch")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("ShapeMismatchError should not match ErrConfiguration")
	}
	if got := err.Error(); got != "translation shape mismatch: sent 3 texts, got 2 back" {
		t.Errorf("Error() = %q", got)
	}
}
