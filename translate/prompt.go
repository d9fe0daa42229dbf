package translate

import "strings"

// PromptBuilder turns one source text into the instruction sent to a
// chat model. It must be pure.
type PromptBuilder func(text, sourceLanguage, targetLanguage string) string

// Placeholders understood by TemplatePrompt.
const (
	placeholderSource = "{{sourceLang}}"
	placeholderTarget = "{{targetLang}}"
	placeholderText   = "{{text}}"
)

// DefaultPromptTemplate is the template behind DefaultPrompt. The payload
// follows the *TEXT:* marker so it cannot be mistaken for instructions.
const DefaultPromptTemplate = "Translate this text from {{sourceLang}} to {{targetLang}}. " +
	"Return only the translated text. Nothing else.\n*TEXT:*\n{{text}}"

// DefaultPrompt is the built-in PromptBuilder.
func DefaultPrompt(text, sourceLanguage, targetLanguage string) string {
	return render(DefaultPromptTemplate, text, sourceLanguage, targetLanguage)
}

// TemplatePrompt returns a PromptBuilder for a custom template using the
// {{sourceLang}}, {{targetLang}} and {{text}} placeholders.
func TemplatePrompt(tmpl string) (PromptBuilder, error) {
	if !strings.Contains(tmpl, placeholderText) {
		return nil, configError("prompt template has no %s placeholder", placeholderText)
	}
	return func(text, sourceLanguage, targetLanguage string) string {
		return render(tmpl, text, sourceLanguage, targetLanguage)
	}, nil
}

// render fills the language placeholders in the template pieces around
// {{text}} only, so placeholders that appear inside the text are kept.
func render(tmpl, text, sourceLanguage, targetLanguage string) string {
	r := strings.NewReplacer(
		placeholderSource, sourceLanguage,
		placeholderTarget, targetLanguage,
	)
	parts := strings.Split(tmpl, placeholderText)
	for i := range parts {
		parts[i] = r.Replace(parts[i])
	}
	return strings.Join(parts, text)
}
