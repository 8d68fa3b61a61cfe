package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/shopglot/shopglot-api/internal/config"
	"github.com/shopglot/shopglot-api/internal/translation"
	"google.golang.org/genai"
)

// batchPromptTemplate asks the model for a locale-keyed JSON object so
// one call covers every target locale.
const batchPromptTemplate = `You are a professional e-commerce localization translator.
Translate the following fields from {{.SourceLocale}} into each of these locales: {{.TargetLocales}}.
Preserve any HTML markup, placeholders and brand names exactly as they appear.
Respond with ONLY a JSON object of the form {"<locale>": {"<field>": "<translated value>"}} covering every requested locale.

Fields:
{{.Fields}}`

// localePromptTemplate asks for a flat field-keyed object for a single
// target locale.
const localePromptTemplate = `You are a professional e-commerce localization translator.
Translate the following fields from {{.SourceLocale}} into {{.TargetLocale}}.
Preserve any HTML markup, placeholders and brand names exactly as they appear.
Respond with ONLY a JSON object of the form {"<field>": "<translated value>"} covering every field.

Fields:
{{.Fields}}`

// Translator implements the translation.Provider interface using the
// Gemini API.
type Translator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	client         *genai.Client
	model          string
	batchTemplate  *template.Template
	localeTemplate *template.Template
}

// NewTranslator creates a new Gemini-backed Translator.
func NewTranslator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Translator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	batchTmpl, err := template.New("batch").Parse(batchPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse batch prompt template: %v", ErrInvalidConfig, err)
	}
	localeTmpl, err := template.New("locale").Parse(localePromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse locale prompt template: %v", ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &Translator{
		logger:         logger.With(slog.String("component", "gemini_translator")),
		config:         cfg,
		client:         client,
		model:          cfg.ModelName,
		batchTemplate:  batchTmpl,
		localeTemplate: localeTmpl,
	}, nil
}

// Ensure Translator implements translation.Provider
var _ translation.Provider = (*Translator)(nil)

// TranslateBatch translates all fields into every target locale with a
// single model call.
func (t *Translator) TranslateBatch(
	ctx context.Context,
	fields map[string]string,
	sourceLocale string,
	targetLocales []string,
) (map[string]map[string]string, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyFields
	}
	if len(targetLocales) == 0 {
		return nil, fmt.Errorf("%w: no target locales", ErrEmptyFields)
	}

	prompt, err := t.renderPrompt(t.batchTemplate, map[string]any{
		"SourceLocale":  sourceLocale,
		"TargetLocales": strings.Join(targetLocales, ", "),
		"Fields":        encodeFields(fields),
	})
	if err != nil {
		return nil, err
	}

	text, err := t.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result map[string]map[string]string
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}

	return result, nil
}

// TranslateLocale translates the fields into one target locale.
func (t *Translator) TranslateLocale(
	ctx context.Context,
	fields map[string]string,
	sourceLocale, targetLocale string,
) (map[string]string, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyFields
	}
	if targetLocale == "" {
		return nil, fmt.Errorf("%w: empty target locale", ErrEmptyFields)
	}

	prompt, err := t.renderPrompt(t.localeTemplate, map[string]any{
		"SourceLocale": sourceLocale,
		"TargetLocale": targetLocale,
		"Fields":       encodeFields(fields),
	})
	if err != nil {
		return nil, err
	}

	text, err := t.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result map[string]string
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}

	return result, nil
}

func (t *Translator) renderPrompt(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callWithRetry makes a Gemini API call with exponential backoff and
// jitter for transient errors. Malformed responses are permanent and
// returned immediately; quota and rate-limit errors are surfaced as
// translation.ErrRateLimited so callers can tag them in logs.
func (t *Translator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := t.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := t.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		t.logger.DebugContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"prompt_length", len(prompt))

		resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), genConfig)

		if err == nil {
			text := resp.Text()
			if text == "" {
				return "", fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
			}
			return text, nil
		}

		if isQuotaMessage(err) {
			return "", fmt.Errorf("%w: %v", translation.ErrRateLimited, err)
		}

		t.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"error", err)

		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

func isQuotaMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted")
}

// encodeFields renders the field map as indented JSON for the prompt.
func encodeFields(fields map[string]string) string {
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", fields)
	}
	return string(data)
}
