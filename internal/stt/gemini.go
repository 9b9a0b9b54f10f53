package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	geminiDefaultEndpoint = "https://generativelanguage.googleapis.com"
	geminiDefaultModel    = "gemini-2.0-flash"
	geminiDefaultPrompt   = "Transcribe this audio clip. Return only the transcript text, nothing else."
)

// GeminiProvider transcribes audio through Gemini's generateContent
// endpoint, sending the clip as an inline-data part. Implements the
// Provider interface.
type GeminiProvider struct {
	mu       sync.RWMutex
	settings geminiSettings
	defaults geminiSettings
	client   *http.Client
}

type geminiSettings struct {
	APIKey   string
	Endpoint string
	Model    string
	Prompt   string
}

// GeminiOptions configures a GeminiProvider. Zero values fall back to
// the built-in defaults.
type GeminiOptions struct {
	APIKey  string // default credential when none is persisted
	Model   string
	Timeout time.Duration
}

// geminiRequest is the generateContent request body. Exactly one content
// with a text part (the prompt) followed by the inline audio part.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 audio
}

// geminiResponse covers both the success and error shapes. Text is kept
// raw so a missing field can be told apart from a non-string one.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text json.RawMessage `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiErrorBody `json:"error"`
}

// apiErrorBody is the `{"error":{"message":...}}` shape both Gemini and
// OpenAI-compatible services use for application-level errors.
type apiErrorBody struct {
	Message string `json:"message"`
}

// NewGeminiProvider creates a Gemini provider with default settings.
func NewGeminiProvider(opts GeminiOptions) *GeminiProvider {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	model := opts.Model
	if model == "" {
		model = geminiDefaultModel
	}
	defaults := geminiSettings{
		APIKey:   opts.APIKey,
		Endpoint: geminiDefaultEndpoint,
		Model:    model,
		Prompt:   geminiDefaultPrompt,
	}
	return &GeminiProvider{
		settings: defaults,
		defaults: defaults,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (g *GeminiProvider) Name() string { return "gemini" }

// Model returns the configured model identifier.
func (g *GeminiProvider) Model() string { return g.snapshot().Model }

// SettingsView returns the editable fields seeded with current values.
func (g *GeminiProvider) SettingsView() []Field {
	s := g.snapshot()
	return []Field{
		{Key: KeyAPIKey, Label: "API key", Kind: "password", Value: s.APIKey},
		{Key: KeyEndpoint, Label: "Endpoint", Kind: "url", Value: s.Endpoint, Placeholder: geminiDefaultEndpoint},
		{Key: KeyModel, Label: "Model", Kind: "text", Value: s.Model, Placeholder: geminiDefaultModel},
		{Key: KeyPrompt, Label: "Prompt", Kind: "text", Value: s.Prompt},
	}
}

// ApplySettings overwrites recognized keys with the given values.
func (g *GeminiProvider) ApplySettings(values map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := values[KeyAPIKey]; ok {
		g.settings.APIKey = v
	}
	if v, ok := values[KeyEndpoint]; ok {
		g.settings.Endpoint = v
	}
	if v, ok := values[KeyModel]; ok {
		g.settings.Model = v
	}
	if v, ok := values[KeyPrompt]; ok {
		g.settings.Prompt = v
	}
}

// LoadSettings replaces the settings with defaults overridden by the
// recognized persisted keys.
func (g *GeminiProvider) LoadSettings(persisted map[string]string) {
	g.mu.Lock()
	g.settings = g.defaults
	g.mu.Unlock()
	g.ApplySettings(persisted)
}

func (g *GeminiProvider) snapshot() geminiSettings {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings
}

// Transcribe sends the clip inline to generateContent and returns the
// trimmed transcript from the first candidate.
func (g *GeminiProvider) Transcribe(ctx context.Context, clip Clip) (string, error) {
	s := g.snapshot()
	switch {
	case s.APIKey == "":
		return "", configErrf(g.Name(), "missing setting %q", KeyAPIKey)
	case s.Endpoint == "":
		return "", configErrf(g.Name(), "missing setting %q", KeyEndpoint)
	case s.Model == "":
		return "", configErrf(g.Name(), "missing setting %q", KeyModel)
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: s.Prompt},
				{InlineData: &geminiInlineData{
					MIMEType: clip.mimeType(),
					Data:     base64.StdEncoding.EncodeToString(clip.Data),
				}},
			},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", transportErr(g.Name(), err, "marshal request")
	}

	// The credential goes in the query string, not a header. That is how
	// the generateContent API is keyed; the URL is never logged.
	reqURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimSuffix(s.Endpoint, "/"), s.Model, url.QueryEscape(s.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", transportErr(g.Name(), err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", transportErr(g.Name(), err, "gemini request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportErr(g.Name(), err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := string(respBody)
		var parsed geminiResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		return "", apiErrf(g.Name(), "API error (status %d %s): %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), detail)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", transportErr(g.Name(), err, "decode response")
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", shapeErrf(g.Name(), "no transcript in response: %s", truncate(string(respBody), 200))
	}
	raw := parsed.Candidates[0].Content.Parts[0].Text
	var text string
	if raw == nil || json.Unmarshal(raw, &text) != nil {
		return "", shapeErrf(g.Name(), "candidates[0].content.parts[0].text is not a string")
	}

	return strings.TrimSpace(text), nil
}

// truncate shortens s for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
