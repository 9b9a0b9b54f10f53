package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

const (
	whisperDefaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	whisperDefaultModel    = "whisper-1"

	// Fixed upload filename; the remote side only uses the extension to
	// sniff the container format.
	whisperUploadFilename = "record.wav"
)

// WhisperProvider calls any OpenAI-compatible /audio/transcriptions
// endpoint with a multipart upload. Implements the Provider interface.
type WhisperProvider struct {
	mu       sync.RWMutex
	settings whisperSettings
	defaults whisperSettings
	client   *http.Client
}

type whisperSettings struct {
	APIKey   string
	Endpoint string
	Model    string
	Language string
}

// WhisperOptions configures a WhisperProvider. Zero values fall back to
// the built-in defaults.
type WhisperOptions struct {
	APIKey   string // default credential when none is persisted
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// whisperResponse covers both the success and error shapes. Text is kept
// raw so that `"text":""` (a valid empty transcript) can be told apart
// from a missing field.
type whisperResponse struct {
	Text  json.RawMessage `json:"text"`
	Error *apiErrorBody   `json:"error"`
}

// NewWhisperProvider creates a Whisper-compatible provider with default
// settings.
func NewWhisperProvider(opts WhisperOptions) *WhisperProvider {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = whisperDefaultEndpoint
	}
	model := opts.Model
	if model == "" {
		model = whisperDefaultModel
	}
	defaults := whisperSettings{
		APIKey:   opts.APIKey,
		Endpoint: endpoint,
		Model:    model,
	}
	return &WhisperProvider{
		settings: defaults,
		defaults: defaults,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (w *WhisperProvider) Name() string { return "whisper" }

// Model returns the configured model identifier.
func (w *WhisperProvider) Model() string { return w.snapshot().Model }

// SettingsView returns the editable fields seeded with current values.
func (w *WhisperProvider) SettingsView() []Field {
	s := w.snapshot()
	return []Field{
		{Key: KeyAPIKey, Label: "API key", Kind: "password", Value: s.APIKey},
		{Key: KeyEndpoint, Label: "Endpoint", Kind: "url", Value: s.Endpoint, Placeholder: whisperDefaultEndpoint},
		{Key: KeyModel, Label: "Model", Kind: "text", Value: s.Model, Placeholder: whisperDefaultModel},
		{Key: KeyLanguage, Label: "Language", Kind: "text", Value: s.Language, Placeholder: "auto-detect when empty"},
	}
}

// ApplySettings overwrites recognized keys with the given values.
func (w *WhisperProvider) ApplySettings(values map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, ok := values[KeyAPIKey]; ok {
		w.settings.APIKey = v
	}
	if v, ok := values[KeyEndpoint]; ok {
		w.settings.Endpoint = v
	}
	if v, ok := values[KeyModel]; ok {
		w.settings.Model = v
	}
	if v, ok := values[KeyLanguage]; ok {
		w.settings.Language = v
	}
}

// LoadSettings replaces the settings with defaults overridden by the
// recognized persisted keys.
func (w *WhisperProvider) LoadSettings(persisted map[string]string) {
	w.mu.Lock()
	w.settings = w.defaults
	w.mu.Unlock()
	w.ApplySettings(persisted)
}

func (w *WhisperProvider) snapshot() whisperSettings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// Transcribe uploads the clip as multipart form data and returns the
// transcript verbatim. An empty transcript is a valid success.
func (w *WhisperProvider) Transcribe(ctx context.Context, clip Clip) (string, error) {
	s := w.snapshot()
	switch {
	case s.APIKey == "":
		return "", configErrf(w.Name(), "missing setting %q", KeyAPIKey)
	case s.Endpoint == "":
		return "", configErrf(w.Name(), "missing setting %q", KeyEndpoint)
	case s.Model == "":
		return "", configErrf(w.Name(), "missing setting %q", KeyModel)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", whisperUploadFilename)
	if err != nil {
		return "", transportErr(w.Name(), err, "create form file")
	}
	if _, err := part.Write(clip.Data); err != nil {
		return "", transportErr(w.Name(), err, "write audio data")
	}

	mw.WriteField("model", s.Model)
	if s.Language != "" {
		mw.WriteField("language", s.Language)
	}
	mw.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, &buf)
	if err != nil {
		return "", transportErr(w.Name(), err, "create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", transportErr(w.Name(), err, "whisper request")
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := string(body)
		if readErr != nil || detail == "" {
			detail = "(no response body)"
		}
		return "", apiErrf(w.Name(), "API error (status %d %s): %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), detail)
	}
	if readErr != nil {
		return "", transportErr(w.Name(), readErr, "read response")
	}

	var parsed whisperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some servers return a bare JSON string describing the failure.
		var msg string
		if json.Unmarshal(body, &msg) == nil {
			return "", apiErrf(w.Name(), "API error: %s", msg)
		}
		return "", transportErr(w.Name(), err, "decode response")
	}

	if parsed.Text != nil {
		var text string
		if err := json.Unmarshal(parsed.Text, &text); err != nil {
			return "", shapeErrf(w.Name(), "response field \"text\" is not a string")
		}
		// Verbatim, untrimmed: empty text is a valid result for silence.
		return text, nil
	}

	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", apiErrf(w.Name(), "API error: %s", parsed.Error.Message)
	}
	return "", shapeErrf(w.Name(), "unexpected response body: %s", truncate(string(body), 200))
}
