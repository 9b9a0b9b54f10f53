package stt

import "context"

// Settings keys shared by all providers. Unknown keys in persisted or
// submitted settings are ignored.
const (
	KeyAPIKey   = "api_key"
	KeyEndpoint = "endpoint"
	KeyModel    = "model"
	KeyPrompt   = "prompt"
	KeyLanguage = "language"
)

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Name() string  // "gemini", "whisper"
	Model() string // model identifier for responses/logs

	// SettingsView returns the declarative description of this provider's
	// editable settings, seeded with current values. Pure, no side effects.
	SettingsView() []Field

	// ApplySettings overwrites recognized settings keys with the given
	// values. Keys not present in the map keep their current value;
	// unrecognized keys are ignored. In-memory only, nothing is persisted.
	ApplySettings(values map[string]string)

	// LoadSettings replaces the settings wholesale: defaults first, then
	// recognized persisted keys override. An empty map yields exactly the
	// provider's defaults.
	LoadSettings(persisted map[string]string)

	// Transcribe sends one audio clip and returns the transcript. The clip
	// is not retained after the call. Settings are snapshotted once at
	// entry, so a concurrent ApplySettings cannot affect an in-flight call.
	Transcribe(ctx context.Context, clip Clip) (string, error)
}

// Clip is one audio recording handed in by the caller, assumed WAV.
type Clip struct {
	Data []byte
	MIME string // defaults to "audio/wav" when empty
}

func (c Clip) mimeType() string {
	if c.MIME == "" {
		return "audio/wav"
	}
	return c.MIME
}

// Field describes one editable settings field for the UI layer.
type Field struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Kind        string `json:"kind"` // "text", "password", "url"
	Value       string `json:"value"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Result is a completed transcription.
type Result struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Text       string `json:"text"`
	DurationMs int    `json:"duration_ms"`
}

// SettingsMap flattens a settings view into a key/value map.
func SettingsMap(fields []Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

// Ready reports whether the provider's required settings (credential,
// endpoint, model) are all non-empty.
func Ready(p Provider) bool {
	m := SettingsMap(p.SettingsView())
	return m[KeyAPIKey] != "" && m[KeyEndpoint] != "" && m[KeyModel] != ""
}

// Registry holds the configured providers in registration order.
type Registry struct {
	order  []string
	byName map[string]Provider
}

// NewRegistry creates a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.byName[p.Name()]; dup {
			continue
		}
		r.order = append(r.order, p.Name())
		r.byName[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns the providers in registration order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
