package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/stt-gateway/internal/stt"
)

// memStore is an in-memory settings.Store for handler tests.
type memStore struct {
	saved   map[string]map[string]string
	pingErr error
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]map[string]string{}}
}

func (m *memStore) Load(_ context.Context, provider string) (map[string]string, error) {
	if v, ok := m.saved[provider]; ok {
		return v, nil
	}
	return map[string]string{}, nil
}

func (m *memStore) Save(_ context.Context, provider string, values map[string]string) error {
	m.saved[provider] = values
	return nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }
func (m *memStore) Close()                     {}

func newTestService(providers ...stt.Provider) *stt.Service {
	return stt.NewService(stt.ServiceOptions{
		Registry: stt.NewRegistry(providers...),
		Log:      zerolog.Nop(),
	})
}

func newProvidersRouter(svc *stt.Service, store *memStore) chi.Router {
	r := chi.NewRouter()
	NewProvidersHandler(svc, store).Routes(r)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &reqBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProviders_List(t *testing.T) {
	gemini := stt.NewGeminiProvider(stt.GeminiOptions{APIKey: "set"})
	whisper := stt.NewWhisperProvider(stt.WhisperOptions{})
	r := newProvidersRouter(newTestService(gemini, whisper), newMemStore())

	w := doJSON(t, r, http.MethodGet, "/providers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var out []ProviderInfo
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("providers = %d, want 2", len(out))
	}
	if out[0].Name != "gemini" || !out[0].Ready {
		t.Errorf("gemini entry = %+v, want ready", out[0])
	}
	if out[1].Name != "whisper" || out[1].Ready {
		t.Errorf("whisper entry = %+v, want not ready (no credential)", out[1])
	}
}

func TestProviders_GetSettingsRedactsSecrets(t *testing.T) {
	gemini := stt.NewGeminiProvider(stt.GeminiOptions{APIKey: "super-secret"})
	r := newProvidersRouter(newTestService(gemini), newMemStore())

	w := doJSON(t, r, http.MethodGet, "/providers/gemini/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var out map[string]string
	json.Unmarshal(w.Body.Bytes(), &out)
	if out["api_key"] != redactedValue {
		t.Errorf("api_key = %q, want redacted", out["api_key"])
	}
	if out["model"] == "" || out["model"] == redactedValue {
		t.Errorf("model = %q, want the real value", out["model"])
	}
}

func TestProviders_PutSettingsAppliesAndPersists(t *testing.T) {
	gemini := stt.NewGeminiProvider(stt.GeminiOptions{})
	store := newMemStore()
	r := newProvidersRouter(newTestService(gemini), store)

	w := doJSON(t, r, http.MethodPut, "/providers/gemini/settings", map[string]string{
		"api_key":     "new-key",
		"model":       "gemini-pro",
		"unknown_key": "ignored",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	m := stt.SettingsMap(gemini.SettingsView())
	if m["api_key"] != "new-key" || m["model"] != "gemini-pro" {
		t.Errorf("applied settings = %v", m)
	}
	if _, ok := m["unknown_key"]; ok {
		t.Error("unknown key was applied")
	}

	persisted := store.saved["gemini"]
	if persisted == nil {
		t.Fatal("nothing persisted")
	}
	if persisted["api_key"] != "new-key" {
		t.Errorf("persisted api_key = %q, want the unredacted value", persisted["api_key"])
	}
}

func TestProviders_PutSettingsRedactedValueKeepsSecret(t *testing.T) {
	gemini := stt.NewGeminiProvider(stt.GeminiOptions{APIKey: "original"})
	store := newMemStore()
	r := newProvidersRouter(newTestService(gemini), store)

	// A settings form round-trips the redaction placeholder for untouched
	// secrets.
	w := doJSON(t, r, http.MethodPut, "/providers/gemini/settings", map[string]string{
		"api_key": redactedValue,
		"model":   "gemini-pro",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	m := stt.SettingsMap(gemini.SettingsView())
	if m["api_key"] != "original" {
		t.Errorf("api_key = %q, want original secret kept", m["api_key"])
	}
}

func TestProviders_SettingsView(t *testing.T) {
	whisper := stt.NewWhisperProvider(stt.WhisperOptions{APIKey: "secret"})
	r := newProvidersRouter(newTestService(whisper), newMemStore())

	w := doJSON(t, r, http.MethodGet, "/providers/whisper/settings/view", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var fields []stt.Field
	if err := json.Unmarshal(w.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) != 4 {
		t.Fatalf("fields = %d, want 4", len(fields))
	}
	for _, f := range fields {
		if f.Kind == "password" && f.Value != redactedValue {
			t.Errorf("secret field %q value = %q, want redacted", f.Key, f.Value)
		}
	}
}

func TestProviders_UnknownProvider404(t *testing.T) {
	r := newProvidersRouter(newTestService(stt.NewGeminiProvider(stt.GeminiOptions{})), newMemStore())

	for _, path := range []string{
		"/providers/nope/settings",
		"/providers/nope/settings/view",
	} {
		w := doJSON(t, r, http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}
