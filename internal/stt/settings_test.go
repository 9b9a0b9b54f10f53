package stt

import "testing"

func TestGemini_LoadSettingsEmptyYieldsDefaults(t *testing.T) {
	g := NewGeminiProvider(GeminiOptions{})
	g.LoadSettings(map[string]string{})

	m := SettingsMap(g.SettingsView())
	if m[KeyAPIKey] != "" {
		t.Errorf("api_key = %q, want empty default", m[KeyAPIKey])
	}
	if m[KeyEndpoint] != geminiDefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", m[KeyEndpoint], geminiDefaultEndpoint)
	}
	if m[KeyModel] != geminiDefaultModel {
		t.Errorf("model = %q, want %q", m[KeyModel], geminiDefaultModel)
	}
	if m[KeyPrompt] != geminiDefaultPrompt {
		t.Errorf("prompt = %q, want the default prompt", m[KeyPrompt])
	}
}

func TestWhisper_LoadSettingsEmptyYieldsDefaults(t *testing.T) {
	w := NewWhisperProvider(WhisperOptions{})
	w.LoadSettings(map[string]string{})

	m := SettingsMap(w.SettingsView())
	if m[KeyEndpoint] != whisperDefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", m[KeyEndpoint], whisperDefaultEndpoint)
	}
	if m[KeyModel] != whisperDefaultModel {
		t.Errorf("model = %q, want %q", m[KeyModel], whisperDefaultModel)
	}
	if m[KeyLanguage] != "" {
		t.Errorf("language = %q, want empty default", m[KeyLanguage])
	}
}

func TestLoadSettings_UnknownKeyIgnored(t *testing.T) {
	g := NewGeminiProvider(GeminiOptions{})
	g.LoadSettings(map[string]string{
		"totally_unknown": "whatever",
		KeyModel:          "gemini-custom",
	})

	m := SettingsMap(g.SettingsView())
	if _, ok := m["totally_unknown"]; ok {
		t.Error("unknown key leaked into the settings view")
	}
	if m[KeyModel] != "gemini-custom" {
		t.Errorf("model = %q, want gemini-custom", m[KeyModel])
	}
}

func TestLoadSettings_ReplacesWholesale(t *testing.T) {
	w := NewWhisperProvider(WhisperOptions{})
	w.ApplySettings(map[string]string{KeyLanguage: "fr", KeyAPIKey: "old"})

	// A reload without those keys must fall back to defaults, not keep
	// the previously applied values.
	w.LoadSettings(map[string]string{KeyAPIKey: "new"})

	m := SettingsMap(w.SettingsView())
	if m[KeyLanguage] != "" {
		t.Errorf("language = %q, want default empty after reload", m[KeyLanguage])
	}
	if m[KeyAPIKey] != "new" {
		t.Errorf("api_key = %q, want new", m[KeyAPIKey])
	}
}

func TestApplySettings_PartialUpdateKeepsOtherFields(t *testing.T) {
	g := NewGeminiProvider(GeminiOptions{})
	g.ApplySettings(map[string]string{KeyAPIKey: "k1"})
	g.ApplySettings(map[string]string{KeyModel: "m2"})

	m := SettingsMap(g.SettingsView())
	if m[KeyAPIKey] != "k1" {
		t.Errorf("api_key = %q, want k1", m[KeyAPIKey])
	}
	if m[KeyModel] != "m2" {
		t.Errorf("model = %q, want m2", m[KeyModel])
	}
}

func TestDefaultsFromOptions(t *testing.T) {
	g := NewGeminiProvider(GeminiOptions{APIKey: "env-key", Model: "env-model"})
	g.LoadSettings(map[string]string{})

	m := SettingsMap(g.SettingsView())
	if m[KeyAPIKey] != "env-key" {
		t.Errorf("api_key = %q, want env-key", m[KeyAPIKey])
	}
	if m[KeyModel] != "env-model" {
		t.Errorf("model = %q, want env-model", m[KeyModel])
	}
}

func TestReady(t *testing.T) {
	w := NewWhisperProvider(WhisperOptions{})
	if Ready(w) {
		t.Error("Ready = true without a credential")
	}
	w.ApplySettings(map[string]string{KeyAPIKey: "k"})
	if !Ready(w) {
		t.Error("Ready = false with credential, endpoint, and model set")
	}
}

func TestRegistry(t *testing.T) {
	g := NewGeminiProvider(GeminiOptions{})
	w := NewWhisperProvider(WhisperOptions{})
	r := NewRegistry(g, w)

	if p, ok := r.Get("gemini"); !ok || p != Provider(g) {
		t.Error("Get(gemini) did not return the gemini provider")
	}
	if _, ok := r.Get("nope"); ok {
		t.Error("Get(nope) = ok, want missing")
	}

	all := r.All()
	if len(all) != 2 || all[0].Name() != "gemini" || all[1].Name() != "whisper" {
		t.Errorf("All() order = %v, want [gemini whisper]", names(all))
	}
}

func names(ps []Provider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}
