package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/snarg/stt-gateway/internal/settings"
	"github.com/snarg/stt-gateway/internal/stt"
)

// redactedValue stands in for secret settings in responses. Clients that
// echo it back on PUT leave the stored secret untouched.
const redactedValue = "********"

// ProvidersHandler exposes the provider list and the settings lifecycle
// (view, load, apply + persist).
type ProvidersHandler struct {
	svc   *stt.Service
	store settings.Store
}

// NewProvidersHandler creates a providers handler.
func NewProvidersHandler(svc *stt.Service, store settings.Store) *ProvidersHandler {
	return &ProvidersHandler{svc: svc, store: store}
}

// Routes registers the provider routes.
func (h *ProvidersHandler) Routes(r chi.Router) {
	r.Get("/providers", h.List)
	r.Get("/providers/{name}/settings", h.GetSettings)
	r.Put("/providers/{name}/settings", h.PutSettings)
	r.Get("/providers/{name}/settings/view", h.GetSettingsView)
}

// ProviderInfo is one entry in the provider listing.
type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Ready bool   `json:"ready"` // required settings all present
}

// List handles GET /api/v1/providers.
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	providers := h.svc.Providers()
	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderInfo{
			Name:  p.Name(),
			Model: p.Model(),
			Ready: stt.Ready(p),
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

// GetSettings handles GET /api/v1/providers/{name}/settings.
// Secret values are redacted.
func (h *ProvidersHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, redactMap(p.SettingsView()))
}

// PutSettings handles PUT /api/v1/providers/{name}/settings.
// Body: {"key": "value", ...}. Recognized keys are applied in memory and
// the merged result is persisted; unknown keys are ignored. Values equal
// to the redaction placeholder are dropped so a round-tripped settings
// form cannot clobber a stored secret.
func (h *ProvidersHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}

	values := map[string]string{}
	if err := DecodeJSON(r, &values); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	for k, v := range values {
		if v == redactedValue {
			delete(values, k)
		}
	}

	p.ApplySettings(values)

	merged := stt.SettingsMap(p.SettingsView())
	if err := h.store.Save(r.Context(), p.Name(), merged); err != nil {
		WriteError(w, http.StatusInternalServerError, "persist settings: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, redactMap(p.SettingsView()))
}

// GetSettingsView handles GET /api/v1/providers/{name}/settings/view.
// Returns the declarative field list the settings form is built from.
func (h *ProvidersHandler) GetSettingsView(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}

	fields := p.SettingsView()
	for i := range fields {
		if fields[i].Kind == "password" && fields[i].Value != "" {
			fields[i].Value = redactedValue
		}
	}
	WriteJSON(w, http.StatusOK, fields)
}

func (h *ProvidersHandler) provider(w http.ResponseWriter, r *http.Request) (stt.Provider, bool) {
	name := chi.URLParam(r, "name")
	p, ok := h.svc.Provider(name)
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown provider \""+name+"\"")
		return nil, false
	}
	return p, true
}

func redactMap(fields []stt.Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		v := f.Value
		if f.Kind == "password" && v != "" {
			v = redactedValue
		}
		m[f.Key] = v
	}
	return m
}
