package api

import (
	"net/http"
	"time"

	"github.com/snarg/stt-gateway/internal/settings"
	"github.com/snarg/stt-gateway/internal/stt"
)

// HealthHandler reports gateway liveness and settings-store health.
type HealthHandler struct {
	svc       *stt.Service
	store     settings.Store
	backend   string
	version   string
	startTime time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(svc *stt.Service, store settings.Store, backend, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		svc:       svc,
		store:     store,
		backend:   backend,
		version:   version,
		startTime: startTime,
	}
}

type healthResponse struct {
	Status        string    `json:"status"` // "ok" or "degraded"
	Version       string    `json:"version"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	SettingsStore string    `json:"settings_store"`
	StoreOK       bool      `json:"store_ok"`
	Stats         stt.Stats `json:"transcriptions"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		SettingsStore: h.backend,
		StoreOK:       true,
		Stats:         h.svc.Stats(),
	}

	if err := h.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.StoreOK = false
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, resp)
}
