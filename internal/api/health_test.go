package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snarg/stt-gateway/internal/stt"
)

func TestHealth_OK(t *testing.T) {
	svc := newTestService(stt.NewWhisperProvider(stt.WhisperOptions{}))
	h := NewHealthHandler(svc, newMemStore(), "file", "test", time.Now())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || !resp.StoreOK {
		t.Errorf("resp = %+v, want ok", resp)
	}
	if resp.Version != "test" || resp.SettingsStore != "file" {
		t.Errorf("identity = %s/%s", resp.Version, resp.SettingsStore)
	}
}

func TestHealth_DegradedWhenStoreDown(t *testing.T) {
	store := newMemStore()
	store.pingErr = errors.New("connection refused")
	svc := newTestService(stt.NewWhisperProvider(stt.WhisperOptions{}))
	h := NewHealthHandler(svc, store, "postgres", "test", time.Now())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var resp healthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "degraded" || resp.StoreOK {
		t.Errorf("resp = %+v, want degraded", resp)
	}
}
