package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/stt-gateway/internal/stt"
)

// TranscribeHandler accepts audio clips from the chat host and returns
// the transcript from the selected provider.
type TranscribeHandler struct {
	svc       *stt.Service
	maxUpload int64
	log       zerolog.Logger
}

// NewTranscribeHandler creates a transcribe handler.
func NewTranscribeHandler(svc *stt.Service, maxUpload int64, log zerolog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		svc:       svc,
		maxUpload: maxUpload,
		log:       log.With().Str("handler", "transcribe").Logger(),
	}
}

// Routes registers the transcribe endpoint.
func (h *TranscribeHandler) Routes(r chi.Router) {
	r.Post("/transcribe", h.Transcribe)
	r.Get("/transcribe/stats", h.Stats)
}

// Transcribe handles POST /api/v1/transcribe.
// Multipart form: "audio" file field (WAV), "provider" value field.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	providerName := r.FormValue("provider")
	if providerName == "" {
		WriteError(w, http.StatusBadRequest, "missing form field \"provider\"")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing form file \"audio\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "empty audio file")
		return
	}

	clip := stt.Clip{Data: data, MIME: header.Header.Get("Content-Type")}

	result, err := h.svc.Transcribe(r.Context(), providerName, clip)
	if err != nil {
		h.writeTranscribeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/v1/transcribe/stats.
func (h *TranscribeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.svc.Stats())
}

// writeTranscribeError maps the provider error taxonomy to HTTP status
// codes. The normalized message always reaches the caller.
func (h *TranscribeHandler) writeTranscribeError(w http.ResponseWriter, err error) {
	if errors.Is(err, stt.ErrUnknownProvider) {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	var pe *stt.Error
	if !errors.As(err, &pe) {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusBadGateway
	if pe.Kind == stt.KindConfig {
		// Provider not configured yet; the request itself was fine.
		status = http.StatusUnprocessableEntity
	}
	WriteErrorKind(w, status, pe.Error(), pe.Kind.String())
}
