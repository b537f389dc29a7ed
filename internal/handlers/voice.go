package handlers

import (
	"net/http"

	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/speech"
)

// VoiceHandler serves the voice metadata routes.
type VoiceHandler struct {
	cfg *config.Config
}

func NewVoiceHandler(cfg *config.Config) *VoiceHandler {
	return &VoiceHandler{cfg: cfg}
}

func (h *VoiceHandler) Providers(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.EnableVoice {
		respondError(w, http.StatusBadRequest, "Voice features are not enabled")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"providers": []map[string]string{
			{"id": "deepgram", "name": "Deepgram", "model": h.cfg.DeepgramModel},
		},
		"default": h.cfg.DefaultSTTProvider,
	})
}

func (h *VoiceHandler) Languages(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.EnableVoice {
		respondError(w, http.StatusBadRequest, "Voice features are not enabled")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"languages": speech.SupportedLanguages()})
}
