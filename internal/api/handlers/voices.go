package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/speechrelay/internal/speech"
)

type VoiceHandler struct {
	catalog speech.Catalog
}

func NewVoiceHandler(defaultVoice string) *VoiceHandler {
	return &VoiceHandler{catalog: speech.NewCatalog(defaultVoice)}
}

// List returns the suggested voices, formats and prosody ranges.
func (h *VoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, h.catalog)
}
