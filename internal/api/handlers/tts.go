package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/speechrelay/internal/speech"
)

const maxRequestBody = 1 << 20

// Synthesizer is the relay as seen by the handler.
type Synthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, req speech.SynthesisRequest) (*speech.AudioResult, error)
}

type TTSHandler struct {
	relay     Synthesizer
	sanitizer speech.Sanitizer
}

func NewTTSHandler(relay Synthesizer, defaultVoice string) *TTSHandler {
	return &TTSHandler{
		relay:     relay,
		sanitizer: speech.Sanitizer{DefaultVoice: defaultVoice},
	}
}

// errorResponse is the JSON body of every failed synthesis.
type errorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Hint      string `json:"hint,omitempty"`
	Status    int    `json:"upstreamStatus,omitempty"`
}

// Speak converts text to MP3 audio.
func (h *TTSHandler) Speak(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tts handler panic", "panic", rec)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Internal server error",
				Details: fmt.Sprint(rec),
			})
		}
	}()

	if !h.relay.Configured() {
		writeSpeechError(w, &speech.Error{Kind: speech.KindConfigurationMissing})
		return
	}

	// Numbers stay as text so that out-of-range values are sanitized
	// instead of failing the decode.
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.UseNumber()

	var raw speech.RawRequest
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	req, err := h.sanitizer.Sanitize(raw)
	if err != nil {
		writeSpeechError(w, err)
		return
	}

	result, err := h.relay.Synthesize(r.Context(), req)
	if err != nil {
		writeSpeechError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Audio)))
	w.Header().Set("Cache-Control", "no-store")
	if result.SynthesisID != "" {
		w.Header().Set("X-Synthesis-Id", result.SynthesisID)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="tts-%s.mp3"`, result.SynthesisID))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(result.Audio)
}

// writeSpeechError maps a speech failure to its HTTP status and summary.
func writeSpeechError(w http.ResponseWriter, err error) {
	var e *speech.Error
	if !errors.As(err, &e) {
		slog.Error("unexpected synthesis failure", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}

	resp := errorResponse{
		Details:   e.Details,
		RequestID: e.RequestID,
		Hint:      e.Hint,
		Status:    e.Status,
	}
	if resp.Details == "" && e.Err != nil {
		resp.Details = e.Err.Error()
	} else if e.Err != nil {
		resp.Details += ": " + e.Err.Error()
	}

	status := http.StatusBadGateway
	switch e.Kind {
	case speech.KindEmptyText:
		status = http.StatusBadRequest
		resp.Error = "Empty text"
	case speech.KindConfigurationMissing:
		status = http.StatusInternalServerError
		resp.Error = "Missing Azure speech configuration"
		resp.Details = ""
		slog.Error("speech relay is not configured")
	case speech.KindTokenAcquisitionFailed:
		resp.Error = "Token error"
	case speech.KindSynthesisFailed:
		resp.Error = "TTS error"
	case speech.KindEmptyAudio:
		resp.Error = "Empty audio from TTS"
	default:
		status = http.StatusInternalServerError
		resp.Error = "Internal server error"
	}

	writeJSON(w, status, resp)
}
