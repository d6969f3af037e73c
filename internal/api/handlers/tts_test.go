package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/speechrelay/internal/speech"
)

type fakeSynth struct {
	configured bool
	result     *speech.AudioResult
	err        error
	panicWith  any

	calls int
	got   speech.SynthesisRequest
}

func (f *fakeSynth) Configured() bool { return f.configured }

func (f *fakeSynth) Synthesize(_ context.Context, req speech.SynthesisRequest) (*speech.AudioResult, error) {
	f.calls++
	f.got = req
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.result, f.err
}

func speak(t *testing.T, h *TTSHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Speak(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSpeakSuccess(t *testing.T) {
	audio := []byte(strings.Repeat("a", 1000))
	synth := &fakeSynth{
		configured: true,
		result: &speech.AudioResult{
			Audio:       audio,
			ContentType: speech.AudioContentType,
			SynthesisID: "abc",
		},
	}
	h := NewTTSHandler(synth, "")

	rec := speak(t, h, `{"text":"Hello","voice":"v1","rate":1,"pitch":1,"format":"<invalid>"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Equal(t, "abc", rec.Header().Get("X-Synthesis-Id"))
	assert.Equal(t, `inline; filename="tts-abc.mp3"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, audio, rec.Body.Bytes())

	assert.Equal(t, speech.SynthesisRequest{
		Text:   "Hello",
		Voice:  "v1",
		Rate:   1,
		Pitch:  1,
		Format: speech.DefaultFormat,
	}, synth.got)
}

func TestSpeakUsesConfiguredDefaultVoice(t *testing.T) {
	synth := &fakeSynth{configured: true, result: &speech.AudioResult{Audio: []byte{1}, ContentType: speech.AudioContentType}}
	h := NewTTSHandler(synth, "en-GB-SoniaNeural")

	rec := speak(t, h, `{"text":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en-GB-SoniaNeural", synth.got.Voice)
}

func TestSpeakEmptyText(t *testing.T) {
	for _, body := range []string{`{"text":"   "}`, `{}`, ``, `{"text":null,"voice":"v1"}`} {
		synth := &fakeSynth{configured: true}
		rec := speak(t, NewTTSHandler(synth, ""), body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Empty text", decodeError(t, rec).Error)
		assert.Zero(t, synth.calls, "no upstream call for %q", body)
	}
}

func TestSpeakInvalidJSON(t *testing.T) {
	synth := &fakeSynth{configured: true}
	rec := speak(t, NewTTSHandler(synth, ""), `{"text":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeError(t, rec).Error)
	assert.Zero(t, synth.calls)
}

func TestSpeakOutOfRangeNumbersUseDefaults(t *testing.T) {
	synth := &fakeSynth{configured: true, result: &speech.AudioResult{Audio: []byte{1}, ContentType: speech.AudioContentType}}
	rec := speak(t, NewTTSHandler(synth, ""), `{"text":"hi","rate":1e400,"pitch":-1e999}`)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, synth.calls)
	assert.Equal(t, 1.0, synth.got.Rate)
	assert.Equal(t, 1.0, synth.got.Pitch)
	assert.Equal(t, "hi", synth.got.Text)
}

func TestSpeakNotConfigured(t *testing.T) {
	synth := &fakeSynth{configured: false}
	rec := speak(t, NewTTSHandler(synth, ""), `{"text":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Missing Azure speech configuration", decodeError(t, rec).Error)
	assert.Zero(t, synth.calls)
}

func TestSpeakMapsRelayErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		summary string
		check   func(t *testing.T, resp errorResponse)
	}{
		{
			name:    "token",
			err:     &speech.Error{Kind: speech.KindTokenAcquisitionFailed, Status: 401, Details: "Access denied"},
			status:  http.StatusBadGateway,
			summary: "Token error",
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "Access denied", resp.Details)
				assert.Equal(t, 401, resp.Status)
			},
		},
		{
			name:    "synthesis bad request",
			err:     &speech.Error{Kind: speech.KindSynthesisFailed, Status: 400, Details: "bad voice", RequestID: "r-1", Hint: "check voice"},
			status:  http.StatusBadGateway,
			summary: "TTS error",
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "bad voice", resp.Details)
				assert.Equal(t, "r-1", resp.RequestID)
				assert.Equal(t, "check voice", resp.Hint)
			},
		},
		{
			name:    "transport",
			err:     &speech.Error{Kind: speech.KindSynthesisFailed, Details: "synthesis request", Err: errors.New("connection reset")},
			status:  http.StatusBadGateway,
			summary: "TTS error",
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "synthesis request: connection reset", resp.Details)
			},
		},
		{
			name:    "empty audio",
			err:     &speech.Error{Kind: speech.KindEmptyAudio, Status: 200},
			status:  http.StatusBadGateway,
			summary: "Empty audio from TTS",
		},
		{
			name:    "internal kind",
			err:     &speech.Error{Kind: speech.KindInternal, Err: errors.New("bad url")},
			status:  http.StatusInternalServerError,
			summary: "Internal server error",
		},
		{
			name:    "untyped",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			summary: "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := &fakeSynth{configured: true, err: tt.err}
			rec := speak(t, NewTTSHandler(synth, ""), `{"text":"hi"}`)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.summary, resp.Error)
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestSpeakRecoversFromPanic(t *testing.T) {
	synth := &fakeSynth{configured: true, panicWith: "nil map"}
	rec := speak(t, NewTTSHandler(synth, ""), `{"text":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeError(t, rec).Error)
}

func TestVoicesList(t *testing.T) {
	rec := httptest.NewRecorder()
	NewVoiceHandler("en-GB-RyanNeural").List(rec, httptest.NewRequest(http.MethodGet, "/api/voices", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var catalog speech.Catalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Equal(t, "en-GB-RyanNeural", catalog.DefaultVoice)
	assert.Len(t, catalog.Voices, 7)
	assert.Equal(t, speech.DefaultFormat, catalog.DefaultFormat)
	assert.Equal(t, speech.MinRate, catalog.Rate.Min)
	assert.Equal(t, speech.MaxPitch, catalog.Pitch.Max)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		configured bool
		status     int
	}{
		{"ready", fakePinger{}, true, http.StatusOK},
		{"no redis", nil, true, http.StatusOK},
		{"redis down", fakePinger{err: errors.New("refused")}, true, http.StatusServiceUnavailable},
		{"unconfigured", nil, false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pinger, &fakeSynth{configured: tt.configured})
			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
