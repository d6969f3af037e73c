package speech

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

const (
	DefaultVoice    = "en-US-JennyNeural"
	DefaultFormat   = "audio-16khz-128kbitrate-mono-mp3"
	DefaultLanguage = "en-US"

	MinRate  = 0.5
	MaxRate  = 2.0
	MinPitch = 0.5
	MaxPitch = 2.0
)

// Formats is the allow-list of output profiles forwarded in the
// X-Microsoft-OutputFormat header. Every entry is MP3.
var Formats = []string{
	"audio-16khz-128kbitrate-mono-mp3",
	"audio-16khz-64kbitrate-mono-mp3",
	"audio-16khz-32kbitrate-mono-mp3",
	"audio-24khz-48kbitrate-mono-mp3",
	"audio-24khz-96kbitrate-mono-mp3",
	"audio-24khz-160kbitrate-mono-mp3",
	"audio-48khz-96kbitrate-mono-mp3",
	"audio-48khz-192kbitrate-mono-mp3",
}

// RawRequest is the request body as sent by the client. Fields are left
// loosely typed so that strings, numbers and nulls all decode.
type RawRequest struct {
	Text   any `json:"text"`
	Voice  any `json:"voice"`
	Rate   any `json:"rate"`
	Pitch  any `json:"pitch"`
	Format any `json:"format"`
}

// SynthesisRequest is a fully populated, validated request.
type SynthesisRequest struct {
	Text   string
	Voice  string
	Rate   float64
	Pitch  float64
	Format string
}

// Sanitizer normalizes raw requests. The zero value uses DefaultVoice.
type Sanitizer struct {
	DefaultVoice string
}

// Sanitize normalizes raw with the package defaults.
func Sanitize(raw RawRequest) (SynthesisRequest, error) {
	return Sanitizer{}.Sanitize(raw)
}

// Sanitize trims and defaults every field of raw. The only failure is
// ErrEmptyText.
func (s Sanitizer) Sanitize(raw RawRequest) (SynthesisRequest, error) {
	text := strings.TrimSpace(toString(raw.Text))
	if text == "" {
		return SynthesisRequest{}, &Error{Kind: KindEmptyText, Details: "text is required"}
	}

	fallbackVoice := strings.TrimSpace(s.DefaultVoice)
	if fallbackVoice == "" {
		fallbackVoice = DefaultVoice
	}
	voice := strings.TrimSpace(toString(raw.Voice))
	if voice == "" {
		voice = fallbackVoice
	}

	return SynthesisRequest{
		Text:   text,
		Voice:  voice,
		Rate:   clamp(toNumber(raw.Rate, 1), MinRate, MaxRate),
		Pitch:  clamp(toNumber(raw.Pitch, 1), MinPitch, MaxPitch),
		Format: allowedFormat(toString(raw.Format)),
	}, nil
}

// Language returns the locale prefix of the voice name, e.g. "en-GB" for
// "en-GB-SoniaNeural".
func (r SynthesisRequest) Language() string {
	parts := strings.SplitN(r.Voice, "-", 3)
	if len(parts) < 3 || !isAlpha(parts[0], 2, 3) || !isAlphaNum(parts[1], 2, 4) {
		return DefaultLanguage
	}
	return parts[0] + "-" + parts[1]
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func toNumber(v any, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return fallback
	}
	// json.Number values outside float64 range fail to parse here.
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func allowedFormat(format string) string {
	for _, f := range Formats {
		if format == f {
			return f
		}
	}
	return DefaultFormat
}

func isAlpha(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func isAlphaNum(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
