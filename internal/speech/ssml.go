package speech

import (
	"fmt"
	"math"
	"strings"
)

const ssmlContentType = "application/ssml+xml"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes the five reserved markup characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// RatePercent renders a rate multiplier as a signed prosody percentage.
// 1.5 becomes "+50%".
func RatePercent(rate float64) string {
	return signedPercent((rate - 1) * 100)
}

// PitchPercent renders a pitch multiplier as a signed prosody percentage.
// Pitch uses half the slope of rate: 1.5 becomes "+25%".
func PitchPercent(pitch float64) string {
	return signedPercent((pitch - 1) * 50)
}

// signedPercent rounds half up, so -12.5 renders as -12.
func signedPercent(v float64) string {
	return fmt.Sprintf("%+d%%", int(math.Floor(v+0.5)))
}

// BuildSSML renders the markup document for req. Text, voice and language
// are always escaped.
func BuildSSML(req SynthesisRequest) string {
	var b strings.Builder
	b.Grow(len(req.Text) + 160)
	fmt.Fprintf(&b, `<speak version="1.0" xml:lang="%s">`, EscapeXML(req.Language()))
	fmt.Fprintf(&b, `<voice name="%s">`, EscapeXML(req.Voice))
	fmt.Fprintf(&b, `<prosody rate="%s" pitch="%s">`, RatePercent(req.Rate), PitchPercent(req.Pitch))
	b.WriteString(EscapeXML(req.Text))
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}
