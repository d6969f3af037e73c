package speech

// Voice is a suggested provider voice. Any other provider voice name is
// accepted by the relay too.
type Voice struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Locale string `json:"locale"`
}

type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Catalog describes what the relay accepts, for populating client pickers.
type Catalog struct {
	Voices        []Voice  `json:"voices"`
	DefaultVoice  string   `json:"defaultVoice"`
	Formats       []string `json:"formats"`
	DefaultFormat string   `json:"defaultFormat"`
	Rate          Range    `json:"rate"`
	Pitch         Range    `json:"pitch"`
}

var suggestedVoices = []Voice{
	{Name: "en-US-JennyNeural", Label: "English (US) • Jenny", Locale: "en-US"},
	{Name: "en-US-GuyNeural", Label: "English (US) • Guy", Locale: "en-US"},
	{Name: "en-GB-SoniaNeural", Label: "English (UK) • Sonia", Locale: "en-GB"},
	{Name: "en-GB-RyanNeural", Label: "English (UK) • Ryan", Locale: "en-GB"},
	{Name: "hi-IN-SwaraNeural", Label: "Hindi (India) • Swara", Locale: "hi-IN"},
	{Name: "bn-BD-NabanitaNeural", Label: "Bangla (Bangladesh) • Nabanita", Locale: "bn-BD"},
	{Name: "bn-BD-PradeepNeural", Label: "Bangla (Bangladesh) • Pradeep", Locale: "bn-BD"},
}

// NewCatalog returns the catalog with defaultVoice as the preselected voice.
// An empty defaultVoice means DefaultVoice.
func NewCatalog(defaultVoice string) Catalog {
	if defaultVoice == "" {
		defaultVoice = DefaultVoice
	}
	voices := make([]Voice, len(suggestedVoices))
	copy(voices, suggestedVoices)
	formats := make([]string, len(Formats))
	copy(formats, Formats)

	return Catalog{
		Voices:        voices,
		DefaultVoice:  defaultVoice,
		Formats:       formats,
		DefaultFormat: DefaultFormat,
		Rate:          Range{Min: MinRate, Max: MaxRate, Default: 1},
		Pitch:         Range{Min: MinPitch, Max: MaxPitch, Default: 1},
	}
}
