package transcription

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedLanguages lists the locale hints offered to clients.
func SupportedLanguages() []Language {
	return []Language{
		{"en-US", "English (US)"},
		{"en-GB", "English (UK)"},
		{"es-ES", "Spanish (Spain)"},
		{"es-US", "Spanish (US)"},
		{"fr-FR", "French"},
		{"de-DE", "German"},
		{"it-IT", "Italian"},
		{"pt-BR", "Portuguese (Brazil)"},
		{"ja-JP", "Japanese"},
		{"ko-KR", "Korean"},
		{"zh-CN", "Chinese (Simplified)"},
		{"hi-IN", "Hindi"},
	}
}
