package bots

import "sort"

// SupportedLanguages maps provider speech language codes to display names.
var SupportedLanguages = map[string]string{
	"en-US":  "English (US)",
	"en-GB":  "English (UK)",
	"en-AU":  "English (Australia)",
	"en-IN":  "English (India)",
	"hi-IN":  "Hindi (India)",
	"es-ES":  "Spanish (Spain)",
	"es-US":  "Spanish (US)",
	"es-MX":  "Spanish (Mexico)",
	"fr-FR":  "French (France)",
	"fr-CA":  "French (Canada)",
	"de-DE":  "German (Germany)",
	"pt-BR":  "Portuguese (Brazil)",
	"pt-PT":  "Portuguese (Portugal)",
	"it-IT":  "Italian (Italy)",
	"ja-JP":  "Japanese (Japan)",
	"ko-KR":  "Korean (South Korea)",
	"cmn-CN": "Chinese Mandarin",
	"nl-NL":  "Dutch (Netherlands)",
	"da-DK":  "Danish (Denmark)",
	"nb-NO":  "Norwegian (Norway)",
	"sv-SE":  "Swedish (Sweden)",
	"pl-PL":  "Polish (Poland)",
	"ru-RU":  "Russian (Russia)",
	"tr-TR":  "Turkish (Turkey)",
	"ro-RO":  "Romanian (Romania)",
	"is-IS":  "Icelandic (Iceland)",
	"cy-GB":  "Welsh (Wales)",
	"arb":    "Arabic",
}

var VoiceTypes = map[string]string{
	"WOMAN": "Female Voice",
	"MAN":   "Male Voice",
}

var both = []string{"WOMAN", "MAN"}
var womanOnly = []string{"WOMAN"}

// LanguageVoices lists the voices the provider offers per language.
var LanguageVoices = map[string][]string{
	"en-US":  both,
	"en-GB":  both,
	"en-AU":  both,
	"en-IN":  womanOnly,
	"hi-IN":  womanOnly,
	"es-ES":  both,
	"es-US":  both,
	"es-MX":  womanOnly,
	"fr-FR":  both,
	"fr-CA":  womanOnly,
	"de-DE":  both,
	"pt-BR":  both,
	"pt-PT":  both,
	"it-IT":  both,
	"ja-JP":  both,
	"ko-KR":  womanOnly,
	"cmn-CN": womanOnly,
	"nl-NL":  both,
	"da-DK":  both,
	"nb-NO":  womanOnly,
	"sv-SE":  womanOnly,
	"pl-PL":  both,
	"ru-RU":  both,
	"tr-TR":  womanOnly,
	"ro-RO":  womanOnly,
	"is-IS":  both,
	"cy-GB":  womanOnly,
	"arb":    womanOnly,
}

func voiceAvailable(language, voice string) bool {
	for _, v := range LanguageVoices[language] {
		if v == voice {
			return true
		}
	}
	return false
}

// LanguageCodes returns the supported codes in sorted order.
func LanguageCodes() []string {
	out := make([]string, 0, len(SupportedLanguages))
	for k := range SupportedLanguages {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
