package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Bibliographic ISO 639-2 codes that the canonical tables do not fold into
// their terminology (and ISO 639-1) equivalents.
var legacyCodes = map[string]string{
	"fre": "fr",
	"ger": "de",
	"dut": "nl",
	"chi": "zh",
	"cze": "cs",
	"gre": "el",
	"ice": "is",
	"rum": "ro",
	"slo": "sk",
}

// Normalize converts a language identifier (ISO 639-1 or 639-2 code, or a
// BCP 47 tag such as "pt-BR") to the lowercase two-letter form the speech
// engine expects. Unrecognized two-letter codes pass through; anything else
// unrecognized returns the empty string.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if mapped, ok := legacyCodes[code]; ok {
		return mapped
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		if len(code) == 2 {
			return code
		}
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		if len(code) == 2 {
			return code
		}
		return ""
	}
	normalized := base.String()
	// Base.String falls back to the three-letter form for languages without
	// an ISO 639-1 code; the engine only understands two-letter codes.
	if len(normalized) != 2 {
		if len(code) == 2 {
			return code
		}
		return ""
	}
	return normalized
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized
// input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	normalized := Normalize(trimmed)
	if normalized == "" {
		return strings.ToUpper(trimmed)
	}
	tag, err := xlanguage.Parse(normalized)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}
