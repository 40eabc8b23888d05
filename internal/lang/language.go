// Package lang validates and normalizes language codes for recognition
// requests. The empty code means auto-detect.
package lang

import (
	"fmt"
	"strings"
)

// validLanguages contains ISO 639-1 base codes accepted by the recognition
// backends. Not exhaustive, but covers the commonly requested languages.
var validLanguages = map[string]bool{
	"ar": true, // Arabic
	"cs": true, // Czech
	"da": true, // Danish
	"de": true, // German
	"el": true, // Greek
	"en": true, // English
	"es": true, // Spanish
	"fi": true, // Finnish
	"fr": true, // French
	"he": true, // Hebrew
	"hi": true, // Hindi
	"hu": true, // Hungarian
	"id": true, // Indonesian
	"it": true, // Italian
	"ja": true, // Japanese
	"ko": true, // Korean
	"ms": true, // Malay
	"nl": true, // Dutch
	"no": true, // Norwegian
	"pl": true, // Polish
	"pt": true, // Portuguese
	"ro": true, // Romanian
	"ru": true, // Russian
	"sv": true, // Swedish
	"th": true, // Thai
	"tr": true, // Turkish
	"uk": true, // Ukrainian
	"vi": true, // Vietnamese
	"zh": true, // Chinese
}

// Normalize canonicalizes a language code: lowercase base, uppercase region,
// hyphen separator. "ko_kr", "KO-kr", "ko-kr" all become "ko-KR".
func Normalize(code string) string {
	code = strings.ToLower(strings.ReplaceAll(code, "_", "-"))
	base, region, ok := strings.Cut(code, "-")
	if !ok {
		return base
	}
	return base + "-" + strings.ToUpper(region)
}

// Validate checks the language code. The empty string (auto-detect) is valid.
// Accepts base codes ("ko") and regional locales ("ko-KR", "en-US").
func Validate(code string) error {
	if code == "" {
		return nil
	}
	if !validLanguages[BaseCode(code)] {
		return fmt.Errorf("%w: %q (use ISO 639-1 codes like 'en', 'ko', 'en-US')",
			ErrInvalid, code)
	}
	return nil
}

// BaseCode extracts the ISO 639-1 base code from a locale.
// "ko-KR" -> "ko", "en" -> "en", "" -> "".
func BaseCode(code string) string {
	base, _, _ := strings.Cut(Normalize(code), "-")
	return base
}

// Tag returns the canonical BCP-47 tag for a recognition request, or the
// empty string for auto-detect.
func Tag(code string) string {
	if code == "" {
		return ""
	}
	return Normalize(code)
}
