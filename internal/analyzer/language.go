// internal/analyzer/language.go
package analyzer

import (
	"strings"
	"unicode"

	"banking-assistant/internal/models"
)

// azerbaijaniLetters are Latin letters that do not occur in English text.
const azerbaijaniLetters = "əğışçöüƏĞŞÇÖÜİ"

// DetectLanguage votes per character: Cyrillic letters count for Russian,
// Azerbaijani-specific Latin letters for Azerbaijani. The larger vote wins and
// ties, including no votes at all, go to the primary language.
func DetectLanguage(text string) models.Language {
	var ru, az int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			ru++
		case strings.ContainsRune(azerbaijaniLetters, r):
			az++
		}
	}

	switch {
	case ru > az:
		return models.LanguageRussian
	case az > ru:
		return models.LanguageAzerbaijani
	default:
		return models.SupportedLanguages[0]
	}
}

// fold lowercases text and maps dotless ı and dotted İ onto a plain i.
func fold(text string) string {
	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, "\u0307", "")
	return strings.ReplaceAll(s, "ı", "i")
}
