// internal/generation/fallback.go
package generation

import (
	"fmt"

	"banking-assistant/internal/models"
)

// FallbackConfidence is reported with every static fallback answer.
const FallbackConfidence = 0.05

var fallbacks = map[models.Language]string{
	models.LanguageEnglish:     "Sorry, I cannot answer right now. Please try again later or call us at %s.",
	models.LanguageAzerbaijani: "Üzr istəyirik, hazırda cavab verə bilmirəm. Zəhmət olmasa bir az sonra yenidən cəhd edin və ya %s nömrəsinə zəng edin.",
	models.LanguageRussian:     "Извините, сейчас я не могу ответить. Попробуйте позже или позвоните нам по номеру %s.",
}

// Fallback returns the static answer used when generation fails.
func Fallback(lang models.Language, contact string) string {
	text, ok := fallbacks[lang]
	if !ok {
		text = fallbacks[models.SupportedLanguages[0]]
	}
	return fmt.Sprintf(text, contact)
}
