// internal/analyzer/entities.go
package analyzer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	amountPattern = regexp.MustCompile(`(?i)[$€£₼]\s?\d+(?:[.,]\d+)?|\d+(?:[.,]\d+)?\s?(?:azn|usd|euros?|eur|rubles?|rubl\p{L}*|rub|gbp|manat\p{L}*|dollars?|pounds?|avro|funt|доллар\p{L}*|евро|рубл\p{L}*|манат\p{L}*|фунт\p{L}*|[$€£₼])`)

	phonePattern = regexp.MustCompile(`(?:\+994|\b0)[\s-]?\(?\d{2}\)?[\s-]?\d{3}[\s-]?\d{2}[\s-]?\d{2}\b`)

	clockPattern = regexp.MustCompile(`\b(?:[01]?\d|2[0-3]):[0-5]\d\b`)

	nearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:near|close to|next to|opposite)\s+(?:the\s+)?([\p{L}\p{N}' -]{2,60})`),
		regexp.MustCompile(`(?i)(?:возле|около|рядом с|недалеко от|напротив)\s+([\p{L}\p{N}' -]{2,60})`),
		regexp.MustCompile(`(?i)((?:[\p{L}\p{N}'-]+\s+){0,2}[\p{L}\p{N}'-]+)\s+(?:yaxınlığında|yanında|ətrafında|qarşısında)`),
	}
)

// timeWords are matched as whole tokens; a trailing * matches any suffix.
var timeWords = []string{
	"today", "tomorrow", "tonight", "now", "weekend",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"bu gün", "bugün", "sabah", "indi", "həftəsonu",
	"bazar ertəsi", "çərşənbə axşamı", "çərşənbə", "cümə axşamı", "cümə", "şənbə", "bazar",
	"сегодня", "завтра", "сейчас", "выходн*",
	"понедельник*", "вторник*", "среда", "среду", "четверг*", "пятниц*", "суббот*", "воскресень*",
}

// currencyCodes may appear in any case, except where the code is also a common word.
var currencyCodes = map[string]bool{
	"USD": false, "EUR": false, "RUB": false, "GBP": false, "AZN": false,
	"CHF": false, "JPY": false, "CNY": false, "GEL": false, "UAH": false, "KZT": false,
	"TRY": true,
}

// currencyNames maps word stems to ISO codes. Stems shorter than four letters
// must match the whole word.
var currencyNames = []struct {
	stem string
	code string
}{
	{"dollar", "USD"}, {"доллар", "USD"},
	{"euro", "EUR"}, {"avro", "EUR"}, {"евро", "EUR"},
	{"ruble", "RUB"}, {"rubl", "RUB"}, {"рубл", "RUB"},
	{"pound", "GBP"}, {"funt", "GBP"}, {"фунт", "GBP"},
	{"lira", "TRY"}, {"lirə", "TRY"}, {"лира", "TRY"}, {"лиры", "TRY"},
	{"manat", "AZN"}, {"манат", "AZN"},
	{"franc", "CHF"}, {"frank", "CHF"}, {"франк", "CHF"},
	{"yen", "JPY"}, {"иен", "JPY"},
	{"yuan", "CNY"}, {"юань", "CNY"},
	{"lari", "GEL"}, {"лари", "GEL"},
}

// tokenize splits on anything that is neither a letter nor a digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// extractAmounts skips matches whose unit runs on into a longer word, such
// as "100 rubbish".
func extractAmounts(text string) []string {
	var out []string
	for _, m := range amountPattern.FindAllStringIndex(text, -1) {
		if r, _ := utf8.DecodeRuneInString(text[m[1]:]); unicode.IsLetter(r) {
			continue
		}
		out = append(out, text[m[0]:m[1]])
	}
	return trimAll(out)
}

func extractPhones(text string) []string {
	return trimAll(phonePattern.FindAllString(text, -1))
}

// extractTimeReferences returns clock times, then day words in order of appearance.
func extractTimeReferences(text string) []string {
	out := clockPattern.FindAllString(text, -1)
	tokens := tokenize(fold(text))
	for i := range tokens {
		for _, phrase := range timeWords {
			if m, ok := matchPhraseAt(tokens, i, fold(phrase)); ok {
				out = append(out, m)
				break
			}
		}
	}
	return dedupe(out)
}

// matchPhraseAt reports whether phrase starts at tokens[i].
func matchPhraseAt(tokens []string, i int, phrase string) (string, bool) {
	words := strings.Fields(phrase)
	if i+len(words) > len(tokens) {
		return "", false
	}
	for j, w := range words {
		tok := tokens[i+j]
		if strings.HasSuffix(w, "*") {
			if !strings.HasPrefix(tok, strings.TrimSuffix(w, "*")) {
				return "", false
			}
			continue
		}
		if tok != w {
			return "", false
		}
	}
	return strings.Join(tokens[i:i+len(words)], " "), true
}

// extractLocationReference returns the place named after "near" and its
// equivalents, or an empty string.
func extractLocationReference(text string) string {
	for _, p := range nearPatterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			if ref := strings.Trim(m[1], " -'"); ref != "" {
				return ref
			}
		}
	}
	return ""
}

// extractCurrencyCodes finds ISO codes and currency names, in order of appearance.
func extractCurrencyCodes(text string) []string {
	var out []string
	for _, tok := range tokenize(text) {
		upper := strings.ToUpper(tok)
		if needsUpper, ok := currencyCodes[upper]; ok {
			if !needsUpper || tok == upper {
				out = append(out, upper)
			}
			continue
		}
		lower := fold(tok)
		for _, n := range currencyNames {
			stem := fold(n.stem)
			if lower == stem || (utf8.RuneCountInString(stem) >= 4 && strings.HasPrefix(lower, stem)) {
				out = append(out, n.code)
				break
			}
		}
	}
	return dedupe(out)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
