// internal/analyzer/analyzer.go
package analyzer

import (
	"math"
	"sort"
	"strings"

	"banking-assistant/internal/geo"
	"banking-assistant/internal/models"
)

const (
	genericHitScore = 1
	subtypeHitScore = 2
	fullConfidence  = 5.0
	// GeneralConfidence is reported when no keyword matched.
	GeneralConfidence = 0.5
)

// QueryContext carries caller-supplied facts about the query.
type QueryContext struct {
	UserLocation *models.Coordinates
}

type compiledSubtype struct {
	subtype  string
	keywords []string
}

type compiledTable struct {
	kind     models.IntentKind
	keywords []string
	subtypes []compiledSubtype
}

// Analyzer classifies queries with keyword tables and extracts entities. It
// holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	tables    []compiledTable
	gazetteer *Gazetteer
}

type Option func(*Analyzer)

// WithTables replaces the keyword tables.
func WithTables(tables []IntentTable) Option {
	return func(a *Analyzer) { a.tables = compileTables(tables) }
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		tables:    compileTables(DefaultTables),
		gazetteer: NewGazetteer(DefaultGazetteer),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// compileTables folds keywords and merges the per-language lists so that a
// keyword listed in several languages is counted once.
func compileTables(tables []IntentTable) []compiledTable {
	out := make([]compiledTable, 0, len(tables))
	for _, t := range tables {
		ct := compiledTable{kind: t.Kind, keywords: mergeKeywords(t.Keywords)}
		for _, st := range t.Subtypes {
			ct.subtypes = append(ct.subtypes, compiledSubtype{subtype: st.Subtype, keywords: mergeKeywords(st.Keywords)})
		}
		out = append(out, ct)
	}
	return out
}

func mergeKeywords(byLang map[models.Language][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, lang := range languageOrder {
		for _, kw := range byLang[lang] {
			kw = fold(strings.TrimSpace(kw))
			if kw != "" && !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

type subtypeScore struct {
	subtype string
	score   int
}

// Analyze never fails: text without any keyword hit is a general query with
// confidence 0.5.
func (a *Analyzer) Analyze(text string, qctx *QueryContext) models.Intent {
	folded := fold(text)

	intent := models.Intent{
		Kind:       models.IntentGeneral,
		Confidence: GeneralConfidence,
		Language:   DetectLanguage(text),
	}

	bestScore := 0
	var matchedSubtypes []subtypeScore
	for _, t := range a.tables {
		score := countHits(folded, t.keywords) * genericHitScore
		for _, st := range t.subtypes {
			if hits := countHits(folded, st.keywords); hits > 0 {
				score += hits * subtypeHitScore
				matchedSubtypes = append(matchedSubtypes, subtypeScore{subtype: st.subtype, score: hits})
			}
		}
		// strictly greater keeps the earlier table on ties
		if score > bestScore {
			bestScore = score
			intent.Kind = t.kind
		}
	}
	if bestScore > 0 {
		intent.Confidence = math.Min(float64(bestScore)/fullConfidence, 1.0)
	}

	intent.Entities = a.extractEntities(text, matchedSubtypes, qctx)
	return intent
}

func (a *Analyzer) extractEntities(text string, subtypes []subtypeScore, qctx *QueryContext) models.Entities {
	var e models.Entities

	sort.SliceStable(subtypes, func(i, j int) bool {
		return subtypes[i].score > subtypes[j].score
	})
	for _, s := range subtypes {
		e.Subtypes = append(e.Subtypes, s.subtype)
	}
	if len(e.Subtypes) > 0 {
		e.Subtype = e.Subtypes[0]
	}

	e.Amounts = extractAmounts(text)
	e.Phones = extractPhones(text)
	e.TimeReferences = extractTimeReferences(text)
	e.CurrencyCodes = extractCurrencyCodes(text)
	e.LocationReference = extractLocationReference(text)

	if lm, ok := a.gazetteer.Resolve(e.LocationReference, text); ok {
		e.DetectedLandmark = lm
	}
	if qctx != nil && qctx.UserLocation != nil && geo.Valid(*qctx.UserLocation) {
		loc := *qctx.UserLocation
		e.UserLocation = &loc
	}
	return e
}
