// internal/assembler/assembler.go
package assembler

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"banking-assistant/internal/common/config"
	"banking-assistant/internal/models"
)

// Section names, in prompt order.
const (
	SectionPreamble     = "preamble"
	SectionIntent       = "intent"
	SectionLocations    = "locations"
	SectionCurrency     = "currency"
	SectionHistory      = "history"
	SectionInstructions = "instructions"
)

// CharsPerToken approximates the tokenizer of the generation model.
const CharsPerToken = 4

type Config struct {
	MaxLocations    int
	HistoryTurns    int
	TokenBudget     int // 0 disables truncation
	Location        *time.Location
	MajorCurrencies []string
	ContactNumber   string
}

func ConfigFrom(cfg config.AssemblerConfig) Config {
	return Config{
		MaxLocations:    cfg.MaxLocations,
		HistoryTurns:    cfg.HistoryTurns,
		TokenBudget:     cfg.TokenBudget,
		Location:        LoadLocation(cfg.Timezone),
		MajorCurrencies: cfg.MajorCurrencies,
		ContactNumber:   cfg.ContactNumber,
	}
}

type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Payload is the generation prompt plus the parts it was built from.
type Payload struct {
	Prompt          string    `json:"prompt"`
	Sections        []Section `json:"sections"`
	EstimatedTokens int       `json:"estimatedTokens"`
	Truncated       bool      `json:"truncated"`
}

// Assembler turns an intent and its retrieved data into a prompt. It is
// stateless apart from the clock.
type Assembler struct {
	config Config
	now    func() time.Time
}

type Option func(*Assembler)

// WithClock sets the clock used for open/closed status.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

func New(cfg Config, opts ...Option) *Assembler {
	if cfg.Location == nil {
		cfg.Location = LoadLocation("")
	}
	if cfg.MaxLocations <= 0 {
		cfg.MaxLocations = 5
	}
	if cfg.HistoryTurns < 0 {
		cfg.HistoryTurns = 0
	}
	a := &Assembler{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EstimateTokens approximates the token count of s.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Build assembles the prompt. When the token budget is exceeded history turns
// are dropped first, oldest first, then locations from the far end.
func (a *Assembler) Build(intent models.Intent, retrieval *models.RetrievalResult, history []models.Turn) Payload {
	if retrieval == nil {
		retrieval = &models.RetrievalResult{}
	}
	now := a.now().In(a.config.Location)

	locations := retrieval.Locations
	if len(locations) > a.config.MaxLocations {
		locations = locations[:a.config.MaxLocations]
	}
	turns := history
	if len(turns) > a.config.HistoryTurns {
		turns = turns[len(turns)-a.config.HistoryTurns:]
	}

	payload := a.render(intent, retrieval, locations, turns, now)
	for a.config.TokenBudget > 0 && payload.EstimatedTokens > a.config.TokenBudget {
		switch {
		case len(turns) > 0:
			turns = turns[1:]
		case len(locations) > 0:
			locations = locations[:len(locations)-1]
		default:
			payload.Truncated = true
			return payload
		}
		payload = a.render(intent, retrieval, locations, turns, now)
		payload.Truncated = true
	}
	return payload
}

func (a *Assembler) render(intent models.Intent, retrieval *models.RetrievalResult, locations []models.Location, turns []models.Turn, now time.Time) Payload {
	sections := []Section{
		{Name: SectionPreamble, Content: fmt.Sprintf(preamble(intent.Language), a.config.ContactNumber)},
		{Name: SectionIntent, Content: fmt.Sprintf("Detected intent: %s (confidence %.2f).", intent.Kind, intent.Confidence)},
	}
	if s := a.locationsSection(intent, retrieval, locations, now); s != "" {
		sections = append(sections, Section{Name: SectionLocations, Content: s})
	}
	if s := a.currencySection(intent, retrieval.Currency); s != "" {
		sections = append(sections, Section{Name: SectionCurrency, Content: s})
	}
	if s := historySection(turns); s != "" {
		sections = append(sections, Section{Name: SectionHistory, Content: s})
	}
	sections = append(sections, Section{Name: SectionInstructions, Content: a.instructions(intent.Kind)})

	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.Content
	}
	prompt := strings.Join(parts, "\n\n")
	return Payload{
		Prompt:          prompt,
		Sections:        sections,
		EstimatedTokens: EstimateTokens(prompt),
	}
}

func (a *Assembler) locationsSection(intent models.Intent, retrieval *models.RetrievalResult, locations []models.Location, now time.Time) string {
	if len(retrieval.Locations) == 0 {
		if intent.Kind == models.IntentLocation {
			return fmt.Sprintf("No location data is available right now. Suggest calling %s.", a.config.ContactNumber)
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(referenceHeader(intent, retrieval))
	today := dayName(now)
	for i, loc := range locations {
		fmt.Fprintf(&b, "\n%d. %s", i+1, loc.Name)
		if loc.Address != "" {
			fmt.Fprintf(&b, ", %s", loc.Address)
		}
		if loc.DistanceKm != nil {
			fmt.Fprintf(&b, " (%.2f km)", *loc.DistanceKm)
		}
		hours := loc.WorkingHours[today]
		if hours == "" {
			hours = "not listed"
		}
		fmt.Fprintf(&b, " | %s | today: %s", StatusAt(loc.WorkingHours, now), hours)
		if loc.Contact != "" {
			fmt.Fprintf(&b, " | tel: %s", loc.Contact)
		}
	}

	total := retrieval.TotalLocations
	if total < len(retrieval.Locations) {
		total = len(retrieval.Locations)
	}
	if more := total - len(locations); more > 0 {
		fmt.Fprintf(&b, "\n%d more found.", more)
	}

	if r := retrieval.Route; r != nil && len(r.Stops) > 1 {
		names := make([]string, len(r.Stops))
		for i, s := range r.Stops {
			names[i] = s.Name
		}
		fmt.Fprintf(&b, "\nSuggested route: %s (%.1f km, about %.0f min).", strings.Join(names, " -> "), r.TotalKm, r.EstimatedMinutes)
	}
	return b.String()
}

func referenceHeader(intent models.Intent, retrieval *models.RetrievalResult) string {
	switch retrieval.ReferenceKind {
	case models.ReferenceLandmark:
		if lm := intent.Entities.DetectedLandmark; lm != nil {
			return fmt.Sprintf("Locations nearest to %s:", lm.Name)
		}
		return "Locations nearest to the named landmark:"
	case models.ReferenceUser:
		return "Locations nearest to the customer:"
	case models.ReferenceDefault:
		return "Locations nearest to the city centre:"
	default:
		return "Locations:"
	}
}

// currencySection lists the major currencies plus any the query named.
func (a *Assembler) currencySection(intent models.Intent, rates *models.CurrencyRateSet) string {
	if rates == nil || len(rates.Currencies) == 0 {
		if intent.Kind == models.IntentCurrency {
			return fmt.Sprintf("Exchange rates are not available right now. Suggest calling %s.", a.config.ContactNumber)
		}
		return ""
	}

	codes := make([]string, 0, len(a.config.MajorCurrencies)+len(intent.Entities.CurrencyCodes))
	seen := make(map[string]bool)
	for _, c := range append(append([]string{}, a.config.MajorCurrencies...), intent.Entities.CurrencyCodes...) {
		c = strings.ToUpper(c)
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Official exchange rates in AZN (%s, %s):", rates.Source, rates.Date)
	listed := 0
	for _, code := range codes {
		r, ok := rates.Currencies[code]
		if !ok || r.Rate <= 0 {
			continue
		}
		nominal := r.Nominal
		if nominal <= 0 {
			nominal = 1
		}
		fmt.Fprintf(&b, "\n%d %s = %.4f AZN", nominal, code, r.Rate)
		if r.Name != "" {
			fmt.Fprintf(&b, " (%s)", r.Name)
		}
		listed++
	}
	if listed == 0 {
		return ""
	}
	return b.String()
}

func historySection(turns []models.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent conversation:")
	for _, t := range turns {
		fmt.Fprintf(&b, "\n%s: %s", t.Role, t.Content)
	}
	return b.String()
}

func (a *Assembler) instructions(kind models.IntentKind) string {
	text, ok := instructions[kind]
	if !ok {
		text = instructions[models.IntentGeneral]
	}
	if strings.Contains(text, "%s") {
		return fmt.Sprintf(text, a.config.ContactNumber)
	}
	return text
}
