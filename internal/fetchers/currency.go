// internal/fetchers/currency.go
package fetchers

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/models"
)

const defaultDateLayout = "02.01.2006"

// feedParser decodes one rate feed body. Bad numeric fields become 0 and are
// reported through warn.
type feedParser func(body []byte, source string, warn func(code, field, raw string)) (*models.CurrencyRateSet, error)

// CurrencyFeed downloads a daily rate feed. The URL may contain a {date}
// placeholder; when today's feed fails or is empty the previous calendar
// days are tried, up to fallbackDays.
type CurrencyFeed struct {
	name         string
	urlTemplate  string
	layout       string
	fallbackDays int
	parse        feedParser
	fetcher      *Fetcher
	logger       Logger
	now          func() time.Time
}

func NewXMLCurrencyFeed(name, urlTemplate, layout string, fallbackDays int, fetcher *Fetcher, log Logger) *CurrencyFeed {
	return newCurrencyFeed(name, urlTemplate, layout, fallbackDays, parseRatesXML, fetcher, log)
}

func NewJSONCurrencyFeed(name, urlTemplate, layout string, fallbackDays int, fetcher *Fetcher, log Logger) *CurrencyFeed {
	return newCurrencyFeed(name, urlTemplate, layout, fallbackDays, parseRatesJSON, fetcher, log)
}

func newCurrencyFeed(name, urlTemplate, layout string, fallbackDays int, parse feedParser, fetcher *Fetcher, log Logger) *CurrencyFeed {
	if layout == "" {
		layout = defaultDateLayout
	}
	if fallbackDays < 0 {
		fallbackDays = 0
	}
	return &CurrencyFeed{
		name:         name,
		urlTemplate:  urlTemplate,
		layout:       layout,
		fallbackDays: fallbackDays,
		parse:        parse,
		fetcher:      fetcher,
		logger:       log,
		now:          time.Now,
	}
}

// WithClock replaces the clock used to pick the feed date.
func (f *CurrencyFeed) WithClock(now func() time.Time) *CurrencyFeed {
	f.now = now
	return f
}

func (f *CurrencyFeed) Name() string { return f.name }

func (f *CurrencyFeed) Fetch(ctx context.Context) (*models.CurrencyRateSet, error) {
	day := f.now()
	var lastErr error

	for back := 0; back <= f.fallbackDays; back++ {
		date := day.AddDate(0, 0, -back)
		url := strings.ReplaceAll(f.urlTemplate, "{date}", date.Format(f.layout))

		set, err := f.fetchOne(ctx, url)
		if err == nil {
			if set.Date == "" {
				set.Date = date.Format(f.layout)
			}
			return set, nil
		}
		lastErr = err

		// without a date placeholder every day is the same request
		if !strings.Contains(f.urlTemplate, "{date}") {
			break
		}
		if f.logger != nil && back < f.fallbackDays {
			f.logger.Warn("Rate feed unavailable, trying previous day", map[string]interface{}{
				"source": f.name,
				"date":   date.Format(f.layout),
				"error":  err.Error(),
			})
		}
	}
	return nil, lastErr
}

func (f *CurrencyFeed) fetchOne(ctx context.Context, url string) (*models.CurrencyRateSet, error) {
	body, err := f.fetcher.Get(ctx, f.name, url)
	if err != nil {
		return nil, err
	}

	set, err := f.parse(body, f.name, func(code, field, raw string) {
		if f.logger != nil {
			f.logger.Warn("Bad numeric field in rate feed, using 0", map[string]interface{}{
				"source": f.name,
				"code":   code,
				"field":  field,
				"value":  raw,
			})
		}
	})
	if err != nil {
		return nil, err
	}
	if len(set.Currencies) == 0 {
		return nil, apperrors.NewUpstreamPayloadError(f.name, ErrEmptyFeed.Error())
	}
	return set, nil
}

// --- XML feed: ValCurs/ValType/Valute ---

type valCurs struct {
	XMLName  xml.Name  `xml:"ValCurs"`
	Date     string    `xml:"Date,attr"`
	ValTypes []valType `xml:"ValType"`
}

type valType struct {
	Type    string   `xml:"Type,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	Code    string `xml:"Code,attr"`
	Nominal string `xml:"Nominal"`
	Name    string `xml:"Name"`
	Value   string `xml:"Value"`
}

func parseRatesXML(body []byte, source string, warn func(code, field, raw string)) (*models.CurrencyRateSet, error) {
	var doc valCurs
	dec := xml.NewDecoder(bytes.NewReader(body))
	// feeds declare their encoding but are served as UTF-8
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.NewUpstreamPayloadError(source, fmt.Sprintf("decode xml: %v", err))
	}

	set := &models.CurrencyRateSet{
		Date:       doc.Date,
		Source:     source,
		Currencies: make(map[string]models.CurrencyRate),
	}
	for _, vt := range doc.ValTypes {
		for _, v := range vt.Valutes {
			code := strings.ToUpper(strings.TrimSpace(v.Code))
			if code == "" {
				continue
			}
			set.Currencies[code] = models.CurrencyRate{
				Rate:    parseRate(code, "Value", v.Value, warn),
				Nominal: parseNominal(code, v.Nominal, warn),
				Name:    strings.TrimSpace(v.Name),
			}
		}
	}
	return set, nil
}

// --- JSON feed: {"date": ..., "rates": [...] | {...}} ---

func parseRatesJSON(body []byte, source string, warn func(code, field, raw string)) (*models.CurrencyRateSet, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewUpstreamPayloadError(source, "body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	rates := first(root, "rates", "data.rates", "currencies")
	if !rates.IsArray() && !rates.IsObject() {
		return nil, apperrors.NewUpstreamPayloadError(source, "missing rates")
	}

	set := &models.CurrencyRateSet{
		Date:       first(root, "date", "data.date").String(),
		Source:     source,
		Currencies: make(map[string]models.CurrencyRate),
	}

	if rates.IsArray() {
		for _, r := range rates.Array() {
			code := strings.ToUpper(strings.TrimSpace(first(r, "code", "currency", "ccy").String()))
			if code == "" {
				continue
			}
			set.Currencies[code] = models.CurrencyRate{
				Rate:    parseRate(code, "rate", first(r, "rate", "value", "mid").String(), warn),
				Nominal: parseNominal(code, first(r, "nominal", "unit").String(), warn),
				Name:    first(r, "name", "title").String(),
			}
		}
		return set, nil
	}

	rates.ForEach(func(k, v gjson.Result) bool {
		code := strings.ToUpper(k.String())
		raw := v.String()
		if v.IsObject() {
			raw = first(v, "rate", "value").String()
		}
		set.Currencies[code] = models.CurrencyRate{
			Rate:    parseRate(code, "rate", raw, warn),
			Nominal: 1,
		}
		return true
	})
	return set, nil
}

func parseRate(code, field, raw string, warn func(code, field, raw string)) float64 {
	s := strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		warn(code, field, raw)
		return 0
	}
	return f
}

// parseNominal defaults a missing nominal to 1; a present but unreadable one is 0.
func parseNominal(code, raw string, warn func(code, field, raw string)) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		warn(code, "Nominal", raw)
		return 0
	}
	return n
}
