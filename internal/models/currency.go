// internal/models/currency.go
package models

type CurrencyRate struct {
	Rate    float64 `json:"rate"`
	Nominal int     `json:"nominal"`
	Name    string  `json:"name"`
}

// CurrencyRateSet is one successful fetch of a rate feed.
type CurrencyRateSet struct {
	Date       string                  `json:"date"`
	Source     string                  `json:"source"`
	Currencies map[string]CurrencyRate `json:"currencies"`
}
