package model

// DailyBar is one day's canonical OHLC for a commodity series.
type DailyBar struct {
	Date   string  `json:"date"`
	SubKey string  `json:"sub_key,omitempty"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Source string  `json:"source,omitempty"`
}
