package models

// WeatherData is the provider-independent weather record served to the homepage.
// Every field is always populated once a value exists; partial upstream results
// are rejected before they are turned into a WeatherData.
type WeatherData struct {
	Temp      int       `json:"temp"`
	Condition Condition `json:"condition"`
	IconCode  int       `json:"iconCode"`
	Location  string    `json:"location"` // translation key, not display text
	Humidity  int       `json:"humidity"`
	WindSpeed int       `json:"windSpeed"` // km/h
	FeelsLike int       `json:"feelsLike"`
	MinTemp   int       `json:"minTemp"`
	MaxTemp   int       `json:"maxTemp"`
	IsDay     bool      `json:"isDay"`
}

// CacheEntry is the persisted form of a cached WeatherData.
type CacheEntry struct {
	Timestamp int64       `json:"timestamp"` // epoch millis
	Data      WeatherData `json:"data"`
}

// Lang selects provider-side localized text.
type Lang string

const (
	LangZH Lang = "zh"
	LangEN Lang = "en"
)

// Valid reports whether l is a supported language.
func (l Lang) Valid() bool {
	return l == LangZH || l == LangEN
}
