package weather

import (
	"fmt"
	"time"
)

// Location is a coordinate pair. The zero value (0,0) doubles as the
// "never saved" sentinel of the preferences store.
type Location struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Key returns a canonical string key for logging and metrics labels.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// IsSentinel reports whether l is the (0,0) default. A real fix on the
// equator at the prime meridian is indistinguishable from "unset".
func (l Location) IsSentinel() bool {
	return l.Lat == 0 && l.Lon == 0
}

// Condition is one weather condition entry as reported by a provider.
type Condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Snapshot is the current-weather payload of a single provider call.
// Temperatures are Celsius; it is never cached.
type Snapshot struct {
	Provider       string      `json:"provider"`
	Conditions     []Condition `json:"weather"`
	Temp           float64     `json:"temp"`
	FeelsLike      float64     `json:"feelsLike"`
	TempMin        float64     `json:"tempMin"`
	TempMax        float64     `json:"tempMax"`
	Humidity       int         `json:"humidity"`
	Pressure       int         `json:"pressure"`
	WindSpeed      float64     `json:"windSpeed"`
	Name           string      `json:"name"`
	TimezoneOffset *int        `json:"timezoneOffset,omitempty"`
}

// Description returns the text of the first condition, or "" when the
// provider reported none.
func (s Snapshot) Description() string {
	if len(s.Conditions) == 0 {
		return ""
	}
	return s.Conditions[0].Description
}

// ForecastEntry is one 3-hourly forecast step.
type ForecastEntry struct {
	Time       time.Time   `json:"time"`
	Temp       float64     `json:"temp"`
	TempMin    float64     `json:"tempMin"`
	TempMax    float64     `json:"tempMax"`
	Conditions []Condition `json:"weather"`
}

// Forecast is a provider's multi-step forecast for one location.
type Forecast struct {
	City           string          `json:"city"`
	TimezoneOffset int             `json:"timezoneOffset"`
	Entries        []ForecastEntry `json:"entries"`
}

// DailyForecast summarises one local calendar day of a Forecast.
type DailyForecast struct {
	Date        time.Time `json:"date"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// Place is a geocoding match.
type Place struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
