package weather

import (
	"context"
)

// Provider abstracts a current-weather data source (OpenWeatherMap, Open-Meteo).
// Every failure satisfies errors.Is(err, ErrFetchFailed).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (Snapshot, error)
}

// ForecastProvider is implemented by providers that expose a multi-step forecast.
type ForecastProvider interface {
	FetchForecast(ctx context.Context, loc Location) (Forecast, error)
}

// Geocoder resolves a free-text place query to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]Place, error)
}
