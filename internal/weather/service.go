package weather

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CurrentView is a Snapshot with temperatures converted to a display unit.
type CurrentView struct {
	Snapshot
	Unit   TemperatureUnit `json:"unit"`
	Symbol string          `json:"symbol"`
}

// Service serves the foreground (control API) reads. The notification job
// talks to the Provider directly and never goes through the Service.
type Service struct {
	provider Provider
	geocoder Geocoder
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewService creates a new Service. geocoder may be nil.
func NewService(provider Provider, geocoder Geocoder, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		provider: provider,
		geocoder: geocoder,
		logger:   logger.Named("weather-service"),
		now:      time.Now,
	}
}

// GetCurrent fetches fresh current weather and converts it to unit.
func (s *Service) GetCurrent(ctx context.Context, loc Location, unit TemperatureUnit) (CurrentView, error) {
	snap, err := s.provider.Fetch(ctx, loc)
	if err != nil {
		s.logger.Warnw("current weather fetch failed", "provider", s.provider.Name(), "location", loc.Key(), "error", err)
		return CurrentView{}, err
	}

	snap.Temp = ConvertTemperature(snap.Temp, unit)
	snap.FeelsLike = ConvertTemperature(snap.FeelsLike, unit)
	snap.TempMin = ConvertTemperature(snap.TempMin, unit)
	snap.TempMax = ConvertTemperature(snap.TempMax, unit)

	return CurrentView{Snapshot: snap, Unit: unit, Symbol: unit.Symbol()}, nil
}

// GetForecast fetches the multi-step forecast and aggregates it per day.
func (s *Service) GetForecast(ctx context.Context, loc Location, days int, unit TemperatureUnit) ([]DailyForecast, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be greater than zero")
	}

	fp, ok := s.provider.(ForecastProvider)
	if !ok {
		return nil, fmt.Errorf("%s forecast: %w", s.provider.Name(), ErrUnsupported)
	}

	forecast, err := fp.FetchForecast(ctx, loc)
	if err != nil {
		s.logger.Warnw("forecast fetch failed", "provider", s.provider.Name(), "location", loc.Key(), "error", err)
		return nil, err
	}

	daily := AggregateDaily(forecast, days)
	for i := range daily {
		daily[i].Min = ConvertTemperature(daily[i].Min, unit)
		daily[i].Max = ConvertTemperature(daily[i].Max, unit)
	}
	return daily, nil
}

// GetHourly returns the next count forecast steps with temperatures in unit.
func (s *Service) GetHourly(ctx context.Context, loc Location, count int, unit TemperatureUnit) ([]ForecastEntry, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be greater than zero")
	}

	fp, ok := s.provider.(ForecastProvider)
	if !ok {
		return nil, fmt.Errorf("%s hourly forecast: %w", s.provider.Name(), ErrUnsupported)
	}

	forecast, err := fp.FetchForecast(ctx, loc)
	if err != nil {
		s.logger.Warnw("hourly forecast fetch failed", "provider", s.provider.Name(), "location", loc.Key(), "error", err)
		return nil, err
	}

	steps := UpcomingSteps(forecast, s.now(), count)
	for i := range steps {
		steps[i].Temp = ConvertTemperature(steps[i].Temp, unit)
		steps[i].TempMin = ConvertTemperature(steps[i].TempMin, unit)
		steps[i].TempMax = ConvertTemperature(steps[i].TempMax, unit)
	}
	return steps, nil
}

// Geocode resolves a place query.
func (s *Service) Geocode(ctx context.Context, query string, limit int) ([]Place, error) {
	if s.geocoder == nil {
		return nil, fmt.Errorf("geocoding: %w", ErrUnsupported)
	}
	return s.geocoder.Geocode(ctx, query, limit)
}
