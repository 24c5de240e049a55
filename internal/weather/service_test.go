package weather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	snap     Snapshot
	forecast Forecast
	err      error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(ctx context.Context, loc Location) (Snapshot, error) {
	return p.snap, p.err
}

func (p *stubProvider) FetchForecast(ctx context.Context, loc Location) (Forecast, error) {
	return p.forecast, p.err
}

func TestService_GetCurrentConvertsUnit(t *testing.T) {
	p := &stubProvider{snap: Snapshot{Temp: 10, TempMin: 0, TempMax: 20, Name: "Testville"}}
	svc := NewService(p, nil, zap.NewNop().Sugar())

	view, err := svc.GetCurrent(context.Background(), Location{Lat: 1, Lon: 2}, Fahrenheit)
	require.NoError(t, err)
	assert.Equal(t, 50.0, view.Temp)
	assert.Equal(t, 32.0, view.TempMin)
	assert.Equal(t, 68.0, view.TempMax)
	assert.Equal(t, "°F", view.Symbol)
	assert.Equal(t, "Testville", view.Name)
}

func TestService_GetCurrentPropagatesFetchError(t *testing.T) {
	p := &stubProvider{err: NewFetchError("stub", FetchNetwork, 0, nil)}
	svc := NewService(p, nil, zap.NewNop().Sugar())

	_, err := svc.GetCurrent(context.Background(), Location{Lat: 1, Lon: 2}, Celsius)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestService_GetForecast(t *testing.T) {
	day := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	p := &stubProvider{forecast: Forecast{Entries: []ForecastEntry{
		{Time: day, Temp: 10, TempMin: 9, TempMax: 11},
	}}}
	svc := NewService(p, nil, zap.NewNop().Sugar())

	days, err := svc.GetForecast(context.Background(), Location{Lat: 1, Lon: 2}, 3, Celsius)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 9.0, days[0].Min)

	_, err = svc.GetForecast(context.Background(), Location{Lat: 1, Lon: 2}, 0, Celsius)
	assert.Error(t, err)
}

func TestService_UnsupportedCapabilities(t *testing.T) {
	svc := NewService(&currentOnlyProviderWrapper{}, nil, zap.NewNop().Sugar())

	_, err := svc.GetForecast(context.Background(), Location{Lat: 1, Lon: 2}, 1, Celsius)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = svc.GetHourly(context.Background(), Location{Lat: 1, Lon: 2}, 5, Celsius)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = svc.Geocode(context.Background(), "Paris", 5)
	assert.ErrorIs(t, err, ErrUnsupported)
}

// currentOnlyProviderWrapper implements Provider but not ForecastProvider.
type currentOnlyProviderWrapper struct{}

func (currentOnlyProviderWrapper) Name() string { return "current-only" }

func (currentOnlyProviderWrapper) Fetch(ctx context.Context, loc Location) (Snapshot, error) {
	return Snapshot{}, nil
}

func TestService_GetHourlyConvertsUpcomingSteps(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	p := &stubProvider{forecast: Forecast{Entries: []ForecastEntry{
		{Time: base, Temp: 0},
		{Time: base.Add(3 * time.Hour), Temp: 10, TempMin: 5, TempMax: 15},
		{Time: base.Add(6 * time.Hour), Temp: 20},
	}}}
	svc := NewService(p, nil, zap.NewNop().Sugar())
	svc.now = func() time.Time { return base.Add(time.Hour) }

	steps, err := svc.GetHourly(context.Background(), Location{Lat: 1, Lon: 2}, 5, Fahrenheit)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 50.0, steps[0].Temp)
	assert.Equal(t, 41.0, steps[0].TempMin)
	assert.Equal(t, 68.0, steps[1].Temp)
	assert.Equal(t, 10.0, p.forecast.Entries[1].Temp, "provider data is not modified")

	_, err = svc.GetHourly(context.Background(), Location{Lat: 1, Lon: 2}, 0, Celsius)
	assert.Error(t, err)
}
