package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-notifier/internal/weather"
)

// Namespaces and keys. They match the preference files of the mobile app so
// exported data stays readable by both.
const (
	NamespaceWeather     = "weather_prefs"
	NamespaceWorker      = "worker_prefs"
	NamespaceLocations   = "weather_preferences"
	NamespacePermissions = "permissions_prefs"

	KeySavedLatitude        = "saved_latitude"
	KeySavedLongitude       = "saved_longitude"
	KeyTemperatureUnit      = "temperature_unit"
	KeyNotificationTitle    = "notification_title"
	KeySavedLocations       = "saved_locations"
	KeyNotificationsGranted = "notifications_granted"
)

// DefaultNotificationTitle is used until something overwrites the title.
const DefaultNotificationTitle = "Today's Weather Forecast"

// SavedLocation is one entry of the user's saved locations list.
type SavedLocation struct {
	Name              string  `json:"name" validate:"required"`
	Latitude          float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude         float64 `json:"longitude" validate:"gte=-180,lte=180"`
	IsCurrentLocation bool    `json:"isCurrentLocation"`
	Timezone          string  `json:"timezone,omitempty"`
}

// Preferences is the typed view over a KV used by the job, the CLI and the API.
type Preferences struct {
	kv KV
}

func NewPreferences(kv KV) *Preferences {
	return &Preferences{kv: kv}
}

func (p *Preferences) get(ctx context.Context, ns, key, def string) (string, error) {
	v, err := p.kv.Get(ctx, ns, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (p *Preferences) getFloat32(ctx context.Context, ns, key string) (float64, error) {
	raw, err := p.get(ctx, ns, key, "")
	if err != nil || raw == "" {
		return 0, err
	}
	f, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %s/%s: %w", ns, key, err)
	}
	return f, nil
}

// Location returns the last saved coordinates, (0,0) when never saved.
func (p *Preferences) Location(ctx context.Context) (weather.Location, error) {
	lat, err := p.getFloat32(ctx, NamespaceWeather, KeySavedLatitude)
	if err != nil {
		return weather.Location{}, err
	}
	lon, err := p.getFloat32(ctx, NamespaceWeather, KeySavedLongitude)
	if err != nil {
		return weather.Location{}, err
	}
	return weather.Location{Lat: lat, Lon: lon}, nil
}

// SaveLocation stores lat/lon with float32 precision.
func (p *Preferences) SaveLocation(ctx context.Context, lat, lon float64) error {
	if err := p.kv.Set(ctx, NamespaceWeather, KeySavedLatitude, formatFloat32(lat)); err != nil {
		return err
	}
	return p.kv.Set(ctx, NamespaceWeather, KeySavedLongitude, formatFloat32(lon))
}

func formatFloat32(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'f', -1, 32)
}

// NotificationTitle returns the current title, DefaultNotificationTitle when unset or blank.
func (p *Preferences) NotificationTitle(ctx context.Context) (string, error) {
	v, err := p.get(ctx, NamespaceWorker, KeyNotificationTitle, DefaultNotificationTitle)
	if err != nil {
		return DefaultNotificationTitle, err
	}
	if strings.TrimSpace(v) == "" {
		return DefaultNotificationTitle, nil
	}
	return v, nil
}

func (p *Preferences) SetNotificationTitle(ctx context.Context, title string) error {
	return p.kv.Set(ctx, NamespaceWorker, KeyNotificationTitle, title)
}

// ResetNotificationTitle runs whenever the app becomes visible.
func (p *Preferences) ResetNotificationTitle(ctx context.Context) error {
	return p.SetNotificationTitle(ctx, DefaultNotificationTitle)
}

// TemperatureUnit returns the display unit. Unknown stored values read as Celsius.
func (p *Preferences) TemperatureUnit(ctx context.Context) (weather.TemperatureUnit, error) {
	v, err := p.get(ctx, NamespaceWeather, KeyTemperatureUnit, string(weather.Celsius))
	if err != nil {
		return weather.Celsius, err
	}
	unit, err := weather.ParseTemperatureUnit(v)
	if err != nil {
		return weather.Celsius, nil
	}
	return unit, nil
}

func (p *Preferences) SetTemperatureUnit(ctx context.Context, unit weather.TemperatureUnit) error {
	return p.kv.Set(ctx, NamespaceWeather, KeyTemperatureUnit, string(unit))
}

// SavedLocations returns the saved list; a corrupt payload reads as empty.
func (p *Preferences) SavedLocations(ctx context.Context) ([]SavedLocation, error) {
	raw, err := p.get(ctx, NamespaceLocations, KeySavedLocations, "")
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []SavedLocation{}, nil
	}
	var out []SavedLocation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []SavedLocation{}, nil
	}
	return out, nil
}

// SetSavedLocations persists locs without entries flagged as the current location.
func (p *Preferences) SetSavedLocations(ctx context.Context, locs []SavedLocation) error {
	kept := make([]SavedLocation, 0, len(locs))
	for _, l := range locs {
		if l.IsCurrentLocation {
			continue
		}
		kept = append(kept, l)
	}
	raw, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return p.kv.Set(ctx, NamespaceLocations, KeySavedLocations, string(raw))
}

// NotificationsGranted reports the notification capability. Defaults to granted.
func (p *Preferences) NotificationsGranted(ctx context.Context) (bool, error) {
	v, err := p.get(ctx, NamespacePermissions, KeyNotificationsGranted, "true")
	if err != nil {
		return false, err
	}
	granted, err := strconv.ParseBool(v)
	if err != nil {
		return true, nil
	}
	return granted, nil
}

func (p *Preferences) SetNotificationsGranted(ctx context.Context, granted bool) error {
	return p.kv.Set(ctx, NamespacePermissions, KeyNotificationsGranted, strconv.FormatBool(granted))
}
