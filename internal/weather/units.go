package weather

import (
	"fmt"
	"strings"
)

// TemperatureUnit is the display unit preference. Providers always report Celsius.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "CELSIUS"
	Fahrenheit TemperatureUnit = "FAHRENHEIT"
)

// ParseTemperatureUnit accepts the stored names and their short forms.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CELSIUS", "C", "METRIC":
		return Celsius, nil
	case "FAHRENHEIT", "F", "IMPERIAL":
		return Fahrenheit, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// Symbol returns the display suffix for the unit.
func (u TemperatureUnit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// ConvertTemperature converts a Celsius value to unit.
func ConvertTemperature(celsius float64, unit TemperatureUnit) float64 {
	if unit == Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}
