package job

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/i474232898/weather-notifier/internal/common"
	"github.com/i474232898/weather-notifier/internal/weather"
)

const (
	// "E, MMM d", e.g. "Mon, Jan 5"
	dateLayout = "Mon, Jan 2"

	unknownDescription = "Unknown"
	unknownCity        = "your location"
)

// FormatMessage composes the notification body for snap. now is rendered in
// its own location (the device zone), not the zone of the weather location.
func FormatMessage(now time.Time, snap weather.Snapshot) string {
	desc := common.TitleFirst(strings.TrimSpace(snap.Description()))
	if desc == "" {
		desc = unknownDescription
	}
	city := common.FirstNonEmpty(snap.Name, unknownCity)

	return fmt.Sprintf("%s: %s, %d°C in %s",
		now.Format(dateLayout), desc, int(math.Round(snap.Temp)), city)
}

func testMessage(now time.Time) string {
	return fmt.Sprintf("Test notification at %d", now.UnixMilli())
}

func noLocationMessage() string {
	return "No location saved yet. Open the app to set your location."
}

func fetchFailedMessage(err error) string {
	return fmt.Sprintf("Weather API error: %s. Will retry shortly.", weather.ErrorCategory(err))
}

func unexpectedMessage() string {
	return "Weather service error. Will try again tomorrow."
}
