package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/job"
	"github.com/i474232898/weather-notifier/internal/notify"
	"github.com/i474232898/weather-notifier/internal/scheduler"
	"github.com/i474232898/weather-notifier/internal/store"
	"github.com/i474232898/weather-notifier/internal/weather"
)

var validate = validator.New()

// JobRunner runs one weather job synchronously.
type JobRunner interface {
	RunNow(ctx context.Context, in job.Input) (job.Outcome, error)
}

type Dependencies struct {
	Preferences *store.Preferences
	Weather     *weather.Service
	Schedules   *scheduler.Manager
	Jobs        JobRunner
	// Tray is nil when notifications go to a remote platform.
	Tray      *notify.Tray
	TestDelay time.Duration
	Logger    *zap.SugaredLogger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	h := &handlers{deps: deps}
	v1 := app.Group("/api/v1")

	v1.Get("/location", h.getLocation)
	v1.Put("/location", h.putLocation)
	v1.Put("/notification-title", h.putTitle)
	v1.Post("/app/resume", h.appResume)
	v1.Put("/temperature-unit", h.putUnit)
	v1.Get("/saved-locations", h.getSavedLocations)
	v1.Put("/saved-locations", h.putSavedLocations)
	v1.Put("/permissions/notifications", h.putPermission)

	v1.Get("/weather/current", h.currentWeather)
	v1.Get("/weather/hourly", h.hourly)
	v1.Get("/weather/forecast", h.forecast)
	v1.Get("/geocode", h.geocode)

	v1.Get("/schedule", h.listSchedules)
	v1.Post("/schedule/daily", h.scheduleDaily)
	v1.Post("/schedule/test", h.scheduleTest)
	v1.Post("/jobs/run", h.runJob)
	v1.Get("/notifications", h.notifications)
}

type handlers struct {
	deps Dependencies
}

type locationBody struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type titleBody struct {
	Title string `json:"title" validate:"required,max=120"`
}

type unitBody struct {
	Unit string `json:"unit" validate:"required"`
}

type savedLocationsBody struct {
	Locations []store.SavedLocation `json:"locations" validate:"dive"`
}

type permissionBody struct {
	Granted *bool `json:"granted" validate:"required"`
}

type testRunBody struct {
	DelaySeconds *int `json:"delaySeconds" validate:"omitempty,gte=0,lte=86400"`
}

type runBody struct {
	IsTest bool `json:"isTest"`
}

func bindBody(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *handlers) getLocation(c *fiber.Ctx) error {
	loc, err := h.deps.Preferences.Location(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read location")
	}
	return c.JSON(fiber.Map{
		"latitude":  loc.Lat,
		"longitude": loc.Lon,
		"saved":     !loc.IsSentinel(),
	})
}

func (h *handlers) putLocation(c *fiber.Ctx) error {
	var body locationBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	if err := h.deps.Preferences.SaveLocation(c.UserContext(), *body.Latitude, *body.Longitude); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
	}
	return h.getLocation(c)
}

func (h *handlers) putTitle(c *fiber.Ctx) error {
	var body titleBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	if err := h.deps.Preferences.SetNotificationTitle(c.UserContext(), body.Title); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save title")
	}
	return c.JSON(fiber.Map{"title": body.Title})
}

// appResume mirrors the app coming to the foreground.
func (h *handlers) appResume(c *fiber.Ctx) error {
	if err := h.deps.Preferences.ResetNotificationTitle(c.UserContext()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to reset title")
	}
	return c.JSON(fiber.Map{"title": store.DefaultNotificationTitle})
}

func (h *handlers) putUnit(c *fiber.Ctx) error {
	var body unitBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	unit, err := weather.ParseTemperatureUnit(body.Unit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.deps.Preferences.SetTemperatureUnit(c.UserContext(), unit); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save unit")
	}
	return c.JSON(fiber.Map{"unit": unit})
}

func (h *handlers) getSavedLocations(c *fiber.Ctx) error {
	locs, err := h.deps.Preferences.SavedLocations(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read saved locations")
	}
	return c.JSON(fiber.Map{"locations": locs})
}

func (h *handlers) putSavedLocations(c *fiber.Ctx) error {
	var body savedLocationsBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	if err := h.deps.Preferences.SetSavedLocations(c.UserContext(), body.Locations); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save locations")
	}
	return h.getSavedLocations(c)
}

func (h *handlers) putPermission(c *fiber.Ctx) error {
	var body permissionBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	if err := h.deps.Preferences.SetNotificationsGranted(c.UserContext(), *body.Granted); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save permission")
	}
	return c.JSON(fiber.Map{"granted": *body.Granted})
}

// locationFromQuery uses lat/lon when given and the saved location otherwise.
func (h *handlers) locationFromQuery(c *fiber.Ctx) (weather.Location, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" && lonStr == "" {
		loc, err := h.deps.Preferences.Location(c.UserContext())
		if err != nil {
			return weather.Location{}, fiber.NewError(fiber.StatusInternalServerError, "failed to read location")
		}
		if loc.IsSentinel() {
			return weather.Location{}, fiber.NewError(fiber.StatusNotFound, "no location saved yet")
		}
		return loc, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, "lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, "lon must be a number between -180 and 180")
	}
	return weather.Location{Lat: lat, Lon: lon}, nil
}

func (h *handlers) unitFromQuery(c *fiber.Ctx) (weather.TemperatureUnit, error) {
	if q := c.Query("unit"); q != "" {
		unit, err := weather.ParseTemperatureUnit(q)
		if err != nil {
			return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return unit, nil
	}
	unit, err := h.deps.Preferences.TemperatureUnit(c.UserContext())
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "failed to read unit")
	}
	return unit, nil
}

func weatherError(err error) error {
	switch {
	case errors.Is(err, weather.ErrUnsupported):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, weather.ErrFetchFailed):
		return fiber.NewError(fiber.StatusBadGateway, "weather provider error: "+weather.ErrorCategory(err))
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
}

func (h *handlers) currentWeather(c *fiber.Ctx) error {
	loc, err := h.locationFromQuery(c)
	if err != nil {
		return err
	}
	unit, err := h.unitFromQuery(c)
	if err != nil {
		return err
	}

	view, err := h.deps.Weather.GetCurrent(c.UserContext(), loc, unit)
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(view)
}

func (h *handlers) hourly(c *fiber.Ctx) error {
	loc, err := h.locationFromQuery(c)
	if err != nil {
		return err
	}
	unit, err := h.unitFromQuery(c)
	if err != nil {
		return err
	}

	count := c.QueryInt("count", 5)
	if count < 1 || count > 40 {
		return fiber.NewError(fiber.StatusBadRequest, "count must be between 1 and 40")
	}

	steps, err := h.deps.Weather.GetHourly(c.UserContext(), loc, count, unit)
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(fiber.Map{
		"location": loc,
		"unit":     unit,
		"symbol":   unit.Symbol(),
		"hours":    steps,
	})
}

func (h *handlers) forecast(c *fiber.Ctx) error {
	loc, err := h.locationFromQuery(c)
	if err != nil {
		return err
	}
	unit, err := h.unitFromQuery(c)
	if err != nil {
		return err
	}

	days := 5
	if d := c.Query("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 || n > 5 {
			return fiber.NewError(fiber.StatusBadRequest, "days must be between 1 and 5")
		}
		days = n
	}

	daily, err := h.deps.Weather.GetForecast(c.UserContext(), loc, days, unit)
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(fiber.Map{
		"location": loc,
		"unit":     unit,
		"days":     daily,
	})
}

func (h *handlers) geocode(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	limit := c.QueryInt("limit", 5)
	if limit < 1 || limit > 10 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 10")
	}

	places, err := h.deps.Weather.Geocode(c.UserContext(), q, limit)
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(fiber.Map{"results": places})
}

func (h *handlers) listSchedules(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"registrations": h.deps.Schedules.Registrations()})
}

func (h *handlers) scheduleDaily(c *fiber.Ctx) error {
	h.deps.Schedules.ScheduleDaily(c.UserContext())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"registrations": h.deps.Schedules.Registrations()})
}

func (h *handlers) scheduleTest(c *fiber.Ctx) error {
	var body testRunBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	delay := int(h.deps.TestDelay / time.Second)
	if body.DelaySeconds != nil {
		delay = *body.DelaySeconds
	}
	h.deps.Schedules.ScheduleTestRun(c.UserContext(), delay)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"delaySeconds":  delay,
		"registrations": h.deps.Schedules.Registrations(),
	})
}

func (h *handlers) runJob(c *fiber.Ctx) error {
	var body runBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	outcome, err := h.deps.Jobs.RunNow(c.UserContext(), job.Input{IsTest: body.IsTest})
	if errors.Is(err, scheduler.ErrQueueFull) {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	}
	return c.JSON(fiber.Map{"outcome": outcome.String()})
}

func (h *handlers) notifications(c *fiber.Ctx) error {
	if h.deps.Tray == nil {
		return fiber.NewError(fiber.StatusNotFound, "notifications are not shown locally")
	}
	return c.JSON(fiber.Map{
		"channels":      h.deps.Tray.Channels(),
		"notifications": h.deps.Tray.Notifications(),
	})
}
