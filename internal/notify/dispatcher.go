package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/metrics"
)

// Dispatcher delivers notifications on the weather channel. A denial by the
// platform is logged and swallowed; every other error is returned.
type Dispatcher struct {
	platform Platform
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewDispatcher(platform Platform, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{platform: platform, logger: logger, now: time.Now}
}

// Deliver shows title/body under id with high priority and auto-cancel.
// Nothing is delivered once ctx is done.
func (d *Dispatcher) Deliver(ctx context.Context, id int, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n := Notification{
		ID:         id,
		ChannelID:  ChannelID,
		Title:      title,
		Body:       body,
		Priority:   PriorityHigh,
		AutoCancel: true,
		PostedAt:   d.now(),
	}

	err := d.platform.Notify(ctx, n)
	switch {
	case errors.Is(err, ErrDeliveryDenied):
		metrics.NotificationsDenied.Inc()
		d.logger.Warnw("dispatcher: notification permission missing, skipping", "id", id)
		return nil
	case err != nil:
		return fmt.Errorf("deliver notification %d: %w", id, err)
	}

	metrics.NotificationsDelivered.WithLabelValues(idKind(id)).Inc()
	d.logger.Infow("dispatcher: notification delivered", "id", id, "title", title)
	return nil
}

func idKind(id int) string {
	switch id {
	case PrimaryID:
		return "primary"
	case SecondaryID:
		return "secondary"
	default:
		return "other"
	}
}
