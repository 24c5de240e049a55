// Package notify owns the user-visible notification surface: the weather
// channel, the delivery policy and the platforms notifications land on.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrDeliveryDenied is returned by a Platform that lacks the capability
// (permission) to show notifications.
var ErrDeliveryDenied = errors.New("notification delivery denied")

const (
	ChannelID          = "weather_notifications"
	ChannelName        = "Weather Notifications"
	ChannelDescription = "Daily weather updates"

	// PrimaryID is shared by every scheduled run so the newest result
	// replaces the previous one. Test runs use SecondaryID.
	PrimaryID    = 1
	TestIDOffset = 100
	SecondaryID  = PrimaryID + TestIDOffset
)

type Importance int

const (
	ImportanceDefault Importance = iota
	ImportanceHigh
)

func (i Importance) String() string {
	if i == ImportanceHigh {
		return "high"
	}
	return "default"
}

type Priority int

const (
	PriorityDefault Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "default"
}

// Channel is a notification category.
type Channel struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Importance  Importance `json:"importance"`
}

// WeatherChannel is the single channel all weather notifications use.
func WeatherChannel() Channel {
	return Channel{
		ID:          ChannelID,
		Name:        ChannelName,
		Description: ChannelDescription,
		Importance:  ImportanceHigh,
	}
}

// Notification is a fully composed notification.
type Notification struct {
	ID         int       `json:"id"`
	ChannelID  string    `json:"channelId"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Priority   Priority  `json:"priority"`
	AutoCancel bool      `json:"autoCancel"`
	PostedAt   time.Time `json:"postedAt"`
}

// Platform is where notifications are shown. CreateChannel must be
// idempotent; Notify replaces any notification already shown with the same ID.
type Platform interface {
	CreateChannel(ctx context.Context, ch Channel) error
	Notify(ctx context.Context, n Notification) error
}

// Capability reports whether the user has granted notification permission.
type Capability interface {
	NotificationsGranted(ctx context.Context) (bool, error)
}

func checkCapability(ctx context.Context, c Capability) error {
	if c == nil {
		return nil
	}
	granted, err := c.NotificationsGranted(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return ErrDeliveryDenied
	}
	return nil
}
