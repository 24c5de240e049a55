package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tray is the in-process notification surface. It keeps the channel
// registry and the notifications currently shown, keyed by id.
type Tray struct {
	capability Capability

	mu       sync.RWMutex
	channels map[string]Channel
	shown    map[int]Notification
}

// NewTray creates a Tray. A nil capability means permission is always granted.
func NewTray(capability Capability) *Tray {
	return &Tray{
		capability: capability,
		channels:   make(map[string]Channel),
		shown:      make(map[int]Notification),
	}
}

// CreateChannel registers ch unless a channel with the same id exists.
func (t *Tray) CreateChannel(ctx context.Context, ch Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.channels[ch.ID]; !ok {
		t.channels[ch.ID] = ch
	}
	return nil
}

func (t *Tray) Notify(ctx context.Context, n Notification) error {
	if err := checkCapability(ctx, t.capability); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.channels[n.ChannelID]; !ok {
		return fmt.Errorf("channel %q does not exist", n.ChannelID)
	}
	t.shown[n.ID] = n
	return nil
}

// Cancel dismisses the notification with id, as a tap on an auto-cancel notification does.
func (t *Tray) Cancel(id int) {
	t.mu.Lock()
	delete(t.shown, id)
	t.mu.Unlock()
}

func (t *Tray) Shown(id int) (Notification, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.shown[id]
	return n, ok
}

// Notifications returns the shown notifications ordered by id.
func (t *Tray) Notifications() []Notification {
	t.mu.RLock()
	out := make([]Notification, 0, len(t.shown))
	for _, n := range t.shown {
		out = append(out, n)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Tray) Channels() []Channel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Channel, 0, len(t.channels))
	for _, c := range t.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
