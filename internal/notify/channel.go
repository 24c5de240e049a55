package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ChannelManager creates the weather channel on demand. Safe to call on every run.
type ChannelManager struct {
	platform Platform
	logger   *zap.SugaredLogger
}

func NewChannelManager(platform Platform, logger *zap.SugaredLogger) *ChannelManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ChannelManager{platform: platform, logger: logger}
}

func (m *ChannelManager) EnsureChannel(ctx context.Context) error {
	ch := WeatherChannel()
	if err := m.platform.CreateChannel(ctx, ch); err != nil {
		return fmt.Errorf("create channel %s: %w", ch.ID, err)
	}
	m.logger.Debugw("channel ensured", "channel", ch.ID)
	return nil
}
