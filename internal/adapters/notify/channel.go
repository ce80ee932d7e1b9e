// Package notify implements the notification boundary: channel
// implementations, the outbound dispatcher, and its retry scheduler. The
// transport mechanics behind each channel (SMTP, SMS gateway, push service)
// belong to external collaborators; the implementations here own formatting,
// fan-out across a referee's enabled channels, and retry policy.
package notify

import (
	"context"

	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/logger"
)

// Channel delivers one message over one transport. One implementation per
// channel replaces switch-on-string dispatch: the dispatcher iterates its
// channel list and never branches on channel names.
type Channel interface {
	Name() model.NotificationChannel
	Send(ctx context.Context, referee *model.Referee, msg model.Notification) error
}

// logChannel is the built-in implementation shared by all four channels: it
// hands the formatted message to the external transport boundary, which in
// this repository is a structured log line.
type logChannel struct {
	name   model.NotificationChannel
	logger logger.Logger
}

func (c *logChannel) Name() model.NotificationChannel { return c.name }

func (c *logChannel) Send(ctx context.Context, referee *model.Referee, msg model.Notification) error {
	c.logger.Info(ctx, "delivering notification",
		logger.String("channel", string(c.name)),
		logger.String("referee", referee.ID),
		logger.String("kind", string(msg.Kind)),
		logger.String("subject", msg.Subject),
	)
	return nil
}

// NewEmailChannel creates the EMAIL channel.
func NewEmailChannel() Channel {
	return &logChannel{name: model.ChannelEmail, logger: logger.Get().Named("email")}
}

// NewSMSChannel creates the SMS channel.
func NewSMSChannel() Channel {
	return &logChannel{name: model.ChannelSMS, logger: logger.Get().Named("sms")}
}

// NewPushChannel creates the PUSH channel.
func NewPushChannel() Channel {
	return &logChannel{name: model.ChannelPush, logger: logger.Get().Named("push")}
}

// NewInAppChannel creates the IN_APP channel.
func NewInAppChannel() Channel {
	return &logChannel{name: model.ChannelInApp, logger: logger.Get().Named("inapp")}
}

// DefaultChannels returns all four built-in channel implementations.
func DefaultChannels() []Channel {
	return []Channel{
		NewEmailChannel(),
		NewSMSChannel(),
		NewPushChannel(),
		NewInAppChannel(),
	}
}
