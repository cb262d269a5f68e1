package notify

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/sakif/listmate/internal/model"
)

// Bus is the in-process event bus. Publish does not wait for subscribers,
// and messages published while nobody is subscribed are dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
		logger: logger,
	}
}

var _ Notifier = (*Bus)(nil)

func (b *Bus) NotifyAccountCreated(ctx context.Context, user *model.User) {
	data, err := encodeAccountCreated(user)
	if err != nil {
		b.logger.Error("encoding account created event",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(TopicAccountCreated, msg); err != nil {
		b.logger.Error("publishing account created event",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	b.logger.Debug("account created event published", slog.String("userID", user.ID))
}

// Subscribe returns the account-created stream. The channel closes when
// ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicAccountCreated)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
