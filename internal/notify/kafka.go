package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sakif/listmate/internal/model"
)

const kafkaWriteTimeout = 5 * time.Second

// KafkaPublisher sends account-created events to a Kafka topic, keyed by
// user ID. Writes run in the background; Close waits for them. A nil
// publisher or writer skips publishing.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
	wg      sync.WaitGroup
	logger  *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
		timeout: kafkaWriteTimeout,
		logger:  logger,
	}
}

var _ Notifier = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) NotifyAccountCreated(ctx context.Context, user *model.User) {
	if p == nil || p.writer == nil {
		return
	}

	data, err := encodeAccountCreated(user)
	if err != nil {
		p.logger.Error("encoding account created event",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	msg := kafka.Message{
		Key:   []byte(user.ID),
		Value: data,
		Time:  time.Now(),
	}

	// The request may finish before the write does.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Error("publishing account created event to kafka",
				slog.String("userID", user.ID),
				slog.String("topic", p.writer.Topic),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.wg.Wait()
	return p.writer.Close()
}

// KafkaConsumer feeds account-created events from Kafka into a Dispatcher.
type KafkaConsumer struct {
	reader     *kafka.Reader
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewKafkaConsumer(brokers []string, topic, groupID string, d *Dispatcher, logger *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		dispatcher: d,
		logger:     logger,
	}
}

// Run reads until ctx is cancelled. With a GroupID set, ReadMessage
// commits the offset before the event is handled, so a crash mid-delivery
// drops that event.
func (c *KafkaConsumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("reading account created event from kafka", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.dispatcher.Handle(ctx, msg.Value)
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
