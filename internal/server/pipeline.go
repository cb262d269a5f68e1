package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/listmate/internal/config"
	"github.com/sakif/listmate/internal/notify"
)

// pipeline is the account-created path: a publisher handed to the
// services and a consumer goroutine feeding the Dispatcher.
//
//	bus:   Bus → Dispatcher
//	kafka: KafkaPublisher → topic → KafkaConsumer → Dispatcher
type pipeline struct {
	notifier notify.Notifier
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closers  []func() error
	once     sync.Once
	err      error
}

func newMailer(cfg config.Config, logger *slog.Logger) notify.Mailer {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP_HOST not set, mail will be logged instead of sent")
		return notify.LogMailer{Logger: logger}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
}

func startPipeline(cfg config.Config, logger *slog.Logger) (*pipeline, error) {
	dispatcher := notify.NewDispatcher(newMailer(cfg, logger), cfg.OperatorEmails, logger)

	ctx, cancel := context.WithCancel(context.Background())
	p := &pipeline{cancel: cancel}

	switch cfg.NotifyBackend {
	case config.BackendKafka:
		publisher := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		consumer := notify.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, dispatcher, logger)

		p.notifier = publisher
		p.closers = append(p.closers, publisher.Close, consumer.Close)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			consumer.Run(ctx)
		}()

	case config.BackendBus:
		bus := notify.NewBus(logger)
		msgs, err := bus.Subscribe(ctx)
		if err != nil {
			cancel()
			bus.Close()
			return nil, fmt.Errorf("subscribing to %s: %w", notify.TopicAccountCreated, err)
		}

		p.notifier = bus
		p.closers = append(p.closers, bus.Close)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			dispatcher.Run(ctx, msgs)
		}()

	default:
		cancel()
		return nil, fmt.Errorf("unknown notification backend %q", cfg.NotifyBackend)
	}

	return p, nil
}

// close stops the consumer and waits for the message in hand to finish.
func (p *pipeline) close() error {
	p.once.Do(func() {
		p.cancel()
		var errs []error
		for _, c := range p.closers {
			errs = append(errs, c())
		}
		p.wg.Wait()
		p.err = errors.Join(errs...)
	})
	return p.err
}
