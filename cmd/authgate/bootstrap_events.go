package main

import (
	"context"

	config "github.com/NordCoder/Authgate/internal/config/authgate"
	"github.com/NordCoder/Authgate/internal/obs/retry"
	"github.com/NordCoder/Authgate/internal/outbox"
	"github.com/NordCoder/Authgate/internal/repository/kafka"
	authsvc "github.com/NordCoder/Authgate/internal/services/authgate/auth"
	userssvc "github.com/NordCoder/Authgate/internal/services/authgate/users"

	"go.uber.org/zap"
)

type userEvents interface {
	authsvc.Events
	userssvc.Events
}

type events struct {
	events userEvents
	runner *outbox.Runner
	close  func()
}

func initEvents(ctx context.Context, cfg *config.Config, logger *zap.Logger, st *storage) (*events, error) {
	if !cfg.Events.Enabled || st.outbox == nil {
		return &events{events: outbox.NopEvents{}, close: func() {}}, nil
	}

	kc := cfg.Events.Kafka
	if err := kafka.EnsureTopic(ctx, kc.Brokers, kafka.TopicSpec{
		Name:          kc.Topic,
		NumPartitions: kc.Partitions,
	}, logger); err != nil {
		logger.Warn("ensure topic failed; relying on auto-create", zap.String("topic", kc.Topic), zap.Error(err))
	}

	producer := kafka.NewProducer(kc, logger)
	dispatch := outbox.MakeGlobalOutboxHandler(
		kafka.NewUserEvents(producer),
		retry.PublishPolicy("kafka_user_events", cfg.Events.Retry, logger),
	)
	runner := outbox.NewOutboxRunner(logger, st.outbox, dispatch, cfg.Events.Outbox)

	logger.Info("user events enabled", zap.Strings("brokers", kc.Brokers), zap.String("topic", kc.Topic))
	return &events{
		events: outbox.NewEvents(st.outbox, nil),
		runner: runner,
		close:  func() { _ = producer.Close() },
	}, nil
}
