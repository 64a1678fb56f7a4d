// Package pubsub announces account lifecycle events to a message broker.
package pubsub

import (
	"context"
	"log/slog"

	"authcore/config"
	"authcore/internal/domain/service"
	"authcore/internal/errors"

	"go.uber.org/fx"
)

// noopPublisher drops events when no broker is configured.
type noopPublisher struct {
	logger *slog.Logger
}

func (p *noopPublisher) PublishUserRegistered(ctx context.Context, event *service.UserRegisteredEvent) error {
	p.logger.DebugContext(ctx, "[NoopPubSub] Event publishing disabled, skipping",
		slog.String("user_id", event.UserID.String()),
		slog.String("correlation_id", event.CorrelationID),
	)

	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}

// publisherFactory opens the publisher of one provider. It may assume that the
// fields the provider needs are set.
type publisherFactory struct {
	required func(cfg *config.PubSubConfig) bool
	open     func(ctx context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (service.EventPublisher, error)
}

//nolint:gochecknoglobals
var publisherFactories = map[string]publisherFactory{
	config.PubSubProviderLocal: {
		required: func(cfg *config.PubSubConfig) bool { return cfg.LocalEndpoint != "" },
		open: func(_ context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (service.EventPublisher, error) {
			return NewLocalHTTPPublisher(cfg.LocalEndpoint, logger), nil
		},
	},
	config.PubSubProviderGoogle: {
		required: func(cfg *config.PubSubConfig) bool { return cfg.ProjectID != "" && cfg.TopicID != "" },
		open: func(ctx context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (service.EventPublisher, error) {
			return NewGooglePubSubPublisher(ctx, cfg.ProjectID, cfg.TopicID, logger)
		},
	},
	config.PubSubProviderGoCloud: {
		required: func(cfg *config.PubSubConfig) bool { return cfg.TopicURL != "" },
		open: func(ctx context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (service.EventPublisher, error) {
			return NewGoCloudPublisher(ctx, cfg.TopicURL, logger)
		},
	},
}

// PublisherParams holds dependencies for EventPublisher, injected by Fx
type PublisherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewEventPublisher opens the publisher named by pubsub.provider and closes it on shutdown.
func NewEventPublisher(params PublisherParams) (service.EventPublisher, error) {
	cfg := params.Config.PubSub
	if cfg == nil || cfg.Provider == "" || cfg.Provider == config.PubSubProviderNoop {
		params.Logger.Info("PubSub not configured, using no-op publisher")

		return &noopPublisher{logger: params.Logger}, nil
	}

	factory, ok := publisherFactories[cfg.Provider]
	if !ok {
		return nil, errors.Errorf("unknown pubsub provider: %s", cfg.Provider)
	}
	if !factory.required(cfg) {
		return nil, errors.Errorf("pubsub provider %s is missing its connection settings", cfg.Provider)
	}

	logger := params.Logger.With(slog.String("pubsub_provider", cfg.Provider))

	publisher, err := factory.open(params.Ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Event publisher ready")

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("Closing EventPublisher")

			return publisher.Close()
		},
	})

	return publisher, nil
}

// Module provides the Pub/Sub FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewEventPublisher),
)
