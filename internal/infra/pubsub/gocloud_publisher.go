package pubsub

import (
	"context"
	"log/slog"

	"authcore/internal/domain/service"
	"authcore/internal/errors"

	cdkpubsub "gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub" // registers mem:// topics
)

// goCloudPublisher implements EventPublisher on a gocloud.dev portable topic.
type goCloudPublisher struct {
	topic  *cdkpubsub.Topic
	logger *slog.Logger
}

// NewGoCloudPublisher opens the topic identified by topicURL, for example mem://user-registered.
func NewGoCloudPublisher(ctx context.Context, topicURL string, logger *slog.Logger) (service.EventPublisher, error) {
	topic, err := cdkpubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open topic %s", topicURL)
	}

	return newGoCloudPublisher(topic, logger), nil
}

func newGoCloudPublisher(topic *cdkpubsub.Topic, logger *slog.Logger) *goCloudPublisher {
	return &goCloudPublisher{topic: topic, logger: logger}
}

// PublishUserRegistered sends the event and waits until the driver acknowledged it.
func (p *goCloudPublisher) PublishUserRegistered(ctx context.Context, event *service.UserRegisteredEvent) error {
	data, attributes, err := encodeUserRegistered(event)
	if err != nil {
		return err
	}

	if err := p.topic.Send(ctx, &cdkpubsub.Message{Body: data, Metadata: attributes}); err != nil {
		return errors.WithStack(err)
	}

	p.logger.DebugContext(ctx, "[GoCloudPubSub] Event published",
		slog.String("user_id", event.UserID.String()),
		slog.String("correlation_id", event.CorrelationID),
	)

	return nil
}

// Close flushes pending sends and releases the topic.
func (p *goCloudPublisher) Close() error {
	return errors.WithStack(p.topic.Shutdown(context.Background()))
}
