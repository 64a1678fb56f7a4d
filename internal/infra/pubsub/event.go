package pubsub

import (
	"encoding/json"

	"authcore/internal/domain/service"
	"authcore/internal/errors"
)

// EventTypeUserRegistered is the event_type attribute of registration messages.
const EventTypeUserRegistered = "user.registered"

// encodeUserRegistered serializes the event and builds the attributes shared by every publisher.
func encodeUserRegistered(event *service.UserRegisteredEvent) ([]byte, map[string]string, error) {
	if event == nil {
		return nil, nil, errors.New("event is required")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	// Attributes allow subscription filtering and tracing without decoding the body.
	attributes := map[string]string{
		"event_type":     EventTypeUserRegistered,
		"user_id":        event.UserID.String(),
		"provider":       event.Provider,
		"correlation_id": event.CorrelationID,
	}

	return data, attributes, nil
}
