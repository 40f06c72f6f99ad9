package hendelse

import (
	"encoding/json"
	"errors"
)

// EventSerializer is an interface that serializes events for durable stores.
type EventSerializer interface {
	// Serialize serializes the event.
	Serialize(event Event) ([]byte, error)
}

type DefaultEventSerializer struct{}

func (s *DefaultEventSerializer) Serialize(event Event) ([]byte, error) {
	result, err := json.Marshal(event)
	if err != nil {
		return nil, NewSerializationError("Failed to serialize the event", err)
	}
	return result, nil
}

// JsonEventConverter decodes payload into a fresh value built by newEvent.
func JsonEventConverter[E Event](payload []byte, newEvent func() E) (Event, error) {
	event := newEvent()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, NewDeserializationError("Failed to deserialize the event", err)
	}
	return event, nil
}

// CombineConverters tries each converter in turn, skipping those that report an unknown type.
func CombineConverters(converters ...EventConverter) EventConverter {
	return func(typeName string, payload []byte) (Event, error) {
		for _, converter := range converters {
			event, err := converter(typeName, payload)
			var unknown *UnknownEventTypeError
			if errors.As(err, &unknown) {
				continue
			}
			return event, err
		}
		return nil, NewUnknownEventTypeError(typeName)
	}
}
