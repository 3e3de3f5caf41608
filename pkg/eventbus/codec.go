package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidData is returned for payloads that cannot be encoded or decoded.
var ErrInvalidData = errors.New("invalid event data")

// Serializer encodes events for a broker.
type Serializer interface {
	Serialize(v interface{}) ([]byte, error)
	Deserialize(data []byte, target interface{}) error
	ContentType() string
}

// JSONSerializer encodes events as JSON.
type JSONSerializer struct{}

// NewJSONSerializer creates a JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize encodes v. A nil value is rejected.
func (s *JSONSerializer) Serialize(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrInvalidData)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return data, nil
}

// Deserialize decodes data into target, which must be a non-nil pointer.
func (s *JSONSerializer) Deserialize(data []byte, target interface{}) error {
	if target == nil {
		return fmt.Errorf("%w: nil target", ErrInvalidData)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidData)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// ContentType returns application/json.
func (s *JSONSerializer) ContentType() string { return "application/json" }

// DecodeEvent reads an event back from a message produced by BusDispatcher.
func DecodeEvent(msg *Message) (*Event, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidData)
	}
	var event Event
	if err := NewJSONSerializer().Deserialize(msg.Value, &event); err != nil {
		return nil, err
	}
	if event.Key == "" {
		return nil, ErrEmptyEventKey
	}
	return &event, nil
}
