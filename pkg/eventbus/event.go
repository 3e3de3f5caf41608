package eventbus

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conventional argument names.
const (
	ArgActor      = "actor"
	ArgRecipients = "recipients"
	ArgData       = "data"
)

// ErrEmptyEventKey is returned when an event has no key to route on.
var ErrEmptyEventKey = errors.New("event key is required")

// Arguments is the free-form payload of an event.
type Arguments map[string]any

// Actor returns the triggering actor, if any.
func (a Arguments) Actor() any { return a[ArgActor] }

// Recipients returns the target recipients, if any.
func (a Arguments) Recipients() any { return a[ArgRecipients] }

// Data returns the payload data, if any.
func (a Arguments) Data() any { return a[ArgData] }

// Event is a named notification raised by a document manager operation.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Key        string    `json:"key"`
	Arguments  Arguments `json:"arguments,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`

	stopped bool
}

// NewEvent creates an event with a fresh ID, stamped now.
func NewEvent(key string, args Arguments) *Event {
	if args == nil {
		args = Arguments{}
	}
	return &Event{
		ID:         uuid.New(),
		Key:        strings.TrimSpace(key),
		Arguments:  args,
		OccurredAt: time.Now().UTC(),
	}
}

// StopPropagation prevents later local listeners from seeing the event.
func (e *Event) StopPropagation() { e.stopped = true }

// PropagationStopped reports whether a listener stopped the event.
func (e *Event) PropagationStopped() bool { return e.stopped }
