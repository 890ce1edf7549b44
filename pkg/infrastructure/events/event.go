package events

import (
	"context"
	"time"
)

// Event is a fact about one production date
type Event interface {
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	// Version is the event's 1-based position in its stream, assigned on append
	Version() int
}

// EventHandler receives events of the types it subscribed to
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	CanHandle(eventType string) bool
}

// EventStore records reconciliation outcomes per production date and fans
// them out to subscribers
type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
}

// record is the single Event implementation
type record struct {
	kind    string
	stream  string
	payload any
	at      time.Time
	version int
}

func (r record) Type() string         { return r.kind }
func (r record) StreamID() string     { return r.stream }
func (r record) Data() any            { return r.payload }
func (r record) Timestamp() time.Time { return r.at }
func (r record) Version() int         { return r.version }

// NewEvent creates an unversioned event stamped with the current UTC time
func NewEvent(eventType, streamID string, data any) Event {
	return record{
		kind:    eventType,
		stream:  streamID,
		payload: data,
		at:      time.Now().UTC(),
	}
}

// appended returns event as stored at version in stream
func appended(event Event, stream string, version int) Event {
	return record{
		kind:    event.Type(),
		stream:  stream,
		payload: event.Data(),
		at:      event.Timestamp(),
		version: version,
	}
}
