package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultHandlerTimeout bounds a single handler invocation
const DefaultHandlerTimeout = 10 * time.Second

// InMemoryEventStore keeps streams in memory and delivers each appended event
// to its subscribers asynchronously
type InMemoryEventStore struct {
	streams        map[string][]Event
	subscribers    map[string][]EventHandler
	mutex          sync.RWMutex
	pending        sync.WaitGroup
	handlerTimeout time.Duration
	logger         zerolog.Logger
}

// Verify interface compliance
var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore(logger zerolog.Logger) *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:        make(map[string][]Event),
		subscribers:    make(map[string][]EventHandler),
		handlerTimeout: DefaultHandlerTimeout,
		logger:         logger.With().Str("component", "event_store").Logger(),
	}
}

// SetHandlerTimeout changes the per-handler deadline; zero disables it
func (s *InMemoryEventStore) SetHandlerTimeout(d time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.handlerTimeout = d
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	versioned := appended(event, streamID, len(s.streams[streamID])+1)

	s.streams[streamID] = append(s.streams[streamID], versioned)

	for _, handler := range s.subscribers[versioned.Type()] {
		if !handler.CanHandle(versioned.Type()) {
			continue
		}
		s.pending.Add(1)
		go s.deliver(handler, versioned, s.handlerTimeout)
	}

	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}

	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

// Wait blocks until every handler started so far has returned
func (s *InMemoryEventStore) Wait() {
	s.pending.Wait()
}

func (s *InMemoryEventStore) deliver(handler EventHandler, event Event, timeout time.Duration) {
	defer s.pending.Done()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := handler.Handle(ctx, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("event_type", event.Type()).
			Str("stream_id", event.StreamID()).
			Int("version", event.Version()).
			Msg("event handler failed")
	}
}
