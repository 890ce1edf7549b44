package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  map[string]bool
	events []Event
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return h.types[eventType]
}

func (h *recordingHandler) received() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

type capturedMessage struct {
	exchange   string
	routingKey string
	body       []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, capturedMessage{exchange, routingKey, body})
	return nil
}

func TestInMemoryEventStore_AppendVersionsPerStream(t *testing.T) {
	store := NewInMemoryEventStore(zerolog.Nop())

	for i := 0; i < 3; i++ {
		if err := store.AppendEvent("production-2024-03-01", NewEvent(ProductionReconciledEvent, "", i)); err != nil {
			t.Fatalf("Failed to append event: %v", err)
		}
	}
	if err := store.AppendEvent("production-2024-03-02", NewEvent(ProductionReconciledEvent, "", 9)); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}

	events, err := store.ReadEvents("production-2024-03-01", 2)
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events from version 2, got %d", len(events))
	}
	if events[0].Version() != 2 || events[1].Version() != 3 {
		t.Errorf("Expected versions 2 and 3, got %d and %d", events[0].Version(), events[1].Version())
	}
	if events[0].StreamID() != "production-2024-03-01" {
		t.Errorf("Expected stream id to be assigned on append, got %q", events[0].StreamID())
	}

	second, _ := store.ReadEvents("production-2024-03-02", 0)
	if len(second) != 1 || second[0].Version() != 1 || second[0].Data() != 9 {
		t.Errorf("Expected the single event of the second stream, got %v", second)
	}

	missing, _ := store.ReadEvents("production-2024-03-03", 1)
	if len(missing) != 0 {
		t.Errorf("Expected no events for unknown stream, got %d", len(missing))
	}
}

func TestInMemoryEventStore_DeliversToSubscribers(t *testing.T) {
	store := NewInMemoryEventStore(zerolog.Nop())
	reconciled := &recordingHandler{types: map[string]bool{ProductionReconciledEvent: true}}
	failed := &recordingHandler{
		types: map[string]bool{ProductionReconcileFailedEvent: true},
		err:   errors.New("handler failure is only logged"),
	}
	_ = store.Subscribe([]string{ProductionReconciledEvent}, reconciled)
	_ = store.Subscribe([]string{ProductionReconcileFailedEvent}, failed)

	_ = store.AppendEvent("production-2024-03-01", NewProductionReconciled(&dto.ReconcileResult{Date: "2024-03-01"}))
	_ = store.AppendEvent("production-2024-03-01", NewProductionReconcileFailed("2024-03-01", errors.New("db down")))
	store.Wait()

	if got := len(reconciled.received()); got != 1 {
		t.Errorf("Expected 1 reconciled event, got %d", got)
	}
	if got := len(failed.received()); got != 1 {
		t.Errorf("Expected 1 failure event, got %d", got)
	}

	if got := reconciled.received(); len(got) == 1 && got[0].Version() != 1 {
		t.Errorf("Expected delivered event to carry its stream version, got %d", got[0].Version())
	}
}

func TestBrokerForwarder_PublishesEnvelope(t *testing.T) {
	publisher := &fakePublisher{}
	forwarder := NewBrokerForwarder(publisher, "bakeplan.events", []string{ProductionReconciledEvent}, zerolog.Nop())
	store := NewInMemoryEventStore(zerolog.Nop())
	_ = store.Subscribe(forwarder.EventTypes(), forwarder)

	result := &dto.ReconcileResult{
		Date:       "2024-03-01",
		Recipes:    []dto.RecipeSummary{{RecipeID: 10, BatchID: 1, Created: true}},
		Stats:      dto.WriteStats{BatchesCreated: 1, ItemsInserted: 2},
		Unresolved: []dto.ProductDemand{{ProductID: 4}},
		Failed:     []entities.RecipeID{20},
	}
	_ = store.AppendEvent(ProductionStream(result.Date), NewProductionReconciled(result))
	store.Wait()

	if len(publisher.messages) != 1 {
		t.Fatalf("Expected 1 published message, got %d", len(publisher.messages))
	}
	msg := publisher.messages[0]
	if msg.exchange != "bakeplan.events" || msg.routingKey != ProductionReconciledEvent {
		t.Errorf("Expected bakeplan.events/%s, got %s/%s", ProductionReconciledEvent, msg.exchange, msg.routingKey)
	}

	var envelope struct {
		Type     string               `json:"type"`
		StreamID string               `json:"stream_id"`
		Version  int                  `json:"version"`
		Data     ProductionReconciled `json:"data"`
	}
	if err := json.Unmarshal(msg.body, &envelope); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if envelope.StreamID != "production-2024-03-01" || envelope.Version != 1 {
		t.Errorf("Unexpected envelope header: %+v", envelope)
	}
	if envelope.Data.Stats.ItemsInserted != 2 {
		t.Errorf("Expected 2 inserted items, got %d", envelope.Data.Stats.ItemsInserted)
	}
	if len(envelope.Data.Unresolved) != 1 || envelope.Data.Unresolved[0] != 4 {
		t.Errorf("Expected unresolved product 4, got %v", envelope.Data.Unresolved)
	}
	if len(envelope.Data.Failed) != 1 || envelope.Data.Failed[0] != 20 {
		t.Errorf("Expected failed recipe 20, got %v", envelope.Data.Failed)
	}
}

func TestBrokerForwarder_PublishError(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("connection reset")}
	forwarder := NewBrokerForwarder(publisher, "bakeplan.events", []string{ProductionReconciledEvent}, zerolog.Nop())

	err := forwarder.Handle(context.Background(), NewEvent(ProductionReconciledEvent, "production-2024-03-01", nil))
	if err == nil {
		t.Fatal("Expected publish error")
	}
	if !errors.Is(err, publisher.err) {
		t.Errorf("Expected wrapped publisher error, got %v", err)
	}
	if forwarder.CanHandle(ProductionReconcileFailedEvent) {
		t.Error("Expected forwarder to ignore unsubscribed event types")
	}
}
