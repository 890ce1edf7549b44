package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestAwaitConfirmation_SkipsLateConfirmations(t *testing.T) {
	acks := make(chan amqp.Confirmation, 3)
	// delivery 1 was abandoned by its caller and confirmed late
	acks <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	acks <- amqp.Confirmation{DeliveryTag: 2, Ack: false}

	err := awaitConfirmation(context.Background(), acks, 2)
	if err == nil || !strings.Contains(err.Error(), "NACK") {
		t.Errorf("Expected NACK of delivery 2, got %v", err)
	}
}

func TestAwaitConfirmation_Ack(t *testing.T) {
	acks := make(chan amqp.Confirmation, 1)
	acks <- amqp.Confirmation{DeliveryTag: 5, Ack: true}

	if err := awaitConfirmation(context.Background(), acks, 5); err != nil {
		t.Errorf("Expected ack, got %v", err)
	}
}

func TestAwaitConfirmation_ContextEnds(t *testing.T) {
	acks := make(chan amqp.Confirmation, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := awaitConfirmation(ctx, acks, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}

	// the late confirmation of delivery 1 must not satisfy delivery 2
	acks <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if err := awaitConfirmation(ctx2, acks, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected delivery 2 to stay unconfirmed, got %v", err)
	}
}

func TestAwaitConfirmation_ChannelClosed(t *testing.T) {
	acks := make(chan amqp.Confirmation)
	close(acks)

	err := awaitConfirmation(context.Background(), acks, 1)
	if err == nil || !strings.Contains(err.Error(), "closed") {
		t.Errorf("Expected closed channel error, got %v", err)
	}
}
