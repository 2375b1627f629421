package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

func TestOutboxPublisherPublish(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var envelope struct {
			ID            string          `json:"id"`
			AggregateType string          `json:"aggregate_type"`
			AggregateID   string          `json:"aggregate_id"`
			EventType     string          `json:"event_type"`
			Payload       json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		if envelope.EventType != string(EventTypeOrderCreated) {
			t.Errorf("event_type = %q, want %q", envelope.EventType, EventTypeOrderCreated)
		}
		if envelope.AggregateID != "order-1" {
			t.Errorf("aggregate_id = %q, want order-1", envelope.AggregateID)
		}
		return nil
	})

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}
	publisher := NewOutboxPublisher(producer, "")

	msg := domain.OutboxMessage{
		ID:            "msg-1",
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     string(EventTypeOrderCreated),
		Payload:       []byte(`{"order_no":"INV20260110-001"}`),
	}

	if err := publisher.Publish(msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if err := producer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOutboxPublisherPublishError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	msg := domain.OutboxMessage{
		ID:        "msg-2",
		EventType: string(EventTypeOrderDeleted),
		Payload:   []byte(`{}`),
	}

	if err := publisher.Publish(msg); err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := producer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOutboxPublisherNotInitialized(t *testing.T) {
	publisher := &TopicPublisher{}
	if err := publisher.Publish(domain.OutboxMessage{ID: "msg-3"}); err == nil {
		t.Fatal("expected error for uninitialized publisher")
	}
}
