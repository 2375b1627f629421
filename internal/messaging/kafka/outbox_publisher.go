package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

// outboxEventEnvelope описывает формат outbox-события в топике.
type outboxEventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// TopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type TopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &TopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish оборачивает outbox-сообщение в envelope и отправляет его в топик.
// Ключом партиционирования служит AggregateID, чтобы события одного заказа
// попадали в одну партицию.
func (p *TopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	return p.producer.PublishEvent(p.topic, partitionKey(event), outboxEventEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	})
}

// partitionKey выбирает ключ партиционирования: AggregateID, либо ID
// сообщения, если агрегат не задан.
func partitionKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}

var _ domain.OutboxPublisher = (*TopicPublisher)(nil)
