package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType определяет тип события жизненного цикла заказа.
type EventType string

const (
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderUpdated EventType = "order.updated"
	EventTypeOrderDeleted EventType = "order.deleted"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "orderdesk.order.events"
	TopicDeadLetterQueue = "orderdesk.dlq"
)

// OrderEvent представляет событие заказа для внешних потребителей.
type OrderEvent struct {
	EventType    EventType       `json:"event_type"`
	OrderID      string          `json:"order_id"`
	OrderNo      string          `json:"order_no"`
	CustomerName string          `json:"customer_name"`
	OrderDate    time.Time       `json:"order_date"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewOrderEvent создаёт событие заказа с текущей меткой времени.
func NewOrderEvent(eventType EventType, orderID, orderNo, customerName string, orderDate time.Time, grandTotal decimal.Decimal) *OrderEvent {
	return &OrderEvent{
		EventType:    eventType,
		OrderID:      orderID,
		OrderNo:      orderNo,
		CustomerName: customerName,
		OrderDate:    orderDate,
		GrandTotal:   grandTotal,
		Timestamp:    time.Now().UTC(),
	}
}
