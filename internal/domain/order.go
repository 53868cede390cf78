package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String returns the status name.
func (s OrderStatus) String() string {
	return string(s)
}

type Order struct {
	ID              string      `bson:"_id" json:"id"`
	UserID          string      `bson:"user_id" json:"userId"`
	Items           []LineItem  `bson:"items" json:"items"`
	ItemCount       int         `bson:"item_count" json:"itemCount"`
	Subtotal        float64     `bson:"subtotal" json:"subtotal"`
	Status          OrderStatus `bson:"status" json:"status"`
	DeliveryAddress string      `bson:"delivery_address" json:"deliveryAddress"`
	Notes           string      `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `bson:"updated_at" json:"updatedAt"`
}

// Order event types written to the outbox.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	ID          string    `bson:"_id" json:"id"`
	AggregateID string    `bson:"aggregate_id" json:"aggregateId"`
	EventType   string    `bson:"event_type" json:"eventType"`
	Payload     []byte    `bson:"payload" json:"payload"`
	Published   bool      `bson:"published" json:"published"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// OrderEventPayload is the JSON body of an outbox event.
type OrderEventPayload struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Subtotal  float64     `json:"subtotal"`
	ItemCount int         `json:"item_count"`
	At        time.Time   `json:"at"`
}
