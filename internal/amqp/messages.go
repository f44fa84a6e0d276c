package amqp

import (
	"encoding/json"
	"time"
)

// EventType doubles as the routing key on the exchange.
type EventType string

const (
	CategoryCreated    EventType = "category.created"
	CategoryUpdated    EventType = "category.updated"
	CategoryDeleted    EventType = "category.deleted"
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

// Event is a lightweight change notification. Consumers fetch the record by
// ID if they need its contents.
type Event struct {
	Type      EventType `json:"event"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(t EventType, id int64) Event {
	return Event{Type: t, ID: id, Timestamp: time.Now().UTC()}
}

// ToJSON converts the message to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
