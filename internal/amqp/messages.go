package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Change events published after successful writes.
const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
	EventEntryDeleted = "entry.deleted"
	EventTypeCreated  = "type.created"
	EventTypeUpdated  = "type.updated"
	EventTypeDeleted  = "type.deleted"
)

// Event is a lightweight change notification. It carries only the row id;
// consumers read current state from the database.
type Event struct {
	Event     string    `json:"event"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps a change event with the current time.
func NewEvent(name string, id int64) Event {
	return Event{Event: name, ID: id, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects one without a name.
func EventFromJSON(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if ev.Event == "" {
		return Event{}, errors.New("event name missing")
	}
	return ev, nil
}
