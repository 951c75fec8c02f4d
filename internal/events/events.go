// Package events publishes reservation lifecycle notifications to a message broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried in the Type field and used as routing keys.
const (
	TypeReservationCreated = "reservation.created"
	TypeReservationUpdated = "reservation.updated"
	TypeReservationDeleted = "reservation.deleted"
)

// Reservation is the wire form of a reservation inside an event.
type Reservation struct {
	ID          int64   `json:"id"`
	EquipmentID int64   `json:"equipment_id"`
	UserName    string  `json:"user_name"`
	UserEmail   *string `json:"user_email,omitempty"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Purpose     *string `json:"purpose,omitempty"`
	Status      string  `json:"status"`
}

// ReservationEvent is the message body published for a reservation change.
type ReservationEvent struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Reservation Reservation `json:"reservation"`
}

// NewReservationEvent stamps a new event with a random ID.
func NewReservationEvent(eventType string, reservation Reservation, occurredAt time.Time) ReservationEvent {
	return ReservationEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		OccurredAt:  occurredAt.UTC(),
		Reservation: reservation,
	}
}

// Marshal encodes the event as JSON.
func (e ReservationEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers reservation events.
type Publisher interface {
	Publish(ctx context.Context, event ReservationEvent) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
