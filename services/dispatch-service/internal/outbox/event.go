package outbox

import (
	"encoding/json"
	"time"
)

// Event is the envelope written to outbox_events. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"

	TopicAppointmentBooked    = "booking.appointment.booked.v1"
	TopicAppointmentUpdated   = "booking.appointment.updated.v1"
	TopicAppointmentCancelled = "booking.appointment.cancelled.v1"
)

// AppointmentPayload is the JSON body of every appointment lifecycle event.
type AppointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	Number        int64     `json:"appointment_no"`
	UserID        string    `json:"user_id"`
	TechnicianID  string    `json:"technician_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewAppointmentEvent(eventType string, p AppointmentPayload) (Event, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   p.AppointmentID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
