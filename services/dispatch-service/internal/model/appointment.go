package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Appointment is the durable booking. Address and phone are snapshots taken
// at booking time.
type Appointment struct {
	ID              uuid.UUID
	Number          int64
	UserID          uuid.UUID
	TechnicianID    uuid.UUID
	Start           time.Time
	End             time.Time
	Priority        Priority
	Status          Status
	RequestText     string
	PhoneSnapshot   string
	AddressLine1    string
	AddressLine2    string
	City            string
	State           string
	PostalCode      string
	CalendarEventID string
	MeetingLink     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Blocking reports whether the appointment occupies its technician's time.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCanceled
}

type Hold struct {
	ID           uuid.UUID
	TechnicianID uuid.UUID
	UserID       *uuid.UUID
	Start        time.Time
	End          time.Time
	ExpiresAt    time.Time
	Note         string
	CreatedAt    time.Time
}

// Live reports whether the hold still claims its interval at now.
func (h Hold) Live(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

// AppointmentPatch carries a partial update; nil fields are left unchanged.
type AppointmentPatch struct {
	Start       *time.Time
	End         *time.Time
	Status      *Status
	RequestText *string
}

func (p AppointmentPatch) Empty() bool {
	return p.Start == nil && p.End == nil && p.Status == nil && p.RequestText == nil
}

// Apply returns a copy of a with the patch fields applied.
func (p AppointmentPatch) Apply(a Appointment) Appointment {
	if p.Start != nil {
		a.Start = p.Start.UTC()
	}
	if p.End != nil {
		a.End = p.End.UTC()
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.RequestText != nil {
		a.RequestText = *p.RequestText
	}
	return a
}

// AddressLine renders the address snapshot on one line.
func (a Appointment) AddressLine() string {
	var parts []string
	for _, p := range []string{a.AddressLine1, a.AddressLine2, a.City, a.State, a.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
