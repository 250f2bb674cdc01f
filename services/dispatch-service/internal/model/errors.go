package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidRange   = errors.New("invalid range")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoAvailability = errors.New("no availability")
)

// ConflictError names the technician and interval that collided with an
// existing live hold or appointment. Detail describes the existing block
// when the database reported it.
type ConflictError struct {
	TechnicianID uuid.UUID
	Start        time.Time
	End          time.Time
	Detail       string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("technician %s is already booked or held within [%s, %s)",
		e.TechnicianID, e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError wraps ErrNotFound with the kind of entity that was missing.
func NotFoundError(kind string, ref any) error {
	return fmt.Errorf("%s %v: %w", kind, ref, ErrNotFound)
}
