package model

import (
	"time"

	"github.com/google/uuid"
)

type Technician struct {
	ID         uuid.UUID
	Code       string
	FullName   string
	Timezone   string
	Active     bool
	CalendarID string
	Skills     []string
	CreatedAt  time.Time
}

type Shift struct {
	ID           uuid.UUID
	TechnicianID uuid.UUID
	Start        time.Time
	End          time.Time
}

type User struct {
	ID        uuid.UUID
	FullName  string
	Phone     string
	Email     string
	Address   *Address
	CreatedAt time.Time
}

type Address struct {
	ID         uuid.UUID
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	IsDefault  bool
}
