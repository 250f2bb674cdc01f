package handlers

import (
	"time"

	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
)

type slotItem struct {
	TechnicianID string `json:"technician_id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Source       string `json:"source"`
}

func toSlotItem(s scheduling.Slot) slotItem {
	return slotItem{
		TechnicianID: s.TechnicianID.String(),
		StartTime:    s.Start.UTC().Format(time.RFC3339),
		EndTime:      s.End.UTC().Format(time.RFC3339),
		Source:       s.Source,
	}
}

type holdResponse struct {
	HoldID       string `json:"hold_id"`
	TechnicianID string `json:"technician_id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	ExpiresAt    string `json:"expires_at"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	AppointmentNo int64  `json:"appointment_no"`
	UserID        string `json:"user_id"`
	TechnicianID  string `json:"technician_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Priority      string `json:"priority"`
	Status        string `json:"status"`
	RequestText   string `json:"request_text,omitempty"`
	Phone         string `json:"phone_snapshot,omitempty"`
	Address       string `json:"address_snapshot,omitempty"`
	EventID       string `json:"calendar_event_id,omitempty"`
	MeetingLink   string `json:"meeting_link,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID: a.ID.String(),
		AppointmentNo: a.Number,
		UserID:        a.UserID.String(),
		TechnicianID:  a.TechnicianID.String(),
		StartTime:     a.Start.UTC().Format(time.RFC3339),
		EndTime:       a.End.UTC().Format(time.RFC3339),
		Priority:      string(a.Priority),
		Status:        string(a.Status),
		RequestText:   a.RequestText,
		Phone:         a.PhoneSnapshot,
		Address:       a.AddressLine(),
		EventID:       a.CalendarEventID,
		MeetingLink:   a.MeetingLink,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type technicianResponse struct {
	TechnicianID string   `json:"technician_id"`
	Code         string   `json:"code"`
	FullName     string   `json:"full_name"`
	Timezone     string   `json:"timezone"`
	Active       bool     `json:"active"`
	CalendarID   string   `json:"calendar_id,omitempty"`
	Skills       []string `json:"skills"`
}

func toTechnicianResponse(t model.Technician) technicianResponse {
	skills := t.Skills
	if skills == nil {
		skills = []string{}
	}
	return technicianResponse{
		TechnicianID: t.ID.String(),
		Code:         t.Code,
		FullName:     t.FullName,
		Timezone:     t.Timezone,
		Active:       t.Active,
		CalendarID:   t.CalendarID,
		Skills:       skills,
	}
}

type addressBody struct {
	Line1      string `json:"line1" validate:"required,max=512"`
	Line2      string `json:"line2" validate:"max=512"`
	City       string `json:"city" validate:"max=256"`
	State      string `json:"state" validate:"max=256"`
	PostalCode string `json:"postal_code" validate:"max=32"`
}

type userResponse struct {
	UserID   string       `json:"user_id"`
	FullName string       `json:"full_name"`
	Phone    string       `json:"phone,omitempty"`
	Email    string       `json:"email,omitempty"`
	Address  *addressBody `json:"address,omitempty"`
}

func toUserResponse(u model.User) userResponse {
	resp := userResponse{
		UserID:   u.ID.String(),
		FullName: u.FullName,
		Phone:    u.Phone,
		Email:    u.Email,
	}
	if u.Address != nil {
		resp.Address = &addressBody{
			Line1:      u.Address.Line1,
			Line2:      u.Address.Line2,
			City:       u.Address.City,
			State:      u.Address.State,
			PostalCode: u.Address.PostalCode,
		}
	}
	return resp
}
