package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
)

type createAppointmentRequest struct {
	UserID       string `json:"user_id" validate:"required,uuid"`
	TechnicianID string `json:"technician_id" validate:"required,uuid"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	Priority     string `json:"priority" validate:"omitempty,oneof=P1 P2 P3"`
	RequestText  string `json:"request_text" validate:"max=4000"`
	HoldID       string `json:"hold_id" validate:"omitempty,uuid"`
}

func (h *DispatchHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, end, ok := rangeBody(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	mr := scheduling.MeetingRequest{
		UserID:       uuid.MustParse(req.UserID),
		TechnicianID: uuid.MustParse(req.TechnicianID),
		Start:        start,
		End:          end,
		Priority:     model.Priority(req.Priority),
		RequestText:  req.RequestText,
	}
	if req.HoldID != "" {
		id := uuid.MustParse(req.HoldID)
		mr.HoldID = &id
	}

	appt, err := h.svc.CreateMeeting(r.Context(), mr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

type createEarliestRequest struct {
	UserID          string `json:"user_id" validate:"required,uuid"`
	Skill           string `json:"skill" validate:"required,max=128"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	Priority        string `json:"priority" validate:"omitempty,oneof=P1 P2 P3"`
	RequestText     string `json:"request_text" validate:"max=4000"`
}

func (h *DispatchHandler) CreateEarliestAppointment(w http.ResponseWriter, r *http.Request) {
	var req createEarliestRequest
	if !h.decode(w, r, &req) {
		return
	}
	priority := model.Priority(req.Priority)
	if priority == "" {
		priority = model.PriorityP3
	}

	appt, err := h.svc.CreateEarliestMeeting(r.Context(), scheduling.EarliestMeetingRequest{
		UserID:      uuid.MustParse(req.UserID),
		Skill:       req.Skill,
		Duration:    time.Duration(req.DurationMinutes) * time.Minute,
		Priority:    priority,
		RequestText: req.RequestText,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

// ReadAppointment accepts either the public number ("12", "%2312") or the UUID.
func (h *DispatchHandler) ReadAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.ReadMeeting(r.Context(), r.PathValue("ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type updateAppointmentRequest struct {
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Status      *string `json:"status" validate:"omitempty,oneof=scheduled completed canceled"`
	RequestText *string `json:"request_text" validate:"omitempty,max=4000"`
}

func (h *DispatchHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req updateAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	var patch model.AppointmentPatch
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			http.Error(w, "invalid start_time", http.StatusBadRequest)
			return
		}
		patch.Start = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			http.Error(w, "invalid end_time", http.StatusBadRequest)
			return
		}
		patch.End = &t
	}
	if req.Status != nil {
		s := model.Status(*req.Status)
		patch.Status = &s
	}
	patch.RequestText = req.RequestText

	appt, err := h.svc.UpdateMeeting(r.Context(), r.PathValue("ref"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *DispatchHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.CancelMeeting(r.Context(), r.PathValue("ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}
