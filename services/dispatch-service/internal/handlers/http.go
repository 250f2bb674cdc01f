package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/libs/httpx"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
)

// Scheduler is the dispatch engine as seen by the HTTP layer.
type Scheduler interface {
	GetAvailableTimes(ctx context.Context, q scheduling.AvailabilityQuery) ([]scheduling.Slot, error)
	NearestAvailable(ctx context.Context, q scheduling.NearestQuery) (scheduling.Slot, bool, error)
	HoldSlot(ctx context.Context, req scheduling.HoldRequest) (model.Hold, error)
	CreateMeeting(ctx context.Context, req scheduling.MeetingRequest) (model.Appointment, error)
	CreateEarliestMeeting(ctx context.Context, req scheduling.EarliestMeetingRequest) (model.Appointment, error)
	ReadMeeting(ctx context.Context, ref string) (model.Appointment, error)
	UpdateMeeting(ctx context.Context, ref string, patch model.AppointmentPatch) (model.Appointment, error)
	CancelMeeting(ctx context.Context, ref string) (model.Appointment, error)
	PublishAvailability(ctx context.Context, req scheduling.PublishRequest) (int, error)

	CreateTechnician(ctx context.Context, t model.Technician) (model.Technician, error)
	GetTechnician(ctx context.Context, id uuid.UUID) (model.Technician, error)
	AddTechnicianSkills(ctx context.Context, id uuid.UUID, skills []string) (model.Technician, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (model.User, error)
	ListUserAppointments(ctx context.Context, userID uuid.UUID) ([]model.Appointment, error)
}

type DispatchHandler struct {
	svc      Scheduler
	logger   *slog.Logger
	validate *validator.Validate
}

func NewDispatchHandler(svc Scheduler, logger *slog.Logger) *DispatchHandler {
	return &DispatchHandler{
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *DispatchHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/availability", h.Availability)
	mux.HandleFunc("GET /v1/availability/nearest", h.Nearest)
	mux.HandleFunc("POST /v1/holds", h.Hold)

	mux.HandleFunc("POST /v1/appointments", h.CreateAppointment)
	mux.HandleFunc("POST /v1/appointments/earliest", h.CreateEarliestAppointment)
	mux.HandleFunc("GET /v1/appointments/{ref}", h.ReadAppointment)
	mux.HandleFunc("PATCH /v1/appointments/{ref}", h.UpdateAppointment)
	mux.HandleFunc("POST /v1/appointments/{ref}/cancel", h.CancelAppointment)

	mux.HandleFunc("POST /v1/technicians", h.CreateTechnician)
	mux.HandleFunc("GET /v1/technicians/{id}", h.GetTechnician)
	mux.HandleFunc("POST /v1/technicians/{id}/skills", h.AddSkills)
	mux.HandleFunc("POST /v1/technicians/{id}/shifts/publish", h.PublishShifts)

	mux.HandleFunc("POST /v1/users", h.CreateUser)
	mux.HandleFunc("GET /v1/users/{id}", h.GetUser)
	mux.HandleFunc("GET /v1/users/{id}/appointments", h.ListUserAppointments)
}

// decode reads a JSON body into dst and runs struct validation.
func (h *DispatchHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "invalid request: " + strings.Join(msgs, ", ")
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are logged
// and hidden behind a 500.
func (h *DispatchHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidRange), errors.Is(err, model.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNoAvailability):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request timed out", http.StatusServiceUnavailable)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
