package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
)

const (
	defaultSlotLimit = 10
	maxSlotLimit     = 200
)

// Availability serves GET /v1/availability?skill=&duration_minutes=&priority=&start=&end=&limit=&external=.
func (h *DispatchHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skill := strings.TrimSpace(q.Get("skill"))
	if skill == "" {
		http.Error(w, "skill is required", http.StatusBadRequest)
		return
	}
	duration, ok := durationParam(w, q.Get("duration_minutes"))
	if !ok {
		return
	}
	priority, ok := priorityParam(w, q.Get("priority"))
	if !ok {
		return
	}
	start, ok := timeParam(w, "start", q.Get("start"))
	if !ok {
		return
	}
	end, ok := timeParam(w, "end", q.Get("end"))
	if !ok {
		return
	}
	limit := defaultSlotLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxSlotLimit)
	}

	slots, err := h.svc.GetAvailableTimes(r.Context(), scheduling.AvailabilityQuery{
		Skill:                skill,
		Duration:             duration,
		Priority:             priority,
		WindowStart:          start,
		WindowEnd:            end,
		Limit:                limit,
		ConsiderExternalBusy: boolParam(q.Get("external")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, toSlotItem(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": items})
}

// Nearest serves GET /v1/availability/nearest.
func (h *DispatchHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skill := strings.TrimSpace(q.Get("skill"))
	if skill == "" {
		http.Error(w, "skill is required", http.StatusBadRequest)
		return
	}
	duration, ok := durationParam(w, q.Get("duration_minutes"))
	if !ok {
		return
	}
	priority, ok := priorityParam(w, q.Get("priority"))
	if !ok {
		return
	}
	after, ok := timeParam(w, "after", q.Get("after"))
	if !ok {
		return
	}

	slot, found, err := h.svc.NearestAvailable(r.Context(), scheduling.NearestQuery{
		Skill:                skill,
		Duration:             duration,
		Priority:             priority,
		After:                after,
		ConsiderExternalBusy: boolParam(q.Get("external")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "slot": toSlotItem(slot)})
}

type holdRequest struct {
	TechnicianID string `json:"technician_id" validate:"required,uuid"`
	UserID       string `json:"user_id" validate:"omitempty,uuid"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	TTLSeconds   int    `json:"ttl_seconds" validate:"gte=0,lte=3600"`
	Note         string `json:"note" validate:"max=2000"`
	Tentative    bool   `json:"tentative"`
}

func (h *DispatchHandler) Hold(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, end, ok := rangeBody(w, req.StartTime, req.EndTime)
	if !ok {
		return
	}

	hr := scheduling.HoldRequest{
		TechnicianID: uuid.MustParse(req.TechnicianID),
		Start:        start,
		End:          end,
		TTL:          time.Duration(req.TTLSeconds) * time.Second,
		Note:         req.Note,
		Tentative:    req.Tentative,
	}
	if req.UserID != "" {
		uid := uuid.MustParse(req.UserID)
		hr.UserID = &uid
	}

	hold, err := h.svc.HoldSlot(r.Context(), hr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, holdResponse{
		HoldID:       hold.ID.String(),
		TechnicianID: hold.TechnicianID.String(),
		StartTime:    hold.Start.UTC().Format(time.RFC3339),
		EndTime:      hold.End.UTC().Format(time.RFC3339),
		ExpiresAt:    hold.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// durationParam rejects malformed input but lets non-positive values through;
// the engine answers those with an empty slot list.
func durationParam(w http.ResponseWriter, v string) (time.Duration, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
		return 0, false
	}
	return time.Duration(n) * time.Minute, true
}

func priorityParam(w http.ResponseWriter, v string) (model.Priority, bool) {
	if v == "" {
		return model.PriorityP3, true
	}
	p := model.Priority(strings.ToUpper(strings.TrimSpace(v)))
	if !p.Valid() {
		http.Error(w, "invalid priority", http.StatusBadRequest)
		return "", false
	}
	return p, true
}

func timeParam(w http.ResponseWriter, name, v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

func rangeBody(w http.ResponseWriter, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func boolParam(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
