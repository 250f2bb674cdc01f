package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
)

// fakeScheduler records the last request and returns canned results.
// Methods a test does not set panic through the nil embedded interface.
type fakeScheduler struct {
	Scheduler

	availQuery   scheduling.AvailabilityQuery
	slots        []scheduling.Slot
	meetingReq   scheduling.MeetingRequest
	publishReq   scheduling.PublishRequest
	patch        model.AppointmentPatch
	readRef      string
	appointment  model.Appointment
	nearest      scheduling.Slot
	nearestFound bool
	err          error
}

func (f *fakeScheduler) GetAvailableTimes(_ context.Context, q scheduling.AvailabilityQuery) ([]scheduling.Slot, error) {
	f.availQuery = q
	return f.slots, f.err
}

func (f *fakeScheduler) NearestAvailable(_ context.Context, _ scheduling.NearestQuery) (scheduling.Slot, bool, error) {
	return f.nearest, f.nearestFound, f.err
}

func (f *fakeScheduler) CreateMeeting(_ context.Context, req scheduling.MeetingRequest) (model.Appointment, error) {
	f.meetingReq = req
	return f.appointment, f.err
}

func (f *fakeScheduler) ReadMeeting(_ context.Context, ref string) (model.Appointment, error) {
	f.readRef = ref
	return f.appointment, f.err
}

func (f *fakeScheduler) UpdateMeeting(_ context.Context, ref string, patch model.AppointmentPatch) (model.Appointment, error) {
	f.readRef = ref
	f.patch = patch
	return f.appointment, f.err
}

func (f *fakeScheduler) CancelMeeting(_ context.Context, ref string) (model.Appointment, error) {
	f.readRef = ref
	return f.appointment, f.err
}

func (f *fakeScheduler) PublishAvailability(_ context.Context, req scheduling.PublishRequest) (int, error) {
	f.publishReq = req
	return 3, f.err
}

func newTestServer(t *testing.T, svc Scheduler) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewDispatchHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func TestAvailabilityResponseShape(t *testing.T) {
	techID := uuid.New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := &fakeScheduler{slots: []scheduling.Slot{
		{TechnicianID: techID, Start: start, End: start.Add(time.Hour), Source: scheduling.SourceInternal},
	}}
	srv := newTestServer(t, svc)

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/availability?skill=Plumbing&duration_minutes=60&priority=p1&limit=500", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Slots []slotItem `json:"slots"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(out.Slots))
	}
	got := out.Slots[0]
	if got.TechnicianID != techID.String() || got.StartTime != "2026-03-02T09:00:00Z" || got.EndTime != "2026-03-02T10:00:00Z" || got.Source != "internal" {
		t.Fatalf("unexpected slot: %+v", got)
	}

	if svc.availQuery.Priority != model.PriorityP1 {
		t.Fatalf("expected P1, got %q", svc.availQuery.Priority)
	}
	if svc.availQuery.Duration != time.Hour {
		t.Fatalf("expected 1h duration, got %s", svc.availQuery.Duration)
	}
	if svc.availQuery.Limit != maxSlotLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxSlotLimit, svc.availQuery.Limit)
	}
}

func TestAvailabilityEmptyListIsArray(t *testing.T) {
	srv := newTestServer(t, &fakeScheduler{})
	resp, body := do(t, http.MethodGet, srv.URL+"/v1/availability?skill=plumbing&duration_minutes=60", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != `{"slots":[]}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAvailabilityRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, &fakeScheduler{})
	cases := []string{
		"/v1/availability?duration_minutes=60",
		"/v1/availability?skill=plumbing&duration_minutes=abc",
		"/v1/availability?skill=plumbing&duration_minutes=60&priority=P9",
		"/v1/availability?skill=plumbing&duration_minutes=60&start=tomorrow",
	}
	for _, path := range cases {
		resp, _ := do(t, http.MethodGet, srv.URL+path, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
}

func TestNearestNoAvailability(t *testing.T) {
	srv := newTestServer(t, &fakeScheduler{})
	resp, body := do(t, http.MethodGet, srv.URL+"/v1/availability/nearest?skill=plumbing&duration_minutes=60", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != `{"available":false}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&model.ConflictError{TechnicianID: uuid.New()}, http.StatusConflict},
		{model.NotFoundError("appointment", "42"), http.StatusNotFound},
		{fmt.Errorf("window: %w", model.ErrInvalidRange), http.StatusBadRequest},
		{model.ErrNoAvailability, http.StatusUnprocessableEntity},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		srv := newTestServer(t, &fakeScheduler{err: tc.err})
		resp, _ := do(t, http.MethodGet, srv.URL+"/v1/appointments/42", "")
		if resp.StatusCode != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, resp.StatusCode)
		}
	}
}

func TestReadAppointmentPassesRawRef(t *testing.T) {
	svc := &fakeScheduler{appointment: model.Appointment{ID: uuid.New(), Number: 7, Status: model.StatusScheduled}}
	srv := newTestServer(t, svc)

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/appointments/%237", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if svc.readRef != "#7" {
		t.Fatalf("expected ref #7, got %q", svc.readRef)
	}
	var out appointmentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AppointmentNo != 7 || out.Status != "scheduled" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	svc := &fakeScheduler{}
	srv := newTestServer(t, svc)

	bad := []string{
		`{"user_id":"nope","technician_id":"` + uuid.NewString() + `","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z"}`,
		`{"user_id":"` + uuid.NewString() + `","technician_id":"` + uuid.NewString() + `","start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z","priority":"P7"}`,
		`{"user_id":"` + uuid.NewString() + `","technician_id":"` + uuid.NewString() + `","start_time":"9am","end_time":"2026-03-02T10:00:00Z"}`,
		`{"user_id":"` + uuid.NewString() + `","unknown":1}`,
	}
	for _, body := range bad {
		resp, _ := do(t, http.MethodPost, srv.URL+"/v1/appointments", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, resp.StatusCode)
		}
	}
}

func TestCreateAppointmentWithHold(t *testing.T) {
	userID, techID, holdID := uuid.New(), uuid.New(), uuid.New()
	svc := &fakeScheduler{appointment: model.Appointment{ID: uuid.New(), Number: 0, UserID: userID, TechnicianID: techID}}
	srv := newTestServer(t, svc)

	body := fmt.Sprintf(`{"user_id":%q,"technician_id":%q,"start_time":"2026-03-02T09:00:00Z","end_time":"2026-03-02T10:00:00Z","priority":"P2","hold_id":%q}`,
		userID, techID, holdID)
	resp, out := do(t, http.MethodPost, srv.URL+"/v1/appointments", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, out)
	}
	if svc.meetingReq.HoldID == nil || *svc.meetingReq.HoldID != holdID {
		t.Fatalf("expected hold id to be forwarded, got %v", svc.meetingReq.HoldID)
	}
	if svc.meetingReq.Priority != model.PriorityP2 {
		t.Fatalf("expected P2, got %q", svc.meetingReq.Priority)
	}
}

func TestUpdateAppointmentPartial(t *testing.T) {
	svc := &fakeScheduler{appointment: model.Appointment{ID: uuid.New()}}
	srv := newTestServer(t, svc)

	resp, body := do(t, http.MethodPatch, srv.URL+"/v1/appointments/12", `{"status":"completed"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if svc.patch.Status == nil || *svc.patch.Status != model.StatusCompleted {
		t.Fatalf("expected status patch, got %+v", svc.patch)
	}
	if svc.patch.Start != nil || svc.patch.End != nil || svc.patch.RequestText != nil {
		t.Fatalf("expected untouched fields to stay nil, got %+v", svc.patch)
	}

	resp, _ = do(t, http.MethodPatch, srv.URL+"/v1/appointments/12", `{"status":"archived"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestPublishShiftsParsesTemplate(t *testing.T) {
	svc := &fakeScheduler{}
	srv := newTestServer(t, svc)
	techID := uuid.New()

	body := `{"start_date":"2026-03-02","end_date":"2026-03-08","start_time":"09:00","end_time":"17:00","weekdays":["Mon","wednesday"],"clear_overlaps":true}`
	resp, out := do(t, http.MethodPost, srv.URL+"/v1/technicians/"+techID.String()+"/shifts/publish", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, out)
	}
	req := svc.publishReq
	if req.TechnicianID != techID || !req.ClearOverlaps {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.StartClock != (scheduling.Clock{Hour: 9}) || req.EndClock != (scheduling.Clock{Hour: 17}) {
		t.Fatalf("unexpected clocks: %+v %+v", req.StartClock, req.EndClock)
	}
	if len(req.Weekdays) != 2 || req.Weekdays[0] != time.Monday || req.Weekdays[1] != time.Wednesday {
		t.Fatalf("unexpected weekdays: %v", req.Weekdays)
	}

	bad := `{"start_date":"2026-03-02","end_date":"2026-03-08","start_time":"09:00","end_time":"17:00","weekdays":["someday"]}`
	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/technicians/"+techID.String()+"/shifts/publish", bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown weekday, got %d", resp.StatusCode)
	}
}

func TestPathUUIDRejected(t *testing.T) {
	srv := newTestServer(t, &fakeScheduler{})
	resp, _ := do(t, http.MethodGet, srv.URL+"/v1/technicians/not-a-uuid", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
